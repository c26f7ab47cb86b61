package simulation

// TrainAbsent is the sentinel position returned by Train for an identifier
// that is known but currently not present on the network (never admitted
// trains are instead reported as an unknown-train argument error).
const TrainAbsent Section = -1

// Controller holds the full state of one interlocking instance: the
// registry of every train ever admitted (retained permanently, per spec.md
// §9, so identifier uniqueness and "known but exited" are both answerable),
// the section -> occupant map, and its inverse, the occupied-train ->
// section map.
//
// Controller is deliberately unsynchronized: spec.md §5 specifies a
// single-threaded, externally-driven controller with no internal
// concurrency. Serializing concurrent callers, if any exist, is the host's
// job (see server.ctrlMu).
type Controller struct {
	trains    map[string]*Train
	occupancy map[Section]string
	position  map[string]Section

	listeners []Listener
}

// NewController returns a Controller over an empty network: every section
// unoccupied, no trains registered.
func NewController() *Controller {
	return &Controller{
		trains:    make(map[string]*Train),
		occupancy: make(map[Section]string),
		position:  make(map[string]Section),
	}
}

// Admit creates a new train identified by identifier, entering at entry and
// bound for destination. It enforces, in order: identifier uniqueness,
// section-range validity of both entry and destination, entry-section
// vacancy, and path existence (spec.md §4.2). On success the train is
// recorded with its computed path and classification, and entry becomes
// occupied by it.
func (c *Controller) Admit(identifier string, entry, destination Section) error {
	if _, exists := c.trains[identifier]; exists {
		return errDuplicateIdentifier
	}
	if !entry.Valid() || !destination.Valid() {
		return errInvalidSection
	}
	if _, occupied := c.occupancy[entry]; occupied {
		return errEntryOccupied
	}
	path, err := FindPath(entry, destination)
	if err != nil {
		return err
	}

	classification := Passenger
	if entry.IsFreightEntry() {
		classification = Freight
	}

	t := &Train{
		ID:             identifier,
		Destination:    destination,
		Path:           path,
		Classification: classification,
	}
	c.trains[identifier] = t
	c.occupancy[entry] = identifier
	c.position[identifier] = entry

	c.sendEvent(&Event{Name: TrainAdmittedEvent, Object: &TrainAdmitted{Train: t}})
	return nil
}

// Section returns the identifier of the train occupying s, or "" if s is
// empty. It validates s against [1, 11].
func (c *Controller) Section(s Section) (string, error) {
	if !s.Valid() {
		return "", errInvalidSection
	}
	return c.occupancy[s], nil
}

// Train returns the current section of the train identified by identifier,
// or TrainAbsent (-1) if the train has exited the network. It returns
// errUnknownTrain if identifier was never admitted.
func (c *Controller) Train(identifier string) (Section, error) {
	if _, exists := c.trains[identifier]; !exists {
		return 0, errUnknownTrain
	}
	if s, present := c.position[identifier]; present {
		return s, nil
	}
	return TrainAbsent, nil
}

// Occupancy returns a snapshot copy of every occupied section and its
// occupant. It is an ambient introspection hook for the host harness's
// dump/debug surface (SPEC_FULL.md §4.6), not part of spec.md's own Query
// Surface, which only exposes single-section lookups via Section.
func (c *Controller) Occupancy() map[Section]string {
	out := make(map[Section]string, len(c.occupancy))
	for s, id := range c.occupancy {
		out[s] = id
	}
	return out
}

// TrainIDs returns every identifier ever admitted. The order is not
// guaranteed (map iteration). The host harness's dump action does not use
// it; dump reports Occupancy only.
func (c *Controller) TrainIDs() []string {
	out := make([]string, 0, len(c.trains))
	for id := range c.trains {
		out = append(out, id)
	}
	return out
}
