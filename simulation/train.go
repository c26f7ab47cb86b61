package simulation

// Train is a record of one train admitted to the network: its identifier,
// its pre-computed path, its destination, its classification, and the
// two-step exit protocol's marked-for-exit flag (spec.md §3).
type Train struct {
	ID             string
	Destination    Section
	Path           []Section
	Classification Classification

	markedForExit bool
}

// stepAfter returns the path element immediately following section on t's
// path, and whether one exists. Callers only invoke this when section is
// known (by invariant 2) to lie on t's path and not be the destination.
func (t *Train) stepAfter(section Section) (Section, bool) {
	for i, s := range t.Path {
		if s == section && i+1 < len(t.Path) {
			return t.Path[i+1], true
		}
	}
	return SectionNone, false
}
