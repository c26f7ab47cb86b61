package simulation

import "sort"

// PlannedAction classifies what a nominated, present train intends to do
// in the current tick, before the confirmation phase decides whether it
// actually happens (spec.md §4.3 Phase 3).
type PlannedAction int

const (
	// ActionWait means the train is nominated and present but will not
	// advance this tick: either it just halted at its destination (the
	// first step of the two-step exit protocol) or no next step could be
	// found on its path. A hop that is refused confirmation stays ActionHop
	// with Confirmed false.
	ActionWait PlannedAction = iota
	// ActionHop means the train intends to advance to Target.
	ActionHop
	// ActionExit means the train intends to leave the network.
	ActionExit
)

// Intent is one ordered candidate's planned action for the current tick,
// together with whether the confirmation phase (Phase 4) confirmed it.
// Move and Forecast share this type: Move commits confirmed intents,
// Forecast only reports them.
type Intent struct {
	TrainID   string
	Current   Section
	Action    PlannedAction
	Target    Section // meaningful only when Action == ActionHop
	Confirmed bool

	// BlockedByCrossing records that this intent has, at least once during
	// planning, been refused confirmation by the crossing interlock (Phase 4
	// rule 1). Because the interlock reads only the tick's starting
	// occupancy, never the evolving confirmed-move set, this can only ever
	// be set to true, never cleared, within a single plan call.
	BlockedByCrossing bool
	// ChainUnblocked records that this intent was confirmed on the strength
	// of another confirmed candidate's departure from its target section in
	// the same tick (spec.md's chain unblocking), rather than because the
	// target was already empty at the start of the tick.
	ChainUnblocked bool
}

// plan runs Phases 1-4 of the movement planner against c's current
// committed state. mutateExitFlag controls whether a train halting at its
// destination for the first time actually has its marked-for-exit flag set
// (true for Move, false for Forecast's dry run, so that a preview never
// mutates state).
//
// plan returns, in planner order (Phase 2's passenger-then-lexicographic
// sort), one Intent per present nominated train — including ActionWait
// entries, which are never eligible for Phase 4 and are reported purely for
// visibility (this is what lets Forecast show "will halt at destination"
// distinctly from "blocked this tick").
func (c *Controller) plan(candidateIDs []string, mutateExitFlag bool) ([]*Intent, error) {
	// Phase 1: validate every identifier is known. Unknown identifiers
	// abort the entire call before any state is touched (including the
	// exit-flag mutation below), per spec.md §4.3 and §7.
	present := make([]*Train, 0, len(candidateIDs))
	seen := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		t, ok := c.trains[id]
		if !ok {
			return nil, errUnknownTrain
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, stillPresent := c.position[id]; stillPresent {
			present = append(present, t)
		}
		// else: already exited; silently ignored per spec.md §4.3 Phase 1.
	}

	// Phase 2: order by classification ascending, then identifier
	// ascending. This is the single source of determinism for both
	// confirmation priority and commit order.
	sort.Slice(present, func(i, j int) bool {
		a, b := present[i], present[j]
		if a.Classification != b.Classification {
			return a.Classification < b.Classification
		}
		return a.ID < b.ID
	})

	// Phase 3: compute each ordered train's intended action.
	intents := make([]*Intent, 0, len(present))
	byID := make(map[string]*Intent, len(present))
	for _, t := range present {
		current := c.position[t.ID]
		it := &Intent{TrainID: t.ID, Current: current}
		switch {
		case current == t.Destination && t.markedForExit:
			it.Action = ActionExit
			it.Target = SectionNone
		case current == t.Destination:
			it.Action = ActionWait
			if mutateExitFlag {
				t.markedForExit = true
			}
		default:
			next, ok := t.stepAfter(current)
			if !ok {
				// Invariant violation guard; current is always on the
				// path and short of the destination here.
				it.Action = ActionWait
			} else {
				it.Action = ActionHop
				it.Target = next
			}
		}
		intents = append(intents, it)
		byID[t.ID] = it
	}

	// Phase 4: iterative confirmation. Only ActionHop/ActionExit intents
	// participate; ActionWait intents never consume a target and are
	// never confirmed.
	confirmedTargets := make(map[Section]string)
	changed := true
	for changed {
		changed = false
		for _, it := range intents {
			if it.Confirmed || it.Action == ActionWait {
				continue
			}
			if it.Action == ActionExit {
				// Exits vacate without targeting any section, which
				// trivially satisfies every availability rule.
				it.Confirmed = true
				changed = true
				continue
			}

			t := c.trains[it.TrainID]
			target := it.Target

			if t.Classification == Freight && isFreightCrossingHop(it.Current, target) && c.crossingHeld() {
				it.BlockedByCrossing = true
				continue
			}

			occupant := c.occupancy[target]
			available := false
			chainUnblocked := false
			if occupant == "" {
				available = true
			} else if oIntent, ok := byID[occupant]; ok && oIntent.Confirmed {
				// Chain unblocking: the occupant is itself a confirmed
				// mover. Available unless the occupant is confirmed to
				// swap back into this train's own source section (the
				// head-on swap prohibition, Phase 4 rule 3).
				swapsIntoMySource := oIntent.Action == ActionHop && oIntent.Target == it.Current
				if !swapsIntoMySource {
					available = true
					chainUnblocked = true
				}
			}
			if !available {
				continue
			}

			if _, taken := confirmedTargets[target]; taken {
				continue
			}

			it.Confirmed = true
			it.ChainUnblocked = chainUnblocked
			confirmedTargets[target] = it.TrainID
			changed = true
		}
	}

	return intents, nil
}

// crossingHeld reports whether any of the crossing-sensitive passenger
// sections {1, 5, 6} is currently occupied. It always reads the state as
// committed at the start of the tick, never the evolving confirmed-move
// set, per spec.md §9's design note on the crossing interlock's scope.
func (c *Controller) crossingHeld() bool {
	for s := range crossingSensitiveSections {
		if c.occupancy[s] != "" {
			return true
		}
	}
	return false
}

// Move advances zero or more of the nominated, present trains identified
// in candidates by exactly one section (or out of the network), subject to
// the planner's confirmation rules, and returns the count of confirmed
// advancements (hops and exits both count; a stationary halt counts as
// zero). It is atomic: either every confirmed action commits, or (on an
// unknown-train argument error) none does.
func (c *Controller) Move(candidates ...string) (int, error) {
	intents, err := c.plan(candidates, true)
	if err != nil {
		return 0, err
	}

	// Commit in two passes so that map-mutation order can never corrupt a
	// chained vacate-then-enter within the same tick: first clear every
	// vacated source section, then set every new target's occupancy and
	// position (and drop exited trains from the position map). This is
	// purely an implementation detail; observable commit order (for
	// events) still follows planner order below.
	for _, it := range intents {
		if !it.Confirmed {
			continue
		}
		delete(c.occupancy, it.Current)
	}
	count := 0
	for _, it := range intents {
		if !it.Confirmed {
			continue
		}
		count++
		t := c.trains[it.TrainID]
		switch it.Action {
		case ActionExit:
			delete(c.position, it.TrainID)
			t.markedForExit = false
			c.sendEvent(&Event{Name: TrainExitedEvent, Object: &TrainExited{Train: t, From: it.Current}})
		case ActionHop:
			c.occupancy[it.Target] = it.TrainID
			c.position[it.TrainID] = it.Target
			c.sendEvent(&Event{Name: TrainAdvancedEvent, Object: &TrainAdvanced{Train: t, From: it.Current, To: it.Target}})
		}
	}

	chainUnblocks := 0
	for _, it := range intents {
		if it.Action == ActionHop && !it.Confirmed && it.BlockedByCrossing {
			c.sendEvent(&Event{Name: CrossingRefusalEvent, Object: &CrossingRefusal{Train: c.trains[it.TrainID]}})
		}
		if it.Confirmed && it.ChainUnblocked {
			chainUnblocks++
		}
	}

	if len(candidates) > 0 {
		c.sendEvent(&Event{Name: TickCommittedEvent, Object: &TickCommitted{Candidates: candidates, Confirmed: count, ChainUnblocked: chainUnblocks}})
		if count == 0 {
			c.sendEvent(&Event{Name: TickRefusedEvent, Object: &TickRefused{Candidates: candidates}})
		}
	}
	return count, nil
}

// Forecast runs the same validation and confirmation logic as Move but
// never commits: it returns the planner-ordered Intent list exactly as Move
// would have acted on it, without mutating occupancy, position, or any
// train's marked-for-exit flag. It is the read path used by the host
// harness's dry-run preview (SPEC_FULL.md §4.5).
func (c *Controller) Forecast(candidates ...string) ([]*Intent, error) {
	return c.plan(candidates, false)
}
