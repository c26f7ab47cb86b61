package simulation

import (
	"strconv"

	"github.com/katalvlaran/lvlath/graph/algorithms"
)

// FindPath returns the ordered sequence of sections a train entering at
// entry and destined for destination will traverse, first element entry,
// last element destination. It performs an undirected breadth-first search
// over the fixed topology graph; because each corridor is a forest, the
// shortest path between any two connected sections is unique, so there is
// never an actual tie to break.
//
// FindPath returns errInvalidPath when destination is unreachable from
// entry — the mechanism by which cross-corridor admission is rejected,
// since the two corridors are disjoint as graphs.
func FindPath(entry, destination Section) ([]Section, error) {
	if entry == destination {
		return []Section{entry}, nil
	}

	res, err := algorithms.BFS(topologyGraph, entry.String(), nil)
	if err != nil {
		// entry is always a vertex of the fixed topology (1..11), so this
		// can only happen for an out-of-range entry, which callers must
		// already have rejected via Section.Valid before calling FindPath.
		return nil, errInvalidPath
	}
	if !res.Visited[destination.String()] {
		return nil, errInvalidPath
	}

	// Reconstruct the path by walking Parent from destination back to
	// entry, then reversing.
	var reversed []Section
	cur := destination.String()
	for cur != entry.String() {
		s, convErr := sectionFromID(cur)
		if convErr != nil {
			return nil, errInvalidPath
		}
		reversed = append(reversed, s)
		parent, ok := res.Parent[cur]
		if !ok {
			return nil, errInvalidPath
		}
		cur = parent
	}
	reversed = append(reversed, entry)

	path := make([]Section, len(reversed))
	for i, s := range reversed {
		path[len(reversed)-1-i] = s
	}
	return path, nil
}

func sectionFromID(id string) (Section, error) {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0, err
	}
	return Section(n), nil
}
