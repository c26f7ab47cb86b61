// Copyright (C) 2008-2018 by Nicolas Piganeau and the TS2 TEAM
// (See AUTHORS file)
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program; if not, write to the
// Free Software Foundation, Inc.,
// 59 Temple Place - Suite 330, Boston, MA  02111-1307, USA.

package simulation

import (
	"strconv"

	"github.com/katalvlaran/lvlath/graph/core"
)

// Section identifies one of the eleven fixed track sections of the network.
// Sections are numbered 1..11 inclusive; there is no section 0, which is
// reserved as the sentinel for "no section" (SectionNone).
type Section int

const (
	// SectionNone is never a valid section; it is used internally as the
	// confirmed-target sentinel for a train that is exiting rather than
	// hopping to another section.
	SectionNone Section = 0

	sectionMin = 1
	sectionMax = 11
)

// Valid reports whether s lies in the closed range [1, 11].
func (s Section) Valid() bool {
	return s >= sectionMin && s <= sectionMax
}

func (s Section) String() string {
	return strconv.Itoa(int(s))
}

// Classification distinguishes passenger trains from freight trains. The
// zero value is Passenger so that an unset Classification fails safe toward
// the right-of-way class rather than the one that must yield.
type Classification int

const (
	Passenger Classification = iota
	Freight
)

func (c Classification) String() string {
	if c == Freight {
		return "freight"
	}
	return "passenger"
}

// corridorEdge is one undirected adjacency in the fixed topology, listed in
// the exact order spec'd: passenger corridor first, then freight corridor.
type corridorEdge struct {
	a, b Section
}

var corridorEdges = []corridorEdge{
	{1, 5},
	{2, 5},
	{5, 6},
	{6, 10},
	{10, 8},
	{10, 9},
	{3, 4},
	{3, 7},
	{7, 11},
}

// passengerEntrySections and freightEntrySections classify a section by the
// corridor its trains are admitted into; a section's membership in one of
// these sets is what derives a train's Classification from its entry
// section (spec.md §3).
var passengerEntrySections = map[Section]bool{
	1: true, 2: true, 5: true, 6: true, 8: true, 9: true, 10: true,
}

var freightEntrySections = map[Section]bool{
	3: true, 4: true, 7: true, 11: true,
}

// crossingSensitiveSections are the passenger sections whose occupancy
// forbids the freight 3<->4 hop (spec.md §3, §4.3 Phase 4 rule 1).
var crossingSensitiveSections = map[Section]bool{
	1: true, 5: true, 6: true,
}

// IsPassengerEntry reports whether s is a valid passenger entry section.
func (s Section) IsPassengerEntry() bool { return passengerEntrySections[s] }

// IsFreightEntry reports whether s is a valid freight entry section.
func (s Section) IsFreightEntry() bool { return freightEntrySections[s] }

// IsCrossingSensitive reports whether s is one of {1, 5, 6}.
func (s Section) IsCrossingSensitive() bool { return crossingSensitiveSections[s] }

// isFreightCrossingHop reports whether moving from a to b (in either
// direction) is the freight corridor's physical crossing of the passenger
// mainline.
func isFreightCrossingHop(a, b Section) bool {
	return (a == 3 && b == 4) || (a == 4 && b == 3)
}

// topologyGraph is the fixed, immutable adjacency graph of the network,
// built once at package initialization from corridorEdges. It is never
// mutated after init: there is no exported way to add an edge at runtime,
// which is what keeps the two corridors permanently disjoint as graphs (see
// spec.md §9's open question on cross-corridor admission).
var topologyGraph *core.Graph

func init() {
	g := core.NewGraph(false, false)
	for s := Section(sectionMin); s <= sectionMax; s++ {
		g.AddVertex(&core.Vertex{ID: s.String(), Metadata: map[string]interface{}{}})
	}
	for _, e := range corridorEdges {
		g.AddEdge(e.a.String(), e.b.String(), 1)
	}
	topologyGraph = g
}
