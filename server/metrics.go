// Copyright (C) 2008-2019 by Nicolas Piganeau and the TS2 TEAM
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

package server

import (
	"sync"
	"time"

	"github.com/ts2/ts2-interlock/simulation"
)

const defaultSnapshotWindow = 60 * time.Minute

// kpiSnapshot is one point-in-time rollup of the controller's rolling KPIs,
// per SPEC_FULL.md §4.6: ticks processed, advancements per tick, section
// utilization, passenger/freight admission mix, crossing-interlock
// refusals, chain-unblock count, and deadlock-tick count.
type kpiSnapshot struct {
	ts                  time.Time
	ticksProcessed      int
	advancementsPerTick float64
	sectionUtilization  float64
	passengerFreightMix float64 // passenger admissions as a percentage of all admissions
	crossingRefusals    int
	chainUnblocks       int
	deadlockTicks       int
}

type metricsState struct {
	mu sync.RWMutex

	ticksProcessed   int
	totalAdvances    int
	crossingRefusals int
	chainUnblocks    int
	deadlockTicks    int

	passengerAdmissions int
	freightAdmissions   int

	snapshots []kpiSnapshot
}

var metrics = &metricsState{}

// updateMetrics is registered as a simulation.Listener on every Controller
// the server builds; it accumulates the rolling counters that takeSnapshot
// later rolls up into a kpiSnapshot.
func updateMetrics(e *simulation.Event) {
	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	switch e.Name {
	case simulation.TrainAdmittedEvent:
		p, ok := e.Object.(*simulation.TrainAdmitted)
		if !ok {
			return
		}
		if p.Train.Classification == simulation.Passenger {
			metrics.passengerAdmissions++
		} else {
			metrics.freightAdmissions++
		}
	case simulation.CrossingRefusalEvent:
		metrics.crossingRefusals++
	case simulation.TickCommittedEvent:
		p, ok := e.Object.(*simulation.TickCommitted)
		if !ok {
			return
		}
		metrics.ticksProcessed++
		metrics.totalAdvances += p.Confirmed
		metrics.chainUnblocks += p.ChainUnblocked
		if p.Confirmed == 0 {
			metrics.deadlockTicks++
		}
	}
}

// takeSnapshot computes instantaneous section utilization against the
// current controller state and rolls the tick counters accumulated since the
// last snapshot into a new kpiSnapshot, then resets them. The passenger/freight
// mix covers every admission since the server started.
func takeSnapshot() {
	ctrlMu.Lock()
	occupied := 0
	if ctrl != nil {
		occupied = len(ctrl.Occupancy())
	}
	ctrlMu.Unlock()
	util := float64(occupied) * 100.0 / 11.0

	metrics.mu.Lock()
	defer metrics.mu.Unlock()

	avgAdvance := 0.0
	if metrics.ticksProcessed > 0 {
		avgAdvance = float64(metrics.totalAdvances) / float64(metrics.ticksProcessed)
	}
	mix := 0.0
	totalAdmissions := metrics.passengerAdmissions + metrics.freightAdmissions
	if totalAdmissions > 0 {
		mix = float64(metrics.passengerAdmissions) * 100.0 / float64(totalAdmissions)
	}

	snap := kpiSnapshot{
		ts:                  time.Now().UTC(),
		ticksProcessed:      metrics.ticksProcessed,
		advancementsPerTick: avgAdvance,
		sectionUtilization:  util,
		passengerFreightMix: mix,
		crossingRefusals:    metrics.crossingRefusals,
		chainUnblocks:       metrics.chainUnblocks,
		deadlockTicks:       metrics.deadlockTicks,
	}
	metrics.snapshots = append(metrics.snapshots, snap)
	if len(metrics.snapshots) > 1440 {
		metrics.snapshots = metrics.snapshots[len(metrics.snapshots)-1440:]
	}

	metrics.ticksProcessed = 0
	metrics.totalAdvances = 0
	metrics.crossingRefusals = 0
	metrics.chainUnblocks = 0
	metrics.deadlockTicks = 0
}

func startMetricsTicker() {
	go func() {
		ticker := time.NewTicker(defaultSnapshotWindow / 60)
		for range ticker.C {
			takeSnapshot()
		}
	}()
}

// aggregateKPIs sums the counts and averages the rates of every snapshot
// within rangeDur, and returns alongside it the trend: the newest tenth of
// all stored snapshots minus the tenth before it.
func aggregateKPIs(rangeDur time.Duration) (kpiSnapshot, kpiSnapshot) {
	metrics.mu.RLock()
	defer metrics.mu.RUnlock()
	if len(metrics.snapshots) == 0 {
		return kpiSnapshot{ts: time.Now().UTC()}, kpiSnapshot{}
	}
	cutoff := time.Now().UTC().Add(-rangeDur)
	var agg kpiSnapshot
	count := 0
	for _, s := range metrics.snapshots {
		if s.ts.Before(cutoff) {
			continue
		}
		agg.ticksProcessed += s.ticksProcessed
		agg.advancementsPerTick += s.advancementsPerTick
		agg.sectionUtilization += s.sectionUtilization
		agg.passengerFreightMix += s.passengerFreightMix
		agg.crossingRefusals += s.crossingRefusals
		agg.chainUnblocks += s.chainUnblocks
		agg.deadlockTicks += s.deadlockTicks
		count++
	}
	if count > 0 {
		agg.advancementsPerTick /= float64(count)
		agg.sectionUtilization /= float64(count)
		agg.passengerFreightMix /= float64(count)
	}

	if len(metrics.snapshots) < 10 {
		return agg, kpiSnapshot{}
	}
	n := len(metrics.snapshots)
	w := n / 10
	if w < 1 {
		w = 1
	}
	cur := averageSlice(metrics.snapshots[n-w:])
	prevStart := n - 2*w
	if prevStart < 0 {
		prevStart = 0
	}
	prev := averageSlice(metrics.snapshots[prevStart : n-w])
	trend := kpiSnapshot{
		advancementsPerTick: cur.advancementsPerTick - prev.advancementsPerTick,
		sectionUtilization:  cur.sectionUtilization - prev.sectionUtilization,
		crossingRefusals:    cur.crossingRefusals - prev.crossingRefusals,
		chainUnblocks:       cur.chainUnblocks - prev.chainUnblocks,
		deadlockTicks:       cur.deadlockTicks - prev.deadlockTicks,
	}
	return agg, trend
}

func averageSlice(ss []kpiSnapshot) kpiSnapshot {
	var a kpiSnapshot
	if len(ss) == 0 {
		return a
	}
	for _, s := range ss {
		a.ticksProcessed += s.ticksProcessed
		a.advancementsPerTick += s.advancementsPerTick
		a.sectionUtilization += s.sectionUtilization
		a.passengerFreightMix += s.passengerFreightMix
		a.crossingRefusals += s.crossingRefusals
		a.chainUnblocks += s.chainUnblocks
		a.deadlockTicks += s.deadlockTicks
	}
	a.advancementsPerTick /= float64(len(ss))
	a.sectionUtilization /= float64(len(ss))
	a.passengerFreightMix /= float64(len(ss))
	return a
}
