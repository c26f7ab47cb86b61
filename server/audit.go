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
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ts2/ts2-interlock/simulation"
)

// AuditEntry represents a single audit log item sent to clients.
type AuditEntry struct {
	ID        string                 `json:"id"`
	Timestamp string                 `json:"timestamp"`
	Event     string                 `json:"event"`
	Category  string                 `json:"category"`
	Severity  string                 `json:"severity"`
	Object    map[string]interface{} `json:"object"`
	Details   map[string]interface{} `json:"details"`
}

type auditState struct {
	mu          sync.RWMutex
	entries     []AuditEntry
	capacity    int
	nextID      int64
	subscribers map[chan AuditEntry]bool
}

var audits = &auditState{}

func init() {
	audits.capacity = 1000
	audits.entries = make([]AuditEntry, 0, audits.capacity)
	audits.subscribers = make(map[chan AuditEntry]bool)
}

func (a *auditState) append(entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	entry.ID = strconv.FormatInt(a.nextID, 10)
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if len(a.entries) == a.capacity {
		copy(a.entries[0:], a.entries[1:])
		a.entries[len(a.entries)-1] = entry
	} else {
		a.entries = append(a.entries, entry)
	}
	for ch := range a.subscribers {
		select {
		case ch <- entry:
		default:
			// drop if subscriber is slow
		}
	}
}

func (a *auditState) subscribe() chan AuditEntry {
	ch := make(chan AuditEntry, 256)
	a.mu.Lock()
	a.subscribers[ch] = true
	a.mu.Unlock()
	return ch
}

func (a *auditState) unsubscribe(ch chan AuditEntry) {
	a.mu.Lock()
	delete(a.subscribers, ch)
	a.mu.Unlock()
	close(ch)
}

// getSince returns up to limit entries with ID strictly greater than sinceID
func (a *auditState) getSince(sinceID int64, limit int) []AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]AuditEntry, 0, limit)
	for i := 0; i < len(a.entries); i++ {
		id, _ := strconv.ParseInt(a.entries[i].ID, 10, 64)
		if id > sinceID {
			out = append(out, a.entries[i])
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// recordAuditFromEvent converts a simulation.Event to an AuditEntry and
// appends it. It is registered as a simulation.Listener on every Controller
// the server builds.
func recordAuditFromEvent(e *simulation.Event) {
	if e == nil {
		return
	}
	entry := AuditEntry{
		Severity: "INFO",
		Object:   map[string]interface{}{},
		Details:  map[string]interface{}{},
	}
	switch e.Name {
	case simulation.TrainAdmittedEvent:
		entry.Event = "TRAIN_ADMITTED"
		entry.Category = "train"
		if p, ok := e.Object.(*simulation.TrainAdmitted); ok {
			entry.Object["id"] = p.Train.ID
			entry.Details["entry"] = int(p.Train.Path[0])
			entry.Details["destination"] = int(p.Train.Destination)
			entry.Details["classification"] = p.Train.Classification.String()
		}
	case simulation.TrainAdvancedEvent:
		entry.Event = "TRAIN_ADVANCED"
		entry.Category = "train"
		if p, ok := e.Object.(*simulation.TrainAdvanced); ok {
			entry.Object["id"] = p.Train.ID
			entry.Details["from"] = int(p.From)
			entry.Details["to"] = int(p.To)
		}
	case simulation.TrainExitedEvent:
		entry.Event = "TRAIN_EXITED"
		entry.Category = "train"
		if p, ok := e.Object.(*simulation.TrainExited); ok {
			entry.Object["id"] = p.Train.ID
			entry.Details["from"] = int(p.From)
		}
	case simulation.CrossingRefusalEvent:
		entry.Event = "CROSSING_REFUSAL"
		entry.Category = "interlock"
		entry.Severity = "WARN"
		if p, ok := e.Object.(*simulation.CrossingRefusal); ok {
			entry.Object["id"] = p.Train.ID
		}
	case simulation.TickRefusedEvent:
		entry.Event = "TICK_REFUSED"
		entry.Category = "tick"
		entry.Severity = "WARN"
		if p, ok := e.Object.(*simulation.TickRefused); ok {
			entry.Details["candidates"] = strings.Join(p.Candidates, ",")
		}
	case simulation.TickCommittedEvent:
		entry.Event = "TICK_COMMITTED"
		entry.Category = "tick"
		if p, ok := e.Object.(*simulation.TickCommitted); ok {
			entry.Details["candidates"] = strings.Join(p.Candidates, ",")
			entry.Details["confirmed"] = p.Confirmed
			entry.Details["chainUnblocked"] = p.ChainUnblocked
		}
	default:
		entry.Event = strings.ToUpper(string(e.Name))
		entry.Category = "system"
	}
	audits.append(entry)
}
