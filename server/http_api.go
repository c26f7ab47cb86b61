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

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/ts2/ts2-interlock/simulation"
)

// writeError maps a simulation.Error's two-tag taxonomy to an HTTP status:
// argument errors are caller mistakes (400), except unknown-train which is
// a 404, and state errors are 409 conflicts, per SPEC_FULL.md §7.
func writeError(w http.ResponseWriter, err error) {
	se, ok := err.(*simulation.Error)
	if !ok {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	logger.Debug("Request refused", "submodule", "http", "code", se.Code, "kind", se.Kind)
	switch {
	case se.Kind == simulation.StateError:
		http.Error(w, se.Error(), http.StatusConflict)
	case se.Code == "unknown-train":
		http.Error(w, se.Error(), http.StatusNotFound)
	default:
		http.Error(w, se.Error(), http.StatusBadRequest)
	}
}

// POST /api/trains {"identifier": "...", "entry": n, "destination": n}
func serveTrainAdmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Identifier  string             `json:"identifier"`
		Entry       simulation.Section `json:"entry"`
		Destination simulation.Section `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	ctrlMu.Lock()
	err := ctrl.Admit(body.Identifier, body.Entry, body.Destination)
	ctrlMu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}

// GET /api/trains/{id}
func serveTrainPosition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/trains/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	ctrlMu.Lock()
	pos, err := ctrl.Train(id)
	ctrlMu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"identifier": id,
		"section":    int(pos),
		"present":    pos != simulation.TrainAbsent,
	})
}

// GET /api/sections
func serveSectionsSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctrlMu.Lock()
	occ := ctrl.Occupancy()
	ctrlMu.Unlock()
	sections := make(map[string]string)
	for s := simulation.Section(1); s <= 11; s++ {
		sections[s.String()] = occ[s]
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"sections": sections})
}

// GET /api/sections/{n}
func serveSectionOccupant(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/sections/")
	n, err := strconv.Atoi(raw)
	if err != nil {
		http.Error(w, "invalid-section: not a number", http.StatusBadRequest)
		return
	}
	ctrlMu.Lock()
	occ, err := ctrl.Section(simulation.Section(n))
	ctrlMu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"section": n, "occupant": occ})
}

// POST /api/tick ["id1", "id2", ...]
func serveTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var candidates []string
	if err := json.NewDecoder(r.Body).Decode(&candidates); err != nil {
		http.Error(w, "Bad request", http.StatusBadRequest)
		return
	}
	ctrlMu.Lock()
	n, err := ctrl.Move(candidates...)
	ctrlMu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"advanced": n})
}

// GET /api/forecast?candidates=a,b,c
func serveForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw := r.URL.Query().Get("candidates")
	var candidates []string
	if raw != "" {
		candidates = strings.Split(raw, ",")
	}
	ctrlMu.Lock()
	intents, err := ctrl.Forecast(candidates...)
	ctrlMu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"intents": intents})
}

// POST /api/simulation/restart
func serveControllerRestart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctrlMu.Lock()
	ctrl = newTopologyController()
	ctrlMu.Unlock()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write([]byte(`{"status":"OK"}`))
}

func installHTTPAPI() {
	http.HandleFunc("/api/trains", serveTrainAdmit)
	http.HandleFunc("/api/trains/", serveTrainPosition)
	http.HandleFunc("/api/sections", serveSectionsSnapshot)
	http.HandleFunc("/api/sections/", serveSectionOccupant)
	http.HandleFunc("/api/tick", serveTick)
	http.HandleFunc("/api/forecast", serveForecast)
	http.HandleFunc("/api/analytics/kpis", serveKPI)
	http.HandleFunc("/api/analytics/historical", serveKPIHistorical)
	http.HandleFunc("/api/simulation/restart", serveControllerRestart)
	http.HandleFunc("/api/audit/logs", serveAuditLogs)
	http.HandleFunc("/api/audit/stream", serveAuditStream)
}
