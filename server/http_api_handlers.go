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
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// GET /api/analytics/kpis?timeRange=1h|6h|1d|1w|1m
func serveKPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rangeParam := r.URL.Query().Get("timeRange")
	var dur time.Duration
	switch rangeParam {
	case "1h":
		dur = time.Hour
	case "6h":
		dur = 6 * time.Hour
	case "1d":
		dur = 24 * time.Hour
	case "1w":
		dur = 7 * 24 * time.Hour
	case "1m":
		dur = 30 * 24 * time.Hour
	default:
		rangeParam = "1d"
		dur = 24 * time.Hour
	}
	agg, trend := aggregateKPIs(dur)
	resp := map[string]interface{}{
		"timeRange": rangeParam,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"kpis": map[string]interface{}{
			"ticksProcessed":      agg.ticksProcessed,
			"advancementsPerTick": agg.advancementsPerTick,
			"sectionUtilization":  agg.sectionUtilization,
			"passengerFreightMix": agg.passengerFreightMix,
			"crossingRefusals":    agg.crossingRefusals,
			"chainUnblocks":       agg.chainUnblocks,
			"deadlockTicks":       agg.deadlockTicks,
		},
		"trends": map[string]interface{}{
			"advancementsPerTick": map[string]interface{}{"change": trend.advancementsPerTick, "direction": trendDirection(trend.advancementsPerTick)},
			"sectionUtilization": map[string]interface{}{"change": trend.sectionUtilization, "direction": trendDirection(trend.sectionUtilization)},
			"crossingRefusals":   map[string]interface{}{"change": float64(trend.crossingRefusals), "direction": trendDirection(-float64(trend.crossingRefusals))},
			"deadlockTicks":      map[string]interface{}{"change": float64(trend.deadlockTicks), "direction": trendDirection(-float64(trend.deadlockTicks))},
		},
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

func trendDirection(v float64) string {
	if v >= 0 {
		return "UP"
	}
	return "DOWN"
}

// GET /api/analytics/historical?metric=...
func serveKPIHistorical(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	metric := r.URL.Query().Get("metric")

	metrics.mu.RLock()
	snaps := append([]kpiSnapshot{}, metrics.snapshots...)
	metrics.mu.RUnlock()

	series := make([]map[string]interface{}, 0, len(snaps))
	for _, s := range snaps {
		var v float64
		switch metric {
		case "ticksProcessed":
			v = float64(s.ticksProcessed)
		case "utilization", "sectionUtilization":
			v = s.sectionUtilization
		case "crossingRefusals":
			v = float64(s.crossingRefusals)
		case "chainUnblocks":
			v = float64(s.chainUnblocks)
		case "deadlockTicks":
			v = float64(s.deadlockTicks)
		default:
			v = s.advancementsPerTick
		}
		series = append(series, map[string]interface{}{"t": s.ts.Format(time.RFC3339), "v": v})
	}
	resp := map[string]interface{}{"metric": metric, "series": series}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(resp)
}

// GET /api/audit/logs?sinceId=123&limit=200
func serveAuditLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	var sinceID int64
	if sp := q.Get("sinceId"); sp != "" {
		id, err := strconv.ParseInt(sp, 10, 64)
		if err != nil {
			http.Error(w, "Bad sinceId", http.StatusBadRequest)
			return
		}
		sinceID = id
	}
	limit := 200
	if lp := q.Get("limit"); lp != "" {
		if l, err := strconv.Atoi(lp); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}
	logs := audits.getSince(sinceID, limit)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"items": logs})
}

// GET /api/audit/stream (Server-Sent Events)
func serveAuditStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}
	ch := audits.subscribe()
	defer audits.unsubscribe(ch)

	_, _ = w.Write([]byte(":ok\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()
	enc := json.NewEncoder(w)
	for {
		select {
		case e, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("event: audit\ndata: "))
			_ = enc.Encode(e)
			_, _ = w.Write([]byte("\n"))
			flusher.Flush()
		case <-r.Context().Done():
			return
		case <-ticker.C:
			_, _ = w.Write([]byte(":hb\n\n"))
			flusher.Flush()
		}
	}
}
