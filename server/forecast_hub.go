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
	"fmt"
)

// forecastObject is the "forecast" hub object: a read-only preview of what
// the next Move(candidates) would do, without committing it.
type forecastObject struct{}

// dispatch processes requests on the forecast object
func (s *forecastObject) dispatch(h *Hub, req Request, conn *connection) {
	ch := conn.pushChan
	switch req.Action {
	case "preview":
		var p struct {
			Candidates []string `json:"candidates"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("unparsable request: %s (%s)", err, req.Params))
			return
		}
		ctrlMu.Lock()
		intents, err := ctrl.Forecast(p.Candidates...)
		ctrlMu.Unlock()
		if err != nil {
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		data, err := json.Marshal(intents)
		if err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("internal error: %s", err))
			return
		}
		ch <- NewResponse(req.ID, data)
	case "recompute":
		// Forecast has no cache to invalidate; kept for dispatch parity.
		ch <- NewOkResponse(req.ID, "Recomputed")
	default:
		ch <- NewErrorResponse(req.ID, fmt.Errorf("unknown action %s/%s", req.Object, req.Action))
		logger.Debug("Request for unknown action received", "submodule", "hub", "object", req.Object, "action", req.Action)
	}
}

var _ hubObject = new(forecastObject)

func init() {
	hub.objects["forecast"] = new(forecastObject)
}
