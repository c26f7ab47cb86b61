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
	"fmt"

	"github.com/ts2/ts2-interlock/simulation"
)

// controllerObject is the "controller" hub object: admit, move, section,
// train, dump, reset.
type controllerObject struct{}

type admitParams struct {
	Identifier  string             `json:"identifier"`
	Entry       simulation.Section `json:"entry"`
	Destination simulation.Section `json:"destination"`
}

type moveParams struct {
	Candidates []string `json:"candidates"`
}

// dispatch processes requests made on the controller object
func (s *controllerObject) dispatch(h *Hub, req Request, conn *connection) {
	ch := conn.pushChan
	logger.Debug("Request for controller received", "submodule", "hub", "object", req.Object, "action", req.Action)
	switch req.Action {
	case "admit":
		var p admitParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("unparsable request: %s (%s)", err, req.Params))
			return
		}
		ctrlMu.Lock()
		err := ctrl.Admit(p.Identifier, p.Entry, p.Destination)
		ctrlMu.Unlock()
		if err != nil {
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewOkResponse(req.ID, "Train admitted successfully")
	case "move":
		var p moveParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("unparsable request: %s (%s)", err, req.Params))
			return
		}
		ctrlMu.Lock()
		n, err := ctrl.Move(p.Candidates...)
		ctrlMu.Unlock()
		if err != nil {
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewResponse(req.ID, RawJSON(n))
	case "section":
		var p struct {
			Section simulation.Section `json:"section"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("unparsable request: %s (%s)", err, req.Params))
			return
		}
		ctrlMu.Lock()
		occ, err := ctrl.Section(p.Section)
		ctrlMu.Unlock()
		if err != nil {
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewResponse(req.ID, RawJSON(occ))
	case "train":
		var p struct {
			Identifier string `json:"identifier"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			ch <- NewErrorResponse(req.ID, fmt.Errorf("unparsable request: %s (%s)", err, req.Params))
			return
		}
		ctrlMu.Lock()
		pos, err := ctrl.Train(p.Identifier)
		ctrlMu.Unlock()
		if err != nil {
			ch <- NewErrorResponse(req.ID, err)
			return
		}
		ch <- NewResponse(req.ID, RawJSON(pos))
	case "dump":
		ctrlMu.Lock()
		dump := dumpOccupancy()
		ctrlMu.Unlock()
		ch <- NewResponse(req.ID, RawJSON(dump))
	case "reset":
		ctrlMu.Lock()
		ctrl = newTopologyController()
		ctrlMu.Unlock()
		ch <- NewOkResponse(req.ID, "Controller reset successfully")
	default:
		ch <- NewErrorResponse(req.ID, fmt.Errorf("unknown action %s/%s", req.Object, req.Action))
		logger.Debug("Request for unknown action received", "submodule", "hub", "object", req.Object, "action", req.Action)
	}
}

var _ hubObject = new(controllerObject)

func init() {
	hub.objects["controller"] = new(controllerObject)
}
