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
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Request is one JSON-RPC-ish request frame sent by a WebSocket client:
// Object names the hub object ("controller" or "forecast"), Action names
// the operation on it, and Params carries the action's arguments verbatim.
type Request struct {
	ID     int64           `json:"id"`
	Object string          `json:"object"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params"`
}

// Response is the frame sent back for a Request of the same ID.
type Response struct {
	ID   int64           `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
	Msg  string          `json:"msg,omitempty"`
}

// NewResponse wraps already-marshaled data as a successful Response.
func NewResponse(id int64, data json.RawMessage) *Response {
	return &Response{ID: id, Data: data}
}

// NewOkResponse builds a successful Response carrying a plain text message.
func NewOkResponse(id int64, msg string) *Response {
	return &Response{ID: id, Msg: msg}
}

// NewErrorResponse builds a failed Response carrying err's message.
func NewErrorResponse(id int64, err error) *Response {
	return &Response{ID: id, Msg: err.Error()}
}

// RawJSON marshals v and panics on failure; callers only ever pass values
// known to be marshalable (ints, bools, small structs), mirroring the
// teacher's inline json.Marshal-then-ignore-error idiom but surfacing a
// programmer error loudly instead of silently dropping the response.
func RawJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// hubObject is one addressable object on the WebSocket hub. Each registered
// object owns one name in Hub.objects and receives every Request naming it.
type hubObject interface {
	dispatch(h *Hub, req Request, conn *connection)
}

// connection wraps one live WebSocket client: the raw socket, a buffered
// outbound channel drained by writePump, and the Hub it belongs to.
type connection struct {
	ws       *websocket.Conn
	pushChan chan *Response
	hub      *Hub
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

func (c *connection) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.ws.Close()
	}()
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var req Request
		if err := json.Unmarshal(message, &req); err != nil {
			c.pushChan <- NewErrorResponse(0, err)
			continue
		}
		c.hub.requests <- hubRequest{req: req, conn: c}
	}
}

func (c *connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case resp, ok := <-c.pushChan:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteJSON(resp); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// hubRequest pairs an inbound Request with the connection it arrived on, so
// the dispatch loop can route the Response back to its origin.
type hubRequest struct {
	req  Request
	conn *connection
}

// Hub is the single WebSocket broadcast/dispatch point for the server: it
// owns the registry of named hubObjects (controller, forecast) and
// serializes every inbound Request through one goroutine.
type Hub struct {
	objects    map[string]hubObject
	requests   chan hubRequest
	register   chan *connection
	unregister chan *connection
}

func newHub() *Hub {
	return &Hub{
		objects:    make(map[string]hubObject),
		requests:   make(chan hubRequest),
		register:   make(chan *connection),
		unregister: make(chan *connection),
	}
}

// run is the hub's single dispatch goroutine. It signals readiness on up,
// then services connection lifecycle and request dispatch forever.
func (h *Hub) run(up chan bool) {
	up <- true
	for {
		select {
		case c := <-h.register:
			_ = c
		case c := <-h.unregister:
			close(c.pushChan)
		case hr := <-h.requests:
			obj, ok := h.objects[hr.req.Object]
			if !ok {
				hr.conn.pushChan <- NewErrorResponse(hr.req.ID, fmt.Errorf("unknown object %s", hr.req.Object))
				continue
			}
			obj.dispatch(h, hr.req, hr.conn)
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveWs upgrades an HTTP connection to a WebSocket and pumps it against
// the global hub.
func serveWs(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("WebSocket upgrade failed", "submodule", "hub", "error", err)
		return
	}
	conn := &connection{ws: ws, pushChan: make(chan *Response, 256), hub: hub}
	hub.register <- conn
	go conn.writePump()
	conn.readPump()
}
