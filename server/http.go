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
	"fmt"
	"html/template"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/ts2/ts2-interlock/simulation"
	log "gopkg.in/inconshreveable/log15.v2"
)

const (
	DefaultAddr       string = "0.0.0.0"
	DefaultPort       string = "22222"
	MaxHubStartupTime        = 3 * time.Second
)

var (
	// ctrl is the single interlocking instance the whole server package
	// drives. simulation.Controller itself is unsynchronized (spec.md §5);
	// ctrlMu is the host-side mutex that serializes concurrent HTTP/WS
	// callers into it, per SPEC_FULL.md §5.
	ctrl   *simulation.Controller
	ctrlMu sync.Mutex

	hub    = newHub()
	logger log.Logger
)

// newTopologyController builds a fresh Controller over the empty, fixed
// eleven-section network and wires it into the audit log and metrics. This
// is the only "initial state" this controller ever has: there is no
// persisted snapshot to roll back to, per spec.md's no-persistence scope.
func newTopologyController() *simulation.Controller {
	c := simulation.NewController()
	c.AddListener(recordAuditFromEvent)
	c.AddListener(updateMetrics)
	return c
}

// dumpOccupancy returns a plain, JSON-friendly view of every occupied
// section for the controller hub's "dump" action.
func dumpOccupancy() map[string]string {
	out := make(map[string]string)
	for s, id := range ctrl.Occupancy() {
		out[s.String()] = id
	}
	return out
}

// InitializeLogger creates the logger for the server module
func InitializeLogger(parentLogger log.Logger) {
	logger = parentLogger.New("module", "server")
}

// Run starts the HTTP+WebSocket server over a fresh topology controller.
func Run(addr, port string) {
	logger.Info("Starting server")
	ctrl = newTopologyController()
	startMetricsTicker()
	hubUp := make(chan bool)
	timer := time.After(MaxHubStartupTime)
	go hub.run(hubUp)
	select {
	case <-hubUp:
		HttpdStart(addr, port)
		os.Exit(1)
	case <-timer:
		log.Crit("Hub did not start")
		os.Exit(1)
	}
}

// HttpdStart starts the server which serves on the following routes:
//
//    / - a status page describing the running controller and a WebSocket
//        client for interactive use.
//
//    /ws - WebSocket endpoint dispatching the "controller" and "forecast"
//          hub objects.
func HttpdStart(addr, port string) {
	homeTempl = template.Must(template.New("home").Parse(homePageTemplate))

	http.HandleFunc("/", serveHome)
	http.HandleFunc("/ws", serveWs)
	installHTTPAPI()

	serverAddress := fmt.Sprintf("%s:%s", addr, port)
	logger.Info("Starting HTTP", "submodule", "http", "address", serverAddress)
	err := http.ListenAndServe(serverAddress, nil)
	logger.Crit("HTTP crashed", "submodule", "http", "error", err)
}

// serveHome serves a small status page describing the running controller,
// with a WebSocket client endpoint for interactive use.
func serveHome(w http.ResponseWriter, r *http.Request) {
	logger.Debug("New HTTP connection", "submodule", "http", "remote", r.RemoteAddr)
	if r.URL.Path != "/" {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if r.Method != "GET" {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Title string
		Host  string
	}{
		"ts2-interlock",
		"ws://" + r.Host + "/ws",
	}
	homeTempl.Execute(w, data)
}

var homeTempl *template.Template

const homePageTemplate = `<!DOCTYPE html>
<html>
<head><title>{{.Title}}</title></head>
<body>
<h1>{{.Title}}</h1>
<p>Railway interlocking controller over eleven fixed sections.</p>
<p>WebSocket endpoint: <code>{{.Host}}</code></p>
<ul>
<li><code>GET /api/sections</code> &mdash; full occupancy snapshot</li>
<li><code>GET /api/sections/{n}</code> &mdash; single-section occupant</li>
<li><code>POST /api/trains</code> &mdash; admit a train</li>
<li><code>GET /api/trains/{id}</code> &mdash; train position</li>
<li><code>POST /api/tick</code> &mdash; move nominated trains</li>
<li><code>GET /api/forecast?candidates=a,b,c</code> &mdash; dry-run preview</li>
<li><code>GET /api/analytics/kpis</code>, <code>GET /api/analytics/historical</code></li>
<li><code>GET /api/audit/logs</code>, <code>GET /api/audit/stream</code></li>
</ul>
</body>
</html>
`
