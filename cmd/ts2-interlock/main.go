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

// Command ts2-interlock runs the HTTP+WebSocket host harness for the
// eleven-section railway interlocking controller.
package main

import (
	"flag"
	"os"

	"github.com/ts2/ts2-interlock/server"
	log "gopkg.in/inconshreveable/log15.v2"
)

func main() {
	addr := flag.String("addr", server.DefaultAddr, "address to listen on")
	port := flag.String("port", server.DefaultPort, "port to listen on")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	lvl := log.LvlInfo
	if *verbose {
		lvl = log.LvlDebug
	}
	logger := log.New()
	logger.SetHandler(log.LvlFilterHandler(lvl, log.StreamHandler(os.Stdout, log.LogfmtFormat())))

	server.InitializeLogger(logger)
	server.Run(*addr, *port)
}
