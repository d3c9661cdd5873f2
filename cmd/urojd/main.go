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

// Command urojd is the interlocking server process: it parses the process
// configuration, wires every package's logger to a common root, and serves
// the websocket command surface plus the Prometheus scrape endpoint.
package main

import (
	"fmt"
	"os"

	log "gopkg.in/inconshreveable/log15.v2"

	"github.com/rinmyo/uroj-go/instance"
	"github.com/rinmyo/uroj-go/pool"
	"github.com/rinmyo/uroj-go/server"

	"github.com/rinmyo/uroj-go/config"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	root := log.New()
	root.SetHandler(log.StreamHandler(os.Stdout, log.LogfmtFormat()))

	instance.InitializeLogger(root)
	pool.InitializeLogger(root)
	server.InitializeLogger(root)

	server.SetEngineDefaults(cfg)
	server.Run(cfg.Addr, cfg.Port)
}
