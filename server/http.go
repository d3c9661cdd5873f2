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
	"os"
	"time"

	log "gopkg.in/inconshreveable/log15.v2"
)

const (
	DefaultAddr       string = "0.0.0.0"
	DefaultPort       string = "22222"
	MaxHubStartupTime        = 3 * time.Second
)

var logger log.Logger

// InitializeLogger creates the logger for the server module
func InitializeLogger(parentLogger log.Logger) {
	logger = parentLogger.New("module", "server")
}

// Run starts the websocket hub and HTTP server on the given address and
// port. The process starts with an empty instance pool (package-level
// `instances`) and populates it via the "instance" object's create/load
// actions as operators spin up interlocking sessions.
func Run(addr, port string) {
	logger.Info("Starting server")
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
//    / - A lightweight status page.
//
//    /ws - WebSocket endpoint for every operator and viewer client.
//
//    /metrics - Prometheus scrape endpoint.
func HttpdStart(addr, port string) {
	http.HandleFunc("/", serveHome)
	http.HandleFunc("/ws", serveWs)
	installMetricsEndpoint()

	serverAddress := fmt.Sprintf("%s:%s", addr, port)
	logger.Info("Starting HTTP", "submodule", "http", "address", serverAddress)
	err := http.ListenAndServe(serverAddress, nil)
	logger.Crit("HTTP crashed", "submodule", "http", "error", err)
}

// serveHome reports the server's liveness and the number of live instances.
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
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	data, _ := json.Marshal(struct {
		Status    string `json:"status"`
		Instances int    `json:"instances"`
	}{"ok", instances.Len()})
	w.Write(data)
}
