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

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Request is one command sent by a client connection. Object/Action name
// the hubObject and its operation; Params is the operation's raw JSON
// argument payload, decoded by the object itself.
type Request struct {
	ID     string          `json:"id"`
	Object string          `json:"object"`
	Action string          `json:"action"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response is one reply (or unsolicited push) sent back to a client
// connection, correlated to a Request by ID when it is a reply.
type Response struct {
	ID     string          `json:"id,omitempty"`
	Object string          `json:"object,omitempty"`
	Ok     bool            `json:"ok"`
	Msg    string          `json:"msg,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// RawJSON wraps bytes that are already valid JSON, so NewResponse can embed
// them as Data without a decode/re-encode round trip.
type RawJSON []byte

// NewOkResponse builds a successful Response carrying only a message, for
// commands whose result is "it worked" rather than a data payload.
func NewOkResponse(id string, msg string) Response {
	return Response{ID: id, Ok: true, Msg: msg}
}

// NewErrorResponse builds a failed Response carrying err's message.
func NewErrorResponse(id string, err error) Response {
	return Response{ID: id, Ok: false, Error: err.Error()}
}

// NewResponse builds a successful Response carrying a data payload. data may
// be a Go value (marshaled here) or a RawJSON already holding valid JSON.
func NewResponse(id string, data interface{}) Response {
	switch v := data.(type) {
	case RawJSON:
		return Response{ID: id, Ok: true, Data: json.RawMessage(v)}
	case json.RawMessage:
		return Response{ID: id, Ok: true, Data: v}
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return NewErrorResponse(id, fmt.Errorf("internal error: %s", err))
		}
		return Response{ID: id, Ok: true, Data: b}
	}
}

// NewPush builds an unsolicited Response (no correlated request id) carrying
// a data payload, tagged with object so the client can route it without a
// round-trip id — used for game_update frame streaming.
func NewPush(object string, data interface{}) Response {
	resp := NewResponse("", data)
	resp.Object = object
	return resp
}

// hubObject handles the actions available under one Request.Object name.
type hubObject interface {
	dispatch(h *Hub, req Request, conn *connection)
}

// connection wraps one client's websocket.Conn with a buffered outbound
// queue, so a dispatch handler never blocks on a slow client.
type connection struct {
	ws       *websocket.Conn
	pushChan chan Response
	hub      *Hub
}

func (c *connection) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.ws.Close()
	}()
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		var req Request
		if err := c.ws.ReadJSON(&req); err != nil {
			break
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

// hubRequest pairs an incoming Request with the connection it arrived on,
// so the hub's run loop can dispatch it without readPump blocking on the
// handler.
type hubRequest struct {
	req  Request
	conn *connection
}

// hub is the process's single Hub, created before any file's init registers
// its objects into it.
var hub = newHub()

// Hub owns the set of live client connections and the registry of
// dispatchable objects. One Hub per process.
type Hub struct {
	objects      map[string]hubObject
	connections  map[*connection]bool
	register     chan *connection
	unregister   chan *connection
	requests     chan hubRequest
	onDisconnect []func(*connection)
}

func newHub() *Hub {
	return &Hub{
		objects:     make(map[string]hubObject),
		connections: make(map[*connection]bool),
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		requests:    make(chan hubRequest),
	}
}

// addDisconnectHook registers a function to be called, in the hub's run
// loop, whenever a connection is unregistered — used by the instance object
// to tear down a connection's game_update subscription goroutine.
func (h *Hub) addDisconnectHook(fn func(*connection)) {
	h.onDisconnect = append(h.onDisconnect, fn)
}

// run is the Hub's single-goroutine event loop. hubUp is closed once the
// loop has entered its select, signaling Run that the hub accepted startup.
func (h *Hub) run(hubUp chan bool) {
	close(hubUp)
	for {
		select {
		case c := <-h.register:
			h.connections[c] = true
		case c := <-h.unregister:
			if _, ok := h.connections[c]; ok {
				delete(h.connections, c)
				for _, fn := range h.onDisconnect {
					fn(c)
				}
				close(c.pushChan)
			}
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

// broadcast pushes resp to every connected client, dropping it for any
// client whose outbound queue is full.
func (h *Hub) broadcast(resp Response) {
	for c := range h.connections {
		select {
		case c.pushChan <- resp:
		default:
			logger.Debug("dropping push for slow connection", "submodule", "hub")
		}
	}
}

// serveWs upgrades a HTTP request to a websocket connection and starts its
// read/write pumps.
func serveWs(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "submodule", "http", "error", err)
		return
	}
	c := &connection{ws: ws, pushChan: make(chan Response, 256), hub: hub}
	hub.register <- c
	go c.writePump()
	c.readPump()
}
