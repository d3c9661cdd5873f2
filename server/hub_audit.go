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
	"strconv"
	"sync"
)

// auditObject exposes the audit ring buffer (server/audit.go) as a hub
// query/subscription surface, independent of any one instance: "since"
// replays the backlog past a client-known id, "subscribe" streams new
// entries as audit_update pushes.
type auditObject struct {
	mu   sync.Mutex
	subs map[*connection]chan AuditEntry
}

func (o *auditObject) dispatch(h *Hub, req Request, conn *connection) {
	ch := conn.pushChan

	switch req.Action {
	case "since":
		var p struct {
			SinceID string `json:"sinceId"`
			Limit   int    `json:"limit"`
		}
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &p); err != nil {
				ch <- NewErrorResponse(req.ID, fmt.Errorf("unparsable request: %s (%s)", err, req.Params))
				return
			}
		}
		sinceID, _ := strconv.ParseInt(p.SinceID, 10, 64)
		limit := p.Limit
		if limit <= 0 {
			limit = 200
		}
		ch <- NewResponse(req.ID, audits.getSince(sinceID, limit))

	case "subscribe":
		sub := audits.subscribe()
		o.mu.Lock()
		if o.subs == nil {
			o.subs = make(map[*connection]chan AuditEntry)
		}
		o.subs[conn] = sub
		o.mu.Unlock()
		go func() {
			for entry := range sub {
				select {
				case ch <- NewPush("audit_update", entry):
				default:
				}
			}
		}()
		ch <- NewOkResponse(req.ID, "subscribed")

	default:
		ch <- NewErrorResponse(req.ID, fmt.Errorf("unknown action %s/%s", req.Object, req.Action))
	}
}

func (o *auditObject) onDisconnect(conn *connection) {
	o.mu.Lock()
	sub, ok := o.subs[conn]
	if ok {
		delete(o.subs, conn)
	}
	o.mu.Unlock()
	if ok {
		audits.unsubscribe(sub)
	}
}

var _ hubObject = new(auditObject)

func init() {
	obj := new(auditObject)
	hub.objects["audit_log"] = obj
	hub.addDisconnectHook(obj.onDisconnect)
}
