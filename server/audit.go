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
	"strconv"
	"sync"
	"time"

	"github.com/rinmyo/uroj-go/fsm"
)

// AuditEntry is one audit log item sent to operator/viewer clients.
type AuditEntry struct {
	ID         string                 `json:"id"`
	Timestamp  string                 `json:"timestamp"`
	InstanceID string                 `json:"instanceId"`
	Event      string                 `json:"event"`
	Category   string                 `json:"category"`
	Severity   string                 `json:"severity"`
	Details    map[string]interface{} `json:"details"`
}

type auditState struct {
	mu          sync.RWMutex
	entries     []AuditEntry
	capacity    int
	nextID      int64
	subscribers map[chan AuditEntry]bool
}

var audits = &auditState{}

func init() {
	audits.capacity = 1000
	audits.entries = make([]AuditEntry, 0, audits.capacity)
	audits.subscribers = make(map[chan AuditEntry]bool)
}

func (a *auditState) append(entry AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nextID++
	entry.ID = strconv.FormatInt(a.nextID, 10)
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	if len(a.entries) == a.capacity {
		copy(a.entries[0:], a.entries[1:])
		a.entries[len(a.entries)-1] = entry
	} else {
		a.entries = append(a.entries, entry)
	}
	for ch := range a.subscribers {
		select {
		case ch <- entry:
		default:
		}
	}
}

func (a *auditState) subscribe() chan AuditEntry {
	ch := make(chan AuditEntry, 256)
	a.mu.Lock()
	a.subscribers[ch] = true
	a.mu.Unlock()
	return ch
}

func (a *auditState) unsubscribe(ch chan AuditEntry) {
	a.mu.Lock()
	delete(a.subscribers, ch)
	a.mu.Unlock()
	close(ch)
}

// getSince returns up to limit entries with ID strictly greater than sinceID.
func (a *auditState) getSince(sinceID int64, limit int) []AuditEntry {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]AuditEntry, 0, limit)
	for i := 0; i < len(a.entries); i++ {
		id, _ := strconv.ParseInt(a.entries[i].ID, 10, 64)
		if id > sinceID {
			out = append(out, a.entries[i])
			if len(out) >= limit {
				break
			}
		}
	}
	return out
}

// recordAuditFromFrame converts one instance frame into an audit entry.
// UpdateGlobalStatus frames are skipped: they are a full resync snapshot,
// not an event, and would otherwise flood the log on every subscribe.
func recordAuditFromFrame(instanceID string, f fsm.Frame) {
	entry := AuditEntry{
		InstanceID: instanceID,
		Severity:   "INFO",
		Details:    map[string]interface{}{},
	}
	switch data := f.Data.(type) {
	case fsm.UpdateSignal:
		entry.Event = "SIGNAL_ASPECT_CHANGED"
		entry.Category = "signal"
		entry.Details["signalId"] = data.ID
		entry.Details["state"] = data.State
	case fsm.UpdateNode:
		entry.Event = "NODE_STATE_CHANGED"
		entry.Category = "node"
		entry.Details["nodeId"] = data.ID
		entry.Details["state"] = data.State
	case fsm.MoveTrain:
		entry.Event = "TRAIN_MOVED"
		entry.Category = "train"
		entry.Details["trainId"] = data.ID
		entry.Details["nodeId"] = data.NodeID
		entry.Details["progress"] = data.Progress
		entry.Details["direction"] = data.Dir
	case fsm.UpdateQuestion:
		entry.Event = "QUESTION_GRADED"
		entry.Category = "exam"
		entry.Details["questionId"] = data.ID
		entry.Details["outcome"] = data.Outcome
	default:
		return
	}
	audits.append(entry)
}
