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

// Package pool is the process-wide instance pool: a guarded mapping from
// instance id to Instance Engine.
package pool

import (
	"fmt"
	"sync"

	log "gopkg.in/inconshreveable/log15.v2"

	"github.com/rinmyo/uroj-go/instance"
)

var logger log.Logger

func init() {
	logger = log.New("module", "pool")
}

// InitializeLogger binds package pool's logger to a parent.
func InitializeLogger(parent log.Logger) {
	logger = parent.New("module", "pool")
}

// Pool guards a map from instance id to Engine. Its own guard is held only
// long enough to read or mutate the map itself; it is released before any
// dispatch into an instance, since instances own their own guards.
type Pool struct {
	mu        sync.RWMutex
	instances map[string]*instance.Engine
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{instances: make(map[string]*instance.Engine)}
}

// Insert adds e to the pool under its own id, replacing any engine
// previously registered under that id.
func (p *Pool) Insert(e *instance.Engine) {
	p.mu.Lock()
	p.instances[e.ID()] = e
	p.mu.Unlock()
	logger.Info("instance registered", "id", e.ID())
}

// Get returns the engine for id, and whether it was found. The pool's guard
// is released before this returns; the caller dispatches into the engine
// without the pool lock held.
func (p *Pool) Get(id string) (*instance.Engine, bool) {
	p.mu.RLock()
	e, ok := p.instances[id]
	p.mu.RUnlock()
	return e, ok
}

// MustGet is Get plus a not-found error, for command handlers that always
// need one or the other.
func (p *Pool) MustGet(id string) (*instance.Engine, error) {
	e, ok := p.Get(id)
	if !ok {
		return nil, fmt.Errorf("pool: unknown instance %s", id)
	}
	return e, nil
}

// Remove drops id from the pool, then stops its engine once the pool's
// guard has been released.
func (p *Pool) Remove(id string) {
	p.mu.Lock()
	e, ok := p.instances[id]
	delete(p.instances, id)
	p.mu.Unlock()

	if ok {
		e.Stop()
		logger.Info("instance removed", "id", id)
	}
}

// Contains reports whether id is currently registered.
func (p *Pool) Contains(id string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.instances[id]
	return ok
}

// Len returns the number of live instances, used by ambient metrics.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.instances)
}

// TotalTrains sums the live train count across every instance in the pool,
// feeding the ambient train-task gauge.
func (p *Pool) TotalTrains() int {
	p.mu.RLock()
	engines := make([]*instance.Engine, 0, len(p.instances))
	for _, e := range p.instances {
		engines = append(engines, e)
	}
	p.mu.RUnlock()

	total := 0
	for _, e := range engines {
		total += e.TrainCount()
	}
	return total
}
