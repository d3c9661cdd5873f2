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

// Package instance is the per-instance interlocking engine: it owns one
// station's Topology and FSM, serializes route construction/cancellation
// against them, drives trains, and broadcasts state-change frames to
// subscribers.
package instance

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "gopkg.in/inconshreveable/log15.v2"

	"github.com/rinmyo/uroj-go/exam"
	"github.com/rinmyo/uroj-go/fsm"
	"github.com/rinmyo/uroj-go/raw"
	"github.com/rinmyo/uroj-go/topo"
)

var logger log.Logger

// InitializeLogger binds package instance's logger to a parent so its
// records nest under the process root.
func InitializeLogger(parent log.Logger) {
	logger = parent.New("module", "instance")
}

func init() {
	logger = log.New("module", "instance")
}

// Status is an instance's lifecycle stage.
type Status string

const (
	Prestart Status = "PRESTART"
	Playing  Status = "PLAYING"
	Finished Status = "FINISHED"
)

// PathBtn identifies one end of a route-construction or route-cancellation
// command: a signal id or an independent-button id, together with the kind
// of button that was pressed.
type PathBtn struct {
	ID   string
	Kind raw.ButtonKind
}

// Config bundles construction-time parameters that do not come from the
// raw station document itself.
type Config struct {
	ID                     string
	Title                  string
	PlayerID               string
	Token                  string
	BeginAt                time.Time
	Station                *raw.Station
	Questions              []exam.Question
	BroadcastBufferSize    int
	SequentialReleaseSweep time.Duration
	ThreePointCheckDelay   time.Duration
}

// Engine is one instance's live interlocking engine.
type Engine struct {
	id       string
	title    string
	playerID string
	token    string
	beginAt  time.Time

	Station  *raw.Station
	Topology *topo.Topology
	FSM      *fsm.FSM
	Exam     *exam.Manager

	// guard serializes the route commands (create_route, cancel_route,
	// manually_unlock, fault_unlock) within this instance. Each command
	// holds it for its whole call, including the frames it broadcasts;
	// train-driver steps never take it.
	guard sync.Mutex

	trainsMu    sync.RWMutex
	trains      map[fsm.TrainID]*fsm.Train
	nextTrainID fsm.TrainID

	subsMu    sync.Mutex
	subs      map[int]chan fsm.Frame
	nextSubID int
	bufSize   int

	statusMu sync.Mutex
	status   Status

	sweepInterval   time.Duration
	threePointDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds an Engine from a raw station and resolves the cyclic node/
// signal id references in one pass over the signals list, picking each
// signal's direction from the R-graph (falling back to its DirHint when
// protect/toward are not R-adjacent) and writing the resolved signal id
// into the protected node's Left/RightSignalID.
func New(cfg Config) (*Engine, error) {
	top, err := topo.New(cfg.Station.Nodes, cfg.Station.Signals, cfg.Station.IndependentBtns)
	if err != nil {
		return nil, fmt.Errorf("instance: building topology: %w", err)
	}

	dirOf := func(s raw.Signal) raw.Direction {
		if d, ok := top.Direction(s.ProtectNodeID, s.TowardNodeID); ok {
			return d
		}
		if s.DirHint != nil {
			return *s.DirHint
		}
		return raw.Left
	}

	for _, s := range cfg.Station.Signals {
		if _, ok := top.Direction(s.ProtectNodeID, s.TowardNodeID); !ok && s.DirHint == nil {
			return nil, fmt.Errorf("instance: invalid signal %s: no direction and no dir hint", s.ID)
		}
	}

	f := fsm.New(cfg.Station.Nodes, cfg.Station.Signals, dirOf)

	ctx, cancel := context.WithCancel(context.Background())

	bufSize := cfg.BroadcastBufferSize
	if bufSize <= 0 {
		bufSize = 32
	}
	sweepInterval := cfg.SequentialReleaseSweep
	if sweepInterval <= 0 {
		sweepInterval = 500 * time.Millisecond
	}
	threePointDelay := cfg.ThreePointCheckDelay
	if threePointDelay <= 0 {
		threePointDelay = ThreePointCheckDelay
	}

	e := &Engine{
		id:              cfg.ID,
		title:           cfg.Title,
		playerID:        cfg.PlayerID,
		token:           cfg.Token,
		beginAt:         cfg.BeginAt,
		Station:         cfg.Station,
		Topology:        top,
		FSM:             f,
		Exam:            exam.NewManager(cfg.Questions),
		trains:          make(map[fsm.TrainID]*fsm.Train),
		subs:            make(map[int]chan fsm.Frame),
		bufSize:         bufSize,
		status:          Prestart,
		sweepInterval:   sweepInterval,
		threePointDelay: threePointDelay,
		ctx:             ctx,
		cancel:          cancel,
	}
	return e, nil
}

// ID returns the instance id.
func (e *Engine) ID() string { return e.id }

// Title returns the instance's display title.
func (e *Engine) Title() string { return e.title }

// PlayerID returns the operator this instance was created for.
func (e *Engine) PlayerID() string { return e.playerID }

// Token returns the instance's access token.
func (e *Engine) Token() string { return e.token }

// BeginAt returns the timestamp Run() will refuse to proceed before.
func (e *Engine) BeginAt() time.Time { return e.beginAt }

// Status returns the instance's lifecycle stage.
func (e *Engine) Status() Status {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	return e.status
}

// Run transitions Prestart -> Playing, rejecting a call before BeginAt or
// on an instance already running.
func (e *Engine) Run() error {
	if time.Now().Before(e.beginAt) {
		return fmt.Errorf("%w: instance not yet allowed to start", ErrPrecondition)
	}
	e.statusMu.Lock()
	defer e.statusMu.Unlock()
	if e.status != Prestart {
		return fmt.Errorf("%w: instance already running", ErrPrecondition)
	}
	e.status = Playing
	go e.SequentialReleaseSweep(e.sweepInterval)
	logger.Info("instance started", "id", e.id)
	return nil
}

// Stop transitions to Finished, cancelling every Train Driver task and
// closing every subscriber channel.
func (e *Engine) Stop() {
	e.statusMu.Lock()
	e.status = Finished
	e.statusMu.Unlock()

	e.cancel()

	e.subsMu.Lock()
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
	e.subsMu.Unlock()

	logger.Info("instance stopped", "id", e.id)
}

// Context returns the instance's lifetime context; Train Driver tasks
// select on its Done channel to observe Stop.
func (e *Engine) Context() context.Context { return e.ctx }

// Broadcast implements fsm.Sink: it fans a frame out to every subscriber,
// dropping it for any subscriber whose channel is full. Delivery is
// best-effort; a lagging client resyncs via global_status.
func (e *Engine) Broadcast(f fsm.Frame) {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()
	for id, ch := range e.subs {
		select {
		case ch <- f:
		default:
			logger.Debug("dropping frame for slow subscriber", "instance", e.id, "subscriber", id)
		}
	}
}

// Subscribe registers a new frame subscriber and returns its channel plus
// an unsubscribe function. The channel is closed when Stop is called.
func (e *Engine) Subscribe() (<-chan fsm.Frame, func()) {
	e.subsMu.Lock()
	id := e.nextSubID
	e.nextSubID++
	ch := make(chan fsm.Frame, e.bufSize)
	e.subs[id] = ch
	e.subsMu.Unlock()

	return ch, func() {
		e.subsMu.Lock()
		defer e.subsMu.Unlock()
		if existing, ok := e.subs[id]; ok {
			close(existing)
			delete(e.subs, id)
		}
	}
}

// GlobalStatus answers the global_status query: a full snapshot of every
// node and signal.
func (e *Engine) GlobalStatus() fsm.UpdateGlobalStatus {
	return e.FSM.Snapshot()
}
