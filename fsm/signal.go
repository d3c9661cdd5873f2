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

package fsm

import (
	"sync"

	"github.com/rinmyo/uroj-go/raw"
)

// SignalStatus is a signal's displayed aspect.
type SignalStatus string

const (
	AspectL   SignalStatus = "L"
	AspectU   SignalStatus = "U"
	AspectH   SignalStatus = "H"
	AspectB   SignalStatus = "B"
	AspectA   SignalStatus = "A"
	AspectUU  SignalStatus = "UU"
	AspectLU  SignalStatus = "LU"
	AspectLL  SignalStatus = "LL"
	AspectUS  SignalStatus = "US"
	AspectHB  SignalStatus = "HB"
	AspectOFF SignalStatus = "OFF"
)

// allowedAspects is the "trains may enter" set.
var allowedAspects = map[SignalStatus]bool{
	AspectL:  true,
	AspectU:  true,
	AspectB:  true,
	AspectUU: true,
	AspectLU: true,
	AspectLL: true,
	AspectUS: true,
	AspectHB: true,
}

// FilamentStatus is the physical state of one lamp element.
type FilamentStatus string

const (
	FilamentNormal FilamentStatus = "NORMAL"
	FilamentFused  FilamentStatus = "FUSED"
	FilamentNone   FilamentStatus = "NONE"
)

// Signal is one wayside signal's mutable state machine, guarded by its own
// mutex.
type Signal struct {
	mu sync.Mutex

	id            string
	kind          raw.SignalKind
	protectNodeID raw.NodeID
	towardNodeID  raw.NodeID
	dir           raw.Direction

	state     SignalStatus
	filaments [2]FilamentStatus // (·, None) for ShuntingSignal; else both present
}

// NewSignal creates a Signal state machine from its raw description and its
// resolved direction (computed at instance construction from topology or
// the raw signal's direction hint — see instance.New).
func NewSignal(s raw.Signal, dir raw.Direction) *Signal {
	filaments := [2]FilamentStatus{FilamentNormal, FilamentNormal}
	state := AspectH
	if s.Kind == raw.ShuntingSignal {
		filaments[1] = FilamentNone
		state = AspectA
	}
	return &Signal{
		id:            s.ID,
		kind:          s.Kind,
		protectNodeID: s.ProtectNodeID,
		towardNodeID:  s.TowardNodeID,
		dir:           dir,
		state:         state,
		filaments:     filaments,
	}
}

// ID returns the signal's stable identifier.
func (s *Signal) ID() string { return s.id }

// Kind returns the signal kind.
func (s *Signal) Kind() raw.SignalKind { return s.kind }

// ProtectNodeID returns the node this signal protects (forbids entry to
// until an appropriate route is set).
func (s *Signal) ProtectNodeID() raw.NodeID { return s.protectNodeID }

// TowardNodeID returns the node this signal faces on its approach side.
func (s *Signal) TowardNodeID() raw.NodeID { return s.towardNodeID }

// Direction returns the signal's resolved geographical direction.
func (s *Signal) Direction() raw.Direction { return s.dir }

// State returns the signal's current aspect.
func (s *Signal) State() SignalStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsAllowed reports whether the current aspect permits entry.
func (s *Signal) IsAllowed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return allowedAspects[s.state]
}

func (s *Signal) setState(sink Sink, state SignalStatus) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	sink.Broadcast(Frame{Kind: FrameUpdateSignal, Data: UpdateSignal{ID: s.id, State: state}})
}

// Protect reverts the signal to its protecting ("stop") aspect: H for
// HomeSignal and StartingSignal, A for ShuntingSignal.
func (s *Signal) Protect(sink Sink) {
	var st SignalStatus
	switch s.kind {
	case raw.HomeSignal, raw.StartingSignal:
		st = AspectH
	case raw.ShuntingSignal:
		st = AspectA
	default:
		st = AspectH
	}
	s.setState(sink, st)
}

// OpenRecv opens a receive route, choosing the aspect from the goal node's
// kind. A Normal goal kind is a no-op.
func (s *Signal) OpenRecv(sink Sink, goalKind raw.NodeKind) {
	var st SignalStatus
	switch goalKind {
	case raw.Mainline:
		st = AspectU
	case raw.Siding:
		st = AspectUU
	case raw.Siding18:
		st = AspectUS
	case raw.Normal:
		return
	default:
		return
	}
	s.setState(sink, st)
}

// OpenSend opens a send route to aspect L.
func (s *Signal) OpenSend(sink Sink) {
	s.setState(sink, AspectL)
}

// OpenPass opens a pass-through route to aspect L.
func (s *Signal) OpenPass(sink Sink) {
	s.setState(sink, AspectL)
}

// OpenShnt opens a shunt route to aspect B.
func (s *Signal) OpenShnt(sink Sink) {
	s.setState(sink, AspectB)
}

// SetFilament mutates one lamp element's physical status (a ShuntingSignal
// carries one real element, other kinds two). This is an FSM primitive for
// fault reporting; it does not by itself change the displayed aspect.
func (s *Signal) SetFilament(side int, status FilamentStatus) {
	if side != 0 && side != 1 {
		return
	}
	s.mu.Lock()
	s.filaments[side] = status
	s.mu.Unlock()
}

// Filaments returns a copy of the signal's two lamp-element statuses.
func (s *Signal) Filaments() [2]FilamentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filaments
}

func (s *Signal) snapshot() UpdateSignal {
	return UpdateSignal{ID: s.id, State: s.State()}
}
