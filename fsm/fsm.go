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

import "github.com/rinmyo/uroj-go/raw"

// FSM is the container of every node and signal state machine belonging to
// one instance, addressable by id. Each entity carries its own mutex (see
// Node and Signal), so FSM itself needs no lock: its maps are built once at
// construction and never mutated again.
type FSM struct {
	nodes   map[raw.NodeID]*Node
	signals map[string]*Signal
}

// New builds an FSM from a station's raw nodes and signals, resolving each
// node's LeftSignalID/RightSignalID from the signals that protect it. A
// signal is registered on the end of its protected node matching its own
// facing; the traffic it governs travels opposite that facing (a route from
// a signal runs in reverse(dir)), so a train entering a node reads the id on
// the end it arrives at — which is what Train.CanMoveTo does.
func New(nodes []raw.Node, signals []raw.Signal, dirOf func(s raw.Signal) raw.Direction) *FSM {
	f := &FSM{
		nodes:   make(map[raw.NodeID]*Node, len(nodes)),
		signals: make(map[string]*Signal, len(signals)),
	}
	for _, n := range nodes {
		f.nodes[n.ID] = NewNode(n)
	}
	for _, s := range signals {
		dir := dirOf(s)
		sig := NewSignal(s, dir)
		f.signals[s.ID] = sig

		protected, ok := f.nodes[s.ProtectNodeID]
		if !ok {
			continue
		}
		switch dir {
		case raw.Left:
			protected.LeftSignalID = s.ID
		case raw.Right:
			protected.RightSignalID = s.ID
		}
	}
	return f
}

// Node returns the node state machine for id, or nil if unknown.
func (f *FSM) Node(id raw.NodeID) *Node { return f.nodes[id] }

// Signal returns the signal state machine for id, or nil if unknown.
func (f *FSM) Signal(id string) *Signal { return f.signals[id] }

// Nodes returns every node id known to the FSM.
func (f *FSM) Nodes() []raw.NodeID {
	out := make([]raw.NodeID, 0, len(f.nodes))
	for id := range f.nodes {
		out = append(out, id)
	}
	return out
}

// Signals returns every signal id known to the FSM.
func (f *FSM) Signals() []string {
	out := make([]string, 0, len(f.signals))
	for id := range f.signals {
		out = append(out, id)
	}
	return out
}

// Snapshot captures the visible state of every node and signal, used to
// answer a global_status query or to resync a freshly-subscribed client.
func (f *FSM) Snapshot() UpdateGlobalStatus {
	nodes := make([]UpdateNode, 0, len(f.nodes))
	for _, n := range f.nodes {
		nodes = append(nodes, n.snapshot())
	}
	signals := make([]UpdateSignal, 0, len(f.signals))
	for _, s := range f.signals {
		signals = append(signals, s.snapshot())
	}
	return UpdateGlobalStatus{Nodes: nodes, Signals: signals}
}
