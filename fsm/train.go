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
	"github.com/rinmyo/uroj-go/topo"
)

// TrainID identifies one live train within an instance.
type TrainID int

// Train is one live train's mutable state: its full node history (so a
// cancelled/rerouted run can be audited) and, derived from the last entry,
// its current node.
type Train struct {
	mu       sync.Mutex
	id       TrainID
	pastNode []raw.NodeID
	progress float64
	dir      raw.Direction
}

// NewTrain spawns a train at a node. id is assigned by the caller (the
// instance's train id sequence).
func NewTrain(id TrainID, spawnAt raw.NodeID) *Train {
	return &Train{id: id, pastNode: []raw.NodeID{spawnAt}, dir: raw.Left}
}

// ID returns the train's stable identifier.
func (t *Train) ID() TrainID { return t.id }

// CurrNode returns the node the train currently occupies.
func (t *Train) CurrNode() raw.NodeID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pastNode[len(t.pastNode)-1]
}

// Progress returns the train's fractional advance, in [0,1], along its
// current node.
func (t *Train) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Direction returns the train's current direction of travel.
func (t *Train) Direction() raw.Direction {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dir
}

// SetDirection sets the train's current direction of travel, used by the
// train driver loop when performing a reversal.
func (t *Train) SetDirection(d raw.Direction) {
	t.mu.Lock()
	t.dir = d
	t.mu.Unlock()
}

// History returns the full sequence of nodes the train has occupied, oldest
// first, including its current node.
func (t *Train) History() []raw.NodeID {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]raw.NodeID, len(t.pastNode))
	copy(out, t.pastNode)
	return out
}

// CanMoveTo reports whether the train may advance onto target: the R-graph
// must carry an edge from the train's current node to target (physical
// adjacency), and if the node being entered is protected by a signal facing
// the train, that signal's aspect must be in the allowed set. A train moving
// Right arrives at the target's left end, so it reads the left protecting id
// (and vice versa).
func (t *Train) CanMoveTo(target raw.NodeID, top *topo.Topology, f *FSM) bool {
	curr := t.CurrNode()
	dir, ok := top.Direction(curr, target)
	if !ok {
		return false
	}

	targetNode := f.Node(target)
	if targetNode == nil {
		return false
	}

	var protectingID string
	switch dir {
	case raw.Left:
		protectingID = targetNode.RightSignalID
	case raw.Right:
		protectingID = targetNode.LeftSignalID
	}
	if protectingID == "" {
		return true
	}
	sig := f.Signal(protectingID)
	if sig == nil {
		return true
	}
	return sig.IsAllowed()
}

// MoveTo advances the train onto target: target becomes Occupied, the
// train's previous node becomes Vacant and is marked once-occupied (feeding
// the sequential-release sweep), and target is appended to the train's
// history. Callers must have already confirmed CanMoveTo.
func (t *Train) MoveTo(sink Sink, target raw.NodeID, dir raw.Direction, f *FSM) {
	from := t.CurrNode()

	if toNode := f.Node(target); toNode != nil {
		toNode.SetState(sink, Occupied)
	}
	if fromNode := f.Node(from); fromNode != nil {
		fromNode.SetState(sink, Vacant)
		fromNode.SetOnceOcc(true)
	}

	t.mu.Lock()
	t.pastNode = append(t.pastNode, target)
	t.progress = 0
	t.dir = dir
	t.mu.Unlock()

	sink.Broadcast(Frame{Kind: FrameMoveTrain, Data: MoveTrain{ID: int(t.id), NodeID: target, Progress: 0, Dir: dir}})
}

// SetProgress updates the train's fractional advance along its current
// node without emitting a frame on its own; the caller (the train driver
// loop) batches this into its own periodic MoveTrain broadcast.
func (t *Train) SetProgress(p float64) {
	t.mu.Lock()
	t.progress = p
	t.mu.Unlock()
}
