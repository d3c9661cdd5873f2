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

// NodeStatus is the internal occupancy state of a track-circuit segment.
type NodeStatus string

const (
	Vacant     NodeStatus = "VACANT"
	Occupied   NodeStatus = "OCCUPIED"
	Unexpected NodeStatus = "UNEXPECTED"
	// Lock is never stored; it is the externally-visible overlay reported
	// whenever IsLock is true (see Node.Status).
	Lock NodeStatus = "LOCK"
)

// Node is one track-circuit segment's mutable state machine, guarded by its
// own mutex so trains and route commands can touch different nodes
// concurrently.
type Node struct {
	mu sync.Mutex

	id        raw.NodeID
	kind      raw.NodeKind
	length    float64
	state     NodeStatus
	isLock    bool
	onceOcc   bool
	usedCount uint32

	// LeftSignalID/RightSignalID are the protecting signal ids on each end,
	// resolved once at instance construction (see instance.New) since the
	// node/signal references are cyclic and neither owns the other.
	LeftSignalID  string
	RightSignalID string
}

// NewNode creates a Node state machine from its immutable raw description.
func NewNode(n raw.Node) *Node {
	return &Node{
		id:     n.ID,
		kind:   n.Kind,
		length: n.Length(),
		state:  Vacant,
	}
}

// ID returns the node's stable identifier.
func (n *Node) ID() raw.NodeID { return n.id }

// Kind returns the node kind used to pick a HomeSignal's receive aspect.
func (n *Node) Kind() raw.NodeKind { return n.kind }

// Length returns the node's Euclidean segment length, used by the train
// driver to size a progress step.
func (n *Node) Length() float64 { return n.length }

// Status returns the externally-visible status: Lock whenever IsLock is
// true, otherwise the underlying occupancy status.
func (n *Node) Status() NodeStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.statusLocked()
}

// State returns the node's underlying occupancy state, ignoring the Lock
// overlay — used by route validation/reconstruction, which must tell a
// locked-but-internally-Vacant node apart from one that is Occupied.
func (n *Node) State() NodeStatus {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Node) statusLocked() NodeStatus {
	if n.isLock {
		return Lock
	}
	return n.state
}

// IsLock reports whether the node currently belongs to a locked route.
func (n *Node) IsLock() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.isLock
}

// OnceOcc reports whether the node has been occupied at least once since
// its route was locked (used by the sequential-release rule).
func (n *Node) OnceOcc() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.onceOcc
}

// UsedCount returns how many active routes include this node in their
// S-neighborhood.
func (n *Node) UsedCount() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.usedCount
}

// Lock sets is_lock and resets once_occ, emitting UpdateNode. Called once
// per node during create_route's commit phase.
func (n *Node) Lock(sink Sink) {
	n.mu.Lock()
	n.isLock = true
	n.onceOcc = false
	status := n.statusLocked()
	n.mu.Unlock()
	sink.Broadcast(Frame{Kind: FrameUpdateNode, Data: UpdateNode{ID: n.id, State: status}})
}

// Unlock clears is_lock, emitting UpdateNode. Called by cancel_route,
// manually_unlock and fault_unlock; the sequential-release sweep only
// changes the occupancy state (SetState) and leaves is_lock as it is.
func (n *Node) Unlock(sink Sink) {
	n.mu.Lock()
	n.isLock = false
	status := n.statusLocked()
	n.mu.Unlock()
	sink.Broadcast(Frame{Kind: FrameUpdateNode, Data: UpdateNode{ID: n.id, State: status}})
}

// IncUsedCount increments the S-neighborhood use counter; called once per
// S-neighbor of every node locked by create_route.
func (n *Node) IncUsedCount() {
	n.mu.Lock()
	n.usedCount++
	n.mu.Unlock()
}

// DecUsedCount decrements the S-neighborhood use counter, floored at zero;
// called once per S-neighbor of every node unlocked by cancel_route,
// manually_unlock or fault_unlock.
func (n *Node) DecUsedCount() {
	n.mu.Lock()
	if n.usedCount > 0 {
		n.usedCount--
	}
	n.mu.Unlock()
}

// SetState sets the internal occupancy state (Vacant/Occupied/Unexpected)
// and emits UpdateNode. Used by the train driver and by fault commands.
func (n *Node) SetState(sink Sink, state NodeStatus) {
	n.mu.Lock()
	n.state = state
	status := n.statusLocked()
	n.mu.Unlock()
	sink.Broadcast(Frame{Kind: FrameUpdateNode, Data: UpdateNode{ID: n.id, State: status}})
}

// SetOnceOcc marks the node as having been occupied at least once since its
// route was locked, without emitting a frame (internal bookkeeping only;
// the externally visible status is unaffected).
func (n *Node) SetOnceOcc(v bool) {
	n.mu.Lock()
	n.onceOcc = v
	n.mu.Unlock()
}

// snapshot captures the node's visible state for a full resync
// (global_status). Not guarded beyond its own read since callers already
// hold no cross-entity invariant here.
func (n *Node) snapshot() UpdateNode {
	return UpdateNode{ID: n.id, State: n.Status()}
}
