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

// FrameKind tags a Frame's concrete payload so JSON clients can route the
// tagged union without reflection.
type FrameKind string

const (
	FrameUpdateSignal       FrameKind = "UPDATE_SIGNAL"
	FrameUpdateNode         FrameKind = "UPDATE_NODE"
	FrameUpdateGlobalStatus FrameKind = "UPDATE_GLOBAL_STATUS"
	FrameMoveTrain          FrameKind = "MOVE_TRAIN"
	FrameUpdateQuestion     FrameKind = "UPDATE_QUESTION"
)

// Frame is a self-describing, JSON-serializable state delta broadcast to
// every subscriber of an instance.
type Frame struct {
	Kind FrameKind   `json:"kind"`
	Data interface{} `json:"data"`
}

// UpdateSignal reports a signal's new aspect.
type UpdateSignal struct {
	ID    string       `json:"id"`
	State SignalStatus `json:"state"`
}

// UpdateNode reports a node's new externally-visible status.
type UpdateNode struct {
	ID    raw.NodeID `json:"id"`
	State NodeStatus `json:"state"`
}

// UpdateGlobalStatus is a full resync snapshot of every node and signal.
type UpdateGlobalStatus struct {
	Nodes   []UpdateNode   `json:"nodes"`
	Signals []UpdateSignal `json:"signals"`
}

// MoveTrain reports a train's position along its current node.
type MoveTrain struct {
	ID       int           `json:"id"`
	NodeID   raw.NodeID    `json:"nodeId"`
	Progress float64       `json:"progress"`
	Dir      raw.Direction `json:"direction"`
}

// UpdateQuestion reports an exam question's graded outcome.
type UpdateQuestion struct {
	ID      int    `json:"id"`
	Outcome string `json:"outcome"`
}

// Sink is anything that can receive broadcast frames; the instance engine
// implements it. Kept as an interface here so Node/Signal/Train can emit
// frames without importing package instance (avoids an import cycle).
type Sink interface {
	Broadcast(Frame)
}
