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

// Package raw holds the immutable, as-parsed description of one station:
// nodes, signals and independent buttons. Nothing here is mutated once
// loaded; the FSM and Topology packages derive their state from it.
package raw

import (
	"encoding/json"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// NodeID identifies one track-circuit segment, stable within an instance.
type NodeID uint

// SignalKind classifies a wayside signal by the kind of route it protects.
type SignalKind string

const (
	HomeSignal     SignalKind = "HOME_SIGNAL"
	StartingSignal SignalKind = "STARTING_SIGNAL"
	ShuntingSignal SignalKind = "SHUNTING_SIGNAL"
)

// SignalMounting is a display-only property carried through from the raw model.
type SignalMounting string

const (
	PostMounting   SignalMounting = "POST_MOUNTING"
	GroundMounting SignalMounting = "GROUND_MOUNTING"
)

// ButtonKind is the admissible class of an operator button, independent or
// co-located with a signal.
type ButtonKind string

const (
	Pass  ButtonKind = "PASS"
	Shunt ButtonKind = "SHUNT"
	Train ButtonKind = "TRAIN"
	Guide ButtonKind = "GUIDE"
	LZA   ButtonKind = "LZA"
)

// JointKind is a display-only property of a node's end.
type JointKind string

const (
	JointNormal    JointKind = "NORMAL"
	JointClearance JointKind = "CLEARANCE"
	JointEnd       JointKind = "END"
	JointEmpty     JointKind = "EMPTY"
)

// NodeKind selects the aspect a HomeSignal opens to on a receive route
// (see Signal.OpenRecv in package fsm).
type NodeKind string

const (
	Mainline NodeKind = "MAINLINE"
	Siding   NodeKind = "SIDING"
	Siding18 NodeKind = "SIDING_18"
	Normal   NodeKind = "NORMAL"
)

// Direction is the R-relation's edge label: the station's geographical
// orientation, not the direction of travel of any particular train.
type Direction string

const (
	Left  Direction = "LEFT"
	Right Direction = "RIGHT"
)

// Reverse returns the opposite geographical direction.
func (d Direction) Reverse() Direction {
	if d == Left {
		return Right
	}
	return Left
}

// Point is a 2-D coordinate, used only to derive segment length.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is one immutable track-circuit segment as read from the station
// document.
type Node struct {
	ID              NodeID       `json:"id" yaml:"id"`
	Kind            NodeKind     `json:"nodeKind" yaml:"nodeKind"`
	TurnoutID       []uint       `json:"turnoutId" yaml:"turnoutId"`
	TrackID         string       `json:"trackId" yaml:"trackId"`
	LeftAdj         []NodeID     `json:"leftAdj" yaml:"leftAdj"`
	RightAdj        []NodeID     `json:"rightAdj" yaml:"rightAdj"`
	ConflictedNodes []NodeID     `json:"conflictedNodes" yaml:"conflictedNodes"`
	Line            [2]Point     `json:"line" yaml:"line"`
	Joint           [2]JointKind `json:"joint" yaml:"joint"`
}

// Length returns the Euclidean length of the node's line segment.
func (n Node) Length() float64 {
	dx := n.Line[1].X - n.Line[0].X
	dy := n.Line[1].Y - n.Line[0].Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Signal is one immutable wayside signal as read from the station document.
type Signal struct {
	ID            string         `json:"id" yaml:"id"`
	Pos           *Point         `json:"pos,omitempty" yaml:"pos,omitempty"`
	IsLeft        *bool          `json:"isLeft,omitempty" yaml:"isLeft,omitempty"`
	IsUp          bool           `json:"isUp" yaml:"isUp"`
	Kind          SignalKind     `json:"sgnKind" yaml:"sgnKind"`
	Mounting      SignalMounting `json:"sgnMnt" yaml:"sgnMnt"`
	ProtectNodeID NodeID         `json:"protectNodeId" yaml:"protectNodeId"`
	TowardNodeID  NodeID         `json:"towardNodeId" yaml:"towardNodeId"`
	Buttons       []ButtonKind   `json:"btns" yaml:"btns"`
	JuxSignal     *string        `json:"juxSgn,omitempty" yaml:"juxSgn,omitempty"`
	DifSignal     *string        `json:"difSgn,omitempty" yaml:"difSgn,omitempty"`
	// DirHint is an explicit direction override, used only when the
	// protected/toward node pair yields no R-edge (disjoint signal).
	DirHint *Direction `json:"dirHint,omitempty" yaml:"dirHint,omitempty"`
}

// IndButton is an independent terminal button, not co-located with a signal.
type IndButton struct {
	ID            string     `json:"id" yaml:"id"`
	Kind          ButtonKind `json:"kind" yaml:"kind"`
	Pos           Point      `json:"pos" yaml:"pos"`
	ProtectNodeID NodeID     `json:"protectNodeId" yaml:"protectNodeId"`
}

// Station is the whole parsed document for one interlocking.
type Station struct {
	Title           string      `json:"title" yaml:"title"`
	Nodes           []Node      `json:"nodes" yaml:"nodes"`
	Signals         []Signal    `json:"signals" yaml:"signals"`
	IndependentBtns []IndButton `json:"independent_btns" yaml:"independent_btns"`
}

// FromYAML parses a station document in YAML form.
func FromYAML(data []byte) (*Station, error) {
	var s Station
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("raw: parsing station yaml: %w", err)
	}
	return &s, nil
}

// FromJSON parses a station document in JSON form.
func FromJSON(data []byte) (*Station, error) {
	var s Station
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("raw: parsing station json: %w", err)
	}
	return &s, nil
}
