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

package instance

import (
	"time"

	"github.com/rinmyo/uroj-go/fsm"
	"github.com/rinmyo/uroj-go/raw"
)

// ThreePointCheckDelay is the fixed pause a train takes after each move to
// model the three-point safety check.
const ThreePointCheckDelay = 3 * time.Second

// driveStepInterval is the yield the train loop takes between steps.
const driveStepInterval = 20 * time.Millisecond

// driveTrain is the driver task started by SpawnTrain: one goroutine per
// live train, terminating when the route runs out or the instance stops.
func (e *Engine) driveTrain(t *fsm.Train) {
	defer e.removeTrain(t.ID())

	ticker := time.NewTicker(driveStepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
		}

		curr := t.CurrNode()
		next, dir, ok := e.nextRouteNode(curr, t)
		if !ok {
			return
		}

		if dir != t.Direction() {
			t.SetDirection(dir)
			t.SetProgress(1 - t.Progress())
		}

		progress := t.Progress()
		if progress < 1 {
			step := 1.0
			if node := e.FSM.Node(curr); node != nil && node.Length() > 0 {
				step = 1.0 / node.Length()
			}
			progress += step
			if progress > 1 {
				progress = 1
			}
			t.SetProgress(progress)
			e.Broadcast(fsm.Frame{Kind: fsm.FrameMoveTrain, Data: fsm.MoveTrain{
				ID: int(t.ID()), NodeID: curr, Progress: progress, Dir: dir,
			}})
			continue
		}

		if !t.CanMoveTo(next, e.Topology, e.FSM) {
			continue
		}
		t.MoveTo(e, next, dir, e.FSM)

		select {
		case <-e.ctx.Done():
			return
		case <-time.After(e.threePointDelay):
		}
	}
}

// nextRouteNode picks the R-neighbor of curr to advance onto: Left is
// always tried before Right, and the candidate must be locked,
// internally Vacant, and absent from the train's own history (so a train
// never re-enters a node it has already left).
func (e *Engine) nextRouteNode(curr raw.NodeID, t *fsm.Train) (raw.NodeID, raw.Direction, bool) {
	visited := make(map[raw.NodeID]bool)
	for _, h := range t.History() {
		visited[h] = true
	}
	for _, dir := range [2]raw.Direction{raw.Left, raw.Right} {
		for _, cand := range e.Topology.DirectedNeighbors(curr, dir) {
			if visited[cand] {
				continue
			}
			n := e.FSM.Node(cand)
			if n != nil && n.IsLock() && n.State() == fsm.Vacant {
				return cand, dir, true
			}
		}
	}
	return 0, "", false
}

// SequentialReleaseSweep runs the auto-unlock rule on a periodic cadence
// rather than at every train move: sequential release is a track-circuit
// phenomenon, not a per-train one. Intended to be started as a goroutine
// for the instance's lifetime; returns when ctx is cancelled.
func (e *Engine) SequentialReleaseSweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.sweepOnce()
		}
	}
}

// sweepOnce vacates every locked, once-occupied, currently-Occupied node
// whose predecessor is Vacant and whose successor is Occupied — the
// textbook "sequential release" rule.
func (e *Engine) sweepOnce() {
	for _, nid := range e.FSM.Nodes() {
		n := e.FSM.Node(nid)
		if n == nil || !n.IsLock() || !n.OnceOcc() || n.State() != fsm.Occupied {
			continue
		}

		predVacant := false
		for _, p := range e.Topology.Predecessors(nid) {
			if pn := e.FSM.Node(p); pn != nil && pn.State() == fsm.Vacant {
				predVacant = true
				break
			}
		}
		if !predVacant {
			continue
		}

		succOccupied := false
		for _, dir := range [2]raw.Direction{raw.Left, raw.Right} {
			for _, s := range e.Topology.DirectedNeighbors(nid, dir) {
				if sn := e.FSM.Node(s); sn != nil && sn.State() == fsm.Occupied {
					succOccupied = true
					break
				}
			}
			if succOccupied {
				break
			}
		}
		if !succOccupied {
			continue
		}

		n.SetState(e, fsm.Vacant)
	}
}
