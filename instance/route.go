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
	"fmt"

	"github.com/rinmyo/uroj-go/fsm"
	"github.com/rinmyo/uroj-go/raw"
)

func notFound(what string) error {
	return fmt.Errorf("%w: unknown id %s", ErrNotFound, what)
}

// farSideSignal returns the signal id on the side of node opposite the
// direction of travel dir — the "intermediate signal" a route-construction
// or route-cancellation walk collects at each node. These are the signals
// facing the oncoming move.
func farSideSignal(node *fsm.Node, dir raw.Direction) string {
	switch dir {
	case raw.Left:
		return node.RightSignalID
	case raw.Right:
		return node.LeftSignalID
	}
	return ""
}

// CreateRoute resolves and classifies the requested route from the pair of
// pressed buttons, searches the R-graph, validates every node on the
// candidate path atomically, then commits the lock and opens the
// appropriate signal aspect(s). Validation and commit run under the
// instance-level guard so two concurrent CreateRoute calls can never
// interleave their validate and commit phases.
func (e *Engine) CreateRoute(start, end PathBtn) ([]raw.NodeID, error) {
	e.guard.Lock()
	defer e.guard.Unlock()

	startSgn := e.FSM.Signal(start.ID)
	if startSgn == nil {
		return nil, notFound(start.ID)
	}

	startNode := startSgn.ProtectNodeID()
	startDir := startSgn.Direction().Reverse()

	var goalNode raw.NodeID
	var goalDir raw.Direction
	var isPass, isSend, isRecv, isShnt bool

	switch {
	case start.Kind == raw.Pass && end.Kind == raw.Train:
		// Pass -> Train: a pass-through route ending at the node the end
		// signal protects.
		isPass = true
		endSgn := e.FSM.Signal(end.ID)
		if endSgn == nil {
			return nil, notFound(end.ID)
		}
		goalNode = endSgn.ProtectNodeID()
		goalDir = endSgn.Direction()

	case start.Kind == raw.Pass && end.Kind == raw.LZA:
		isPass = true
		nodeID, ok := e.Topology.IndBtn[end.ID]
		if !ok {
			return nil, notFound(end.ID)
		}
		goalNode = nodeID
		goalDir = startDir

	case start.Kind == raw.Train && end.Kind == raw.Train:
		endSgn := e.FSM.Signal(end.ID)
		if endSgn == nil {
			return nil, notFound(end.ID)
		}
		switch {
		case startSgn.Kind() == raw.HomeSignal && endSgn.Kind() == raw.StartingSignal:
			isRecv = true
			goalNode = endSgn.TowardNodeID()
			goalDir = endSgn.Direction()
		case startSgn.Kind() == raw.StartingSignal && endSgn.Kind() == raw.HomeSignal:
			isSend = true
			goalNode = endSgn.ProtectNodeID()
			goalDir = endSgn.Direction()
		default:
			return nil, fmt.Errorf("%w: no route found", ErrRouteIllegal)
		}

	case start.Kind == raw.Train && end.Kind == raw.LZA:
		if startSgn.Kind() != raw.StartingSignal {
			return nil, fmt.Errorf("%w: no route found", ErrRouteIllegal)
		}
		isSend = true
		nodeID, ok := e.Topology.IndBtn[end.ID]
		if !ok {
			return nil, notFound(end.ID)
		}
		goalNode = nodeID
		goalDir = startDir

	case start.Kind == raw.Shunt && end.Kind == raw.Shunt:
		isShnt = true
		endID := end.ID
		if dif, ok := e.Topology.DifRelation[end.ID]; ok {
			endID = dif
		} else if jux, ok := e.Topology.JuxRelation[end.ID]; ok {
			endID = jux
		}
		endSgn := e.FSM.Signal(endID)
		if endSgn == nil {
			return nil, notFound(endID)
		}
		goalNode = endSgn.TowardNodeID()
		goalDir = endSgn.Direction().Reverse()

	default:
		return nil, fmt.Errorf("%w: no route found", ErrRouteIllegal)
	}

	if startNode == goalNode {
		return nil, fmt.Errorf("%w: start equals end", ErrRouteIllegal)
	}

	path, entryDir, exitDir, ok := e.Topology.AvailablePath(startNode, goalNode)
	if !ok {
		return nil, fmt.Errorf("%w: no available path exists", ErrRouteUnavailable)
	}
	if entryDir != startDir || exitDir != goalDir {
		return nil, fmt.Errorf("%w: no available route exists", ErrRouteUnavailable)
	}

	// Step 4: atomic validation, collecting intermediate signals.
	var intermediateSgns []string
	for _, nid := range path {
		node := e.FSM.Node(nid)
		if node == nil {
			return nil, notFound(fmt.Sprint(nid))
		}
		if node.State() != fsm.Vacant {
			return nil, fmt.Errorf("%w: target path is not vacant", ErrRouteConflicting)
		}
		if node.IsLock() {
			return nil, fmt.Errorf("%w: target path is conflicting", ErrRouteConflicting)
		}
		if node.UsedCount() > 0 {
			return nil, fmt.Errorf("%w: target path is mutex", ErrRouteConflicting)
		}
		if sgnID := farSideSignal(node, entryDir); sgnID != "" {
			intermediateSgns = append(intermediateSgns, sgnID)
		}
	}

	// Step 5: atomic commit, in path order.
	for _, nid := range path {
		node := e.FSM.Node(nid)
		node.Lock(e)
		for _, sn := range e.Topology.SNeighbors(nid) {
			if snode := e.FSM.Node(sn); snode != nil {
				snode.IncUsedCount()
			}
		}
	}

	// Step 6: aspect update.
	if isRecv {
		goalK := raw.Normal
		if gn := e.FSM.Node(goalNode); gn != nil {
			goalK = gn.Kind()
		}
		startSgn.OpenRecv(e, goalK)
	}
	if isPass {
		startSgn.OpenPass(e)
	}
	if isSend {
		startSgn.OpenSend(e)
	}
	// For a shunt route the start signal needs no separate open: it faces
	// the move from the path's first node, so the far-side collection above
	// already picked it up along with every intermediate ShuntingSignal.
	if isShnt {
		for _, id := range intermediateSgns {
			if sgn := e.FSM.Signal(id); sgn != nil && sgn.Kind() == raw.ShuntingSignal {
				sgn.OpenShnt(e)
			}
		}
	}

	if e.Exam != nil {
		e.Exam.NoteRoute(e, startNode, goalNode)
	}

	return path, nil
}

// reconstructRoute walks forward from startNode in dir, picking at each
// step the first R-successor in that direction that is locked, internally
// Vacant, and not already in the walk.
func (e *Engine) reconstructRoute(startNode raw.NodeID, dir raw.Direction) []raw.NodeID {
	curr := e.FSM.Node(startNode)
	if curr == nil || !curr.IsLock() || curr.State() != fsm.Vacant {
		return nil
	}

	route := []raw.NodeID{startNode}
	visited := map[raw.NodeID]bool{startNode: true}

	for {
		last := route[len(route)-1]
		next := raw.NodeID(0)
		found := false
		for _, cand := range e.Topology.DirectedNeighbors(last, dir) {
			if visited[cand] {
				continue
			}
			n := e.FSM.Node(cand)
			if n != nil && n.IsLock() && n.State() == fsm.Vacant {
				next = cand
				found = true
				break
			}
		}
		if !found {
			break
		}
		route = append(route, next)
		visited[next] = true
	}
	return route
}

// CancelRoute reconstructs the route locked from the start signal and
// dissolves it: the signal reverts to its protecting aspect, every node
// unlocks, and the S-neighborhood counters rebalance.
func (e *Engine) CancelRoute(start PathBtn) error {
	e.guard.Lock()
	defer e.guard.Unlock()

	startSgn := e.FSM.Signal(start.ID)
	if startSgn == nil {
		return notFound(start.ID)
	}
	if !startSgn.IsAllowed() {
		return fmt.Errorf("%w: signal is not in an allowed aspect", ErrCancelIncomplete)
	}

	startNode := startSgn.ProtectNodeID()
	startDir := startSgn.Direction().Reverse()

	route := e.reconstructRoute(startNode, startDir)
	if route == nil {
		return fmt.Errorf("%w: no existing route found", ErrCancelIncomplete)
	}

	facing := e.FSM.Node(startSgn.TowardNodeID())
	if facing == nil || facing.Status() != fsm.Vacant {
		return fmt.Errorf("%w: facing node is not a clean terminating state", ErrCancelIncomplete)
	}

	startSgn.Protect(e)
	for _, nid := range route {
		node := e.FSM.Node(nid)
		node.Unlock(e)
		for _, sn := range e.Topology.SNeighbors(nid) {
			if snode := e.FSM.Node(sn); snode != nil {
				snode.DecUsedCount()
			}
		}
	}
	for _, nid := range route {
		node := e.FSM.Node(nid)
		if sgnID := farSideSignal(node, startDir); sgnID != "" {
			if sgn := e.FSM.Signal(sgnID); sgn != nil && sgn.Kind() == raw.ShuntingSignal {
				sgn.Protect(e)
			}
		}
	}
	return nil
}

// ManuallyUnlock performs the same reconstruction and unlock as CancelRoute
// but skips the "facing node must be Vacant" precondition: a manual unlock
// exists precisely to recover from a state CancelRoute cannot reach.
func (e *Engine) ManuallyUnlock(start PathBtn) error {
	e.guard.Lock()
	defer e.guard.Unlock()

	startSgn := e.FSM.Signal(start.ID)
	if startSgn == nil {
		return notFound(start.ID)
	}
	if !startSgn.IsAllowed() {
		return fmt.Errorf("%w: signal is not in an allowed aspect", ErrCancelIncomplete)
	}

	startNode := startSgn.ProtectNodeID()
	startDir := startSgn.Direction().Reverse()

	route := e.reconstructRoute(startNode, startDir)
	if route == nil {
		return fmt.Errorf("%w: no existing route found", ErrCancelIncomplete)
	}

	startSgn.Protect(e)
	for _, nid := range route {
		node := e.FSM.Node(nid)
		node.Unlock(e)
		for _, sn := range e.Topology.SNeighbors(nid) {
			if snode := e.FSM.Node(sn); snode != nil {
				snode.DecUsedCount()
			}
		}
	}
	for _, nid := range route {
		node := e.FSM.Node(nid)
		if sgnID := farSideSignal(node, startDir); sgnID != "" {
			if sgn := e.FSM.Signal(sgnID); sgn != nil && sgn.Kind() == raw.ShuntingSignal {
				sgn.Protect(e)
			}
		}
	}
	return nil
}

// FaultUnlock forces a single node back to a clean state — unlocked, its
// used_count rebalanced by one per S-neighbor — bypassing route
// reconstruction entirely: a track-circuit fault report names one segment,
// not a whole route.
func (e *Engine) FaultUnlock(nodeID raw.NodeID) error {
	e.guard.Lock()
	defer e.guard.Unlock()

	node := e.FSM.Node(nodeID)
	if node == nil {
		return notFound(fmt.Sprint(nodeID))
	}
	node.Unlock(e)
	for _, sn := range e.Topology.SNeighbors(nodeID) {
		if snode := e.FSM.Node(sn); snode != nil {
			snode.DecUsedCount()
		}
	}
	return nil
}

// SpawnTrain registers a new train at node, assigning the next dense train
// id from a counter that survives removal of finished trains, and starts
// its driver task. A fresh train sits mid-segment (progress 0.5) facing
// Left.
func (e *Engine) SpawnTrain(node raw.NodeID) (fsm.TrainID, error) {
	if e.FSM.Node(node) == nil {
		return 0, notFound(fmt.Sprint(node))
	}

	e.trainsMu.Lock()
	e.nextTrainID++
	id := e.nextTrainID
	t := fsm.NewTrain(id, node)
	t.SetProgress(0.5)
	e.trains[id] = t
	e.trainsMu.Unlock()

	e.Broadcast(fsm.Frame{Kind: fsm.FrameMoveTrain, Data: fsm.MoveTrain{
		ID: int(id), NodeID: node, Progress: 0.5, Dir: raw.Left,
	}})

	go e.driveTrain(t)
	return id, nil
}

// Train returns the live train for id, or nil.
func (e *Engine) Train(id fsm.TrainID) *fsm.Train {
	e.trainsMu.RLock()
	defer e.trainsMu.RUnlock()
	return e.trains[id]
}

// TrainCount returns the number of trains currently live in this instance,
// used by the ambient train-task gauge.
func (e *Engine) TrainCount() int {
	e.trainsMu.RLock()
	defer e.trainsMu.RUnlock()
	return len(e.trains)
}

func (e *Engine) removeTrain(id fsm.TrainID) {
	e.trainsMu.Lock()
	delete(e.trains, id)
	e.trainsMu.Unlock()
}
