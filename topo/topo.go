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

// Package topo derives the three static relations a station topology is
// built from — the directed R-graph, the undirected S-graph, and the
// juxtaposed/offset signal and independent-button lookup tables — once
// from the raw station model, and never mutates them again.
package topo

import (
	"fmt"
	"strconv"

	"github.com/katalvlaran/lvlath/core"

	"github.com/rinmyo/uroj-go/raw"
)

func vid(n raw.NodeID) string {
	return strconv.FormatUint(uint64(n), 10)
}

// Topology is the read-only station graph: the R-relation (physical
// adjacency with a Left/Right label), the S-relation (conflict), and the
// signal substitution / independent-button tables.
type Topology struct {
	rGraph *core.Graph
	sGraph *core.Graph
	// rDir holds the Left/Right label lvlath's float64 edge weight can't
	// carry; keyed "from:to".
	rDir map[string]raw.Direction
	// rPred is the reverse of the R-relation, keyed by stringified node id,
	// used by the sequential-release sweep to find a node's predecessor
	// without a second directed graph.
	rPred map[string][]raw.NodeID

	JuxRelation map[string]string     // signal id -> juxtaposed (co-located) signal id
	DifRelation map[string]string     // signal id -> offset (differential) signal id
	IndBtn      map[string]raw.NodeID // independent button id -> protected node id
}

// New builds a Topology from a station's nodes, signals and independent
// buttons.
func New(nodes []raw.Node, signals []raw.Signal, indBtns []raw.IndButton) (*Topology, error) {
	rGraph := core.NewGraph(core.WithDirected(true))
	sGraph := core.NewGraph(core.WithDirected(false))

	t := &Topology{
		rGraph:      rGraph,
		sGraph:      sGraph,
		rDir:        make(map[string]raw.Direction),
		rPred:       make(map[string][]raw.NodeID),
		JuxRelation: make(map[string]string),
		DifRelation: make(map[string]string),
		IndBtn:      make(map[string]raw.NodeID),
	}

	// AddEdge auto-creates its endpoint vertices, so only isolated nodes
	// strictly need the explicit AddVertex; the seen sets keep the pass from
	// re-adding an id the raw lists mention more than once.
	rSeen := make(map[string]bool, len(nodes))
	sSeen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if err := ensureVertex(rGraph, rSeen, vid(n.ID)); err != nil {
			return nil, err
		}
		if err := ensureVertex(sGraph, sSeen, vid(n.ID)); err != nil {
			return nil, err
		}
	}

	for _, n := range nodes {
		for _, adj := range n.LeftAdj {
			if _, err := rGraph.AddEdge(vid(n.ID), vid(adj), 1); err != nil {
				return nil, fmt.Errorf("topo: r-edge %d->%d: %w", n.ID, adj, err)
			}
			rSeen[vid(adj)] = true
			t.rDir[vid(n.ID)+":"+vid(adj)] = raw.Left
			t.rPred[vid(adj)] = append(t.rPred[vid(adj)], n.ID)
		}
		for _, adj := range n.RightAdj {
			if _, err := rGraph.AddEdge(vid(n.ID), vid(adj), 1); err != nil {
				return nil, fmt.Errorf("topo: r-edge %d->%d: %w", n.ID, adj, err)
			}
			rSeen[vid(adj)] = true
			t.rDir[vid(n.ID)+":"+vid(adj)] = raw.Right
			t.rPred[vid(adj)] = append(t.rPred[vid(adj)], n.ID)
		}
		for _, c := range n.ConflictedNodes {
			if _, err := sGraph.AddEdge(vid(n.ID), vid(c), 1); err != nil {
				return nil, fmt.Errorf("topo: s-edge %d-%d: %w", n.ID, c, err)
			}
			sSeen[vid(c)] = true
		}
	}

	for _, s := range signals {
		if s.JuxSignal != nil {
			t.JuxRelation[s.ID] = *s.JuxSignal
		}
		if s.DifSignal != nil {
			t.DifRelation[s.ID] = *s.DifSignal
		}
	}

	for _, b := range indBtns {
		t.IndBtn[b.ID] = b.ProtectNodeID
	}

	return t, nil
}

func ensureVertex(g *core.Graph, seen map[string]bool, id string) error {
	if seen[id] {
		return nil
	}
	if err := g.AddVertex(id); err != nil {
		return fmt.Errorf("topo: vertex %s: %w", id, err)
	}
	seen[id] = true
	return nil
}

// Direction returns the R-relation label of the edge from -> to, if any.
func (t *Topology) Direction(from, to raw.NodeID) (raw.Direction, bool) {
	d, ok := t.rDir[vid(from)+":"+vid(to)]
	return d, ok
}

// SNeighbors returns the S-graph neighbors of a node — the nodes whose
// used_count must be adjusted whenever n is locked or unlocked.
func (t *Topology) SNeighbors(n raw.NodeID) []raw.NodeID {
	ids, err := t.sGraph.NeighborIDs(vid(n))
	if err != nil {
		return nil
	}
	out := make([]raw.NodeID, 0, len(ids))
	for _, id := range ids {
		nid, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, raw.NodeID(nid))
	}
	return out
}

// Predecessors returns the R-graph nodes with an edge into n, regardless of
// direction label. Used by the sequential-release sweep.
func (t *Topology) Predecessors(n raw.NodeID) []raw.NodeID {
	return t.rPred[vid(n)]
}

// DirectedNeighbors returns the R-graph successors of from whose edge label
// equals dir, in no particular order. Used by route reconstruction
// (instance.CancelRoute, instance.ManuallyUnlock) to walk forward along a
// locked route one direction at a time.
func (t *Topology) DirectedNeighbors(from raw.NodeID, dir raw.Direction) []raw.NodeID {
	ids, err := t.rGraph.NeighborIDs(vid(from))
	if err != nil {
		return nil
	}
	out := make([]raw.NodeID, 0, len(ids))
	for _, id := range ids {
		nid, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			continue
		}
		to := raw.NodeID(nid)
		if d, ok := t.Direction(from, to); ok && d == dir {
			out = append(out, to)
		}
	}
	return out
}

// sConflict reports whether a and b are adjacent in the S-graph.
func (t *Topology) sConflict(a, b raw.NodeID) bool {
	neighbors, err := t.sGraph.NeighborIDs(vid(a))
	if err != nil {
		return false
	}
	target := vid(b)
	for _, n := range neighbors {
		if n == target {
			return true
		}
	}
	return false
}

// AvailablePath searches the R-graph from start to goal breadth-first —
// with uniform edge weight and a zero heuristic A* degenerates to BFS. It
// rejects start == goal and any path carrying two S-adjacent nodes,
// returning the path plus the R-direction of its first and last edge.
func (t *Topology) AvailablePath(start, goal raw.NodeID) (path []raw.NodeID, entryDir, exitDir raw.Direction, ok bool) {
	if start == goal {
		return nil, "", "", false
	}

	ids := t.bfsPath(vid(start), vid(goal))
	if ids == nil {
		return nil, "", "", false
	}

	path = make([]raw.NodeID, len(ids))
	for i, id := range ids {
		n, err := strconv.ParseUint(id, 10, 64)
		if err != nil {
			return nil, "", "", false
		}
		path[i] = raw.NodeID(n)
	}

	for i := 0; i < len(path); i++ {
		for k := i + 1; k < len(path); k++ {
			if t.sConflict(path[i], path[k]) {
				return nil, "", "", false
			}
		}
	}

	entryDir, ok1 := t.Direction(path[0], path[1])
	exitDir, ok2 := t.Direction(path[len(path)-2], path[len(path)-1])
	if !ok1 || !ok2 {
		return nil, "", "", false
	}
	return path, entryDir, exitDir, true
}

// bfsPath walks core.Graph's NeighborIDs breadth-first.
func (t *Topology) bfsPath(start, goal string) []string {
	if start == goal {
		return nil
	}
	visited := map[string]bool{start: true}
	prev := map[string]string{}
	queue := []string{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		neighbors, err := t.rGraph.NeighborIDs(cur)
		if err != nil {
			continue
		}
		for _, next := range neighbors {
			// rDir holds exactly the directed edges; skip anything else
			// NeighborIDs may surface (an undirected view would include
			// in-edges too).
			if _, labeled := t.rDir[cur+":"+next]; !labeled {
				continue
			}
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = cur
			if next == goal {
				return reconstruct(prev, start, goal)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func reconstruct(prev map[string]string, start, goal string) []string {
	path := []string{goal}
	cur := goal
	for cur != start {
		cur = prev[cur]
		path = append(path, cur)
	}
	// reverse
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
