package topo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rinmyo/uroj-go/raw"
)

// chainStation builds four nodes 1->2->3->4 via RightAdj (R-relation
// direction Right), with nodes 2 and 4 S-conflicting.
func chainStation() ([]raw.Node, []raw.Signal, []raw.IndButton) {
	nodes := []raw.Node{
		{ID: 1, RightAdj: []raw.NodeID{2}},
		{ID: 2, RightAdj: []raw.NodeID{3}, ConflictedNodes: []raw.NodeID{4}},
		{ID: 3, RightAdj: []raw.NodeID{4}},
		{ID: 4},
	}
	signals := []raw.Signal{
		{ID: "S1", ProtectNodeID: 1, TowardNodeID: 2},
	}
	juxOffset := "S2"
	signals[0].JuxSignal = &juxOffset
	btns := []raw.IndButton{
		{ID: "B1", ProtectNodeID: 3},
	}
	return nodes, signals, btns
}

func TestNewBuildsRelations(t *testing.T) {
	nodes, signals, btns := chainStation()
	top, err := New(nodes, signals, btns)
	require.NoError(t, err)

	d, ok := top.Direction(1, 2)
	require.True(t, ok)
	assert.Equal(t, raw.Right, d)

	assert.Equal(t, "S2", top.JuxRelation["S1"])
	assert.Equal(t, raw.NodeID(3), top.IndBtn["B1"])
}

func TestSNeighbors(t *testing.T) {
	nodes, signals, btns := chainStation()
	top, err := New(nodes, signals, btns)
	require.NoError(t, err)

	neighbors := top.SNeighbors(2)
	require.Len(t, neighbors, 1)
	assert.Equal(t, raw.NodeID(4), neighbors[0])

	// the S-graph is undirected, so 4 must see 2 as a conflict too.
	back := top.SNeighbors(4)
	require.Len(t, back, 1)
	assert.Equal(t, raw.NodeID(2), back[0])
}

func TestPredecessorsAndDirectedNeighbors(t *testing.T) {
	nodes, signals, btns := chainStation()
	top, err := New(nodes, signals, btns)
	require.NoError(t, err)

	preds := top.Predecessors(3)
	require.Len(t, preds, 1)
	assert.Equal(t, raw.NodeID(2), preds[0])

	next := top.DirectedNeighbors(2, raw.Right)
	require.Len(t, next, 1)
	assert.Equal(t, raw.NodeID(3), next[0])

	none := top.DirectedNeighbors(2, raw.Left)
	assert.Empty(t, none)
}

func TestAvailablePathRejectsSelf(t *testing.T) {
	nodes, signals, btns := chainStation()
	top, err := New(nodes, signals, btns)
	require.NoError(t, err)

	_, _, _, ok := top.AvailablePath(1, 1)
	assert.False(t, ok)
}

func TestAvailablePathFindsChain(t *testing.T) {
	nodes, signals, btns := chainStation()
	top, err := New(nodes, signals, btns)
	require.NoError(t, err)

	path, entryDir, exitDir, ok := top.AvailablePath(1, 3)
	require.True(t, ok)
	assert.Equal(t, []raw.NodeID{1, 2, 3}, path)
	assert.Equal(t, raw.Right, entryDir)
	assert.Equal(t, raw.Right, exitDir)
}

func TestAvailablePathRejectsSConflictingPath(t *testing.T) {
	nodes, signals, btns := chainStation()
	top, err := New(nodes, signals, btns)
	require.NoError(t, err)

	// 1 -> 2 -> 3 -> 4 includes both 2 and 4, which are S-conflicting.
	_, _, _, ok := top.AvailablePath(1, 4)
	assert.False(t, ok)
}

func TestAvailablePathNoRoute(t *testing.T) {
	nodes, signals, btns := chainStation()
	top, err := New(nodes, signals, btns)
	require.NoError(t, err)

	_, _, _, ok := top.AvailablePath(4, 1)
	assert.False(t, ok)
}
