package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rinmyo/uroj-go/fsm"
	"github.com/rinmyo/uroj-go/raw"
)

func TestSweepOnceReleasesSequentialNode(t *testing.T) {
	nodes := chainNodes([3]raw.NodeKind{raw.Normal, raw.Normal, raw.Normal})
	e := newTestEngine(t, nodes, nil, nil)

	for _, nid := range []raw.NodeID{1, 2, 3} {
		e.FSM.Node(nid).Lock(e)
	}
	e.FSM.Node(2).SetState(e, fsm.Occupied)
	e.FSM.Node(2).SetOnceOcc(true)
	e.FSM.Node(3).SetState(e, fsm.Occupied)
	// node 1 stays Vacant: the precondition for node 2's release.

	e.sweepOnce()

	assert.Equal(t, fsm.Vacant, e.FSM.Node(2).State())
}

func TestSweepOnceSkipsWithoutVacantPredecessor(t *testing.T) {
	nodes := chainNodes([3]raw.NodeKind{raw.Normal, raw.Normal, raw.Normal})
	e := newTestEngine(t, nodes, nil, nil)

	for _, nid := range []raw.NodeID{1, 2, 3} {
		e.FSM.Node(nid).Lock(e)
	}
	e.FSM.Node(1).SetState(e, fsm.Occupied)
	e.FSM.Node(2).SetState(e, fsm.Occupied)
	e.FSM.Node(2).SetOnceOcc(true)
	e.FSM.Node(3).SetState(e, fsm.Occupied)

	e.sweepOnce()

	// node 1 (the only predecessor of node 2) is not Vacant, so node 2 must
	// stay Occupied.
	assert.Equal(t, fsm.Occupied, e.FSM.Node(2).State())
}

func TestSweepOnceSkipsUnlockedNode(t *testing.T) {
	nodes := chainNodes([3]raw.NodeKind{raw.Normal, raw.Normal, raw.Normal})
	e := newTestEngine(t, nodes, nil, nil)

	e.FSM.Node(2).SetState(e, fsm.Occupied)
	e.FSM.Node(2).SetOnceOcc(true)
	e.FSM.Node(3).SetState(e, fsm.Occupied)
	// node 2 was never locked.

	e.sweepOnce()

	assert.Equal(t, fsm.Occupied, e.FSM.Node(2).State())
}

func TestNextRouteNodePrefersLeftThenRight(t *testing.T) {
	nodes := chainNodes([3]raw.NodeKind{raw.Normal, raw.Normal, raw.Normal})
	e := newTestEngine(t, nodes, nil, nil)

	e.FSM.Node(2).Lock(e)
	tr := fsm.NewTrain(1, 1)

	next, dir, ok := e.nextRouteNode(1, tr)
	require.True(t, ok)
	assert.Equal(t, raw.NodeID(2), next)
	assert.Equal(t, raw.Right, dir)
}

func TestNextRouteNodeExcludesHistory(t *testing.T) {
	nodes := chainNodes([3]raw.NodeKind{raw.Normal, raw.Normal, raw.Normal})
	e := newTestEngine(t, nodes, nil, nil)

	e.FSM.Node(1).Lock(e)
	e.FSM.Node(2).Lock(e)
	tr := fsm.NewTrain(1, 2)
	tr.MoveTo(e, 1, raw.Left, e.FSM) // pastNode becomes [2, 1]; 2 is history.

	_, _, ok := e.nextRouteNode(1, tr)
	assert.False(t, ok, "node 2 is already in the train's history and must not be revisited")
}
