package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rinmyo/uroj-go/raw"
)

func TestNewResolvesProtectingSignalSides(t *testing.T) {
	nodes := []raw.Node{
		{ID: 1, Line: [2]raw.Point{{X: 0, Y: 0}, {X: 1, Y: 0}}},
	}
	signals := []raw.Signal{
		{ID: "SL", ProtectNodeID: 1, TowardNodeID: 1},
		{ID: "SR", ProtectNodeID: 1, TowardNodeID: 1},
	}
	dirOf := func(s raw.Signal) raw.Direction {
		if s.ID == "SL" {
			return raw.Left
		}
		return raw.Right
	}

	f := New(nodes, signals, dirOf)
	n := f.Node(1)
	require.NotNil(t, n)

	// A signal is registered on the end of its protected node matching its
	// own facing; the traffic it governs travels the opposite way and
	// arrives at that same end.
	assert.Equal(t, "SL", n.LeftSignalID)
	assert.Equal(t, "SR", n.RightSignalID)
}

func TestNodesAndSignalsListing(t *testing.T) {
	nodes := []raw.Node{{ID: 1}, {ID: 2}}
	signals := []raw.Signal{{ID: "S1", ProtectNodeID: 1}}
	f := New(nodes, signals, func(raw.Signal) raw.Direction { return raw.Right })

	assert.ElementsMatch(t, []raw.NodeID{1, 2}, f.Nodes())
	assert.ElementsMatch(t, []string{"S1"}, f.Signals())
	assert.Nil(t, f.Node(99))
	assert.Nil(t, f.Signal("unknown"))
}

func TestSnapshotReportsEveryEntity(t *testing.T) {
	nodes := []raw.Node{{ID: 1}, {ID: 2}}
	signals := []raw.Signal{{ID: "S1", ProtectNodeID: 1}}
	f := New(nodes, signals, func(raw.Signal) raw.Direction { return raw.Right })

	snap := f.Snapshot()
	assert.Len(t, snap.Nodes, 2)
	assert.Len(t, snap.Signals, 1)
}
