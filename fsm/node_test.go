package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rinmyo/uroj-go/raw"
)

func rawNode(id raw.NodeID, kind raw.NodeKind) raw.Node {
	return raw.Node{
		ID:   id,
		Kind: kind,
		Line: [2]raw.Point{{X: 0, Y: 0}, {X: 3, Y: 4}},
	}
}

func TestNewNodeStartsVacant(t *testing.T) {
	n := NewNode(rawNode(1, raw.Mainline))
	assert.Equal(t, raw.NodeID(1), n.ID())
	assert.Equal(t, raw.Mainline, n.Kind())
	assert.InDelta(t, 5.0, n.Length(), 1e-9)
	assert.Equal(t, Vacant, n.Status())
	assert.Equal(t, Vacant, n.State())
	assert.False(t, n.IsLock())
	assert.False(t, n.OnceOcc())
	assert.Equal(t, uint32(0), n.UsedCount())
}

func TestNodeLockOverlaysStatus(t *testing.T) {
	n := NewNode(rawNode(1, raw.Normal))
	sink := &recordingSink{}

	n.SetState(sink, Occupied)
	assert.Equal(t, Occupied, n.Status())

	n.Lock(sink)
	assert.True(t, n.IsLock())
	// State() reports the underlying occupancy, ignoring the lock overlay.
	assert.Equal(t, Occupied, n.State())
	// Status() reports the overlay.
	assert.Equal(t, Lock, n.Status())

	last := sink.last()
	assert.Equal(t, FrameUpdateNode, last.Kind)
	data := last.Data.(UpdateNode)
	assert.Equal(t, Lock, data.State)

	n.Unlock(sink)
	assert.False(t, n.IsLock())
	assert.Equal(t, Occupied, n.Status())
}

func TestNodeLockResetsOnceOcc(t *testing.T) {
	n := NewNode(rawNode(1, raw.Normal))
	sink := &recordingSink{}

	n.SetOnceOcc(true)
	assert.True(t, n.OnceOcc())

	n.Lock(sink)
	assert.False(t, n.OnceOcc())
}

func TestNodeUsedCountFloorsAtZero(t *testing.T) {
	n := NewNode(rawNode(1, raw.Normal))

	n.DecUsedCount()
	assert.Equal(t, uint32(0), n.UsedCount())

	n.IncUsedCount()
	n.IncUsedCount()
	assert.Equal(t, uint32(2), n.UsedCount())

	n.DecUsedCount()
	assert.Equal(t, uint32(1), n.UsedCount())
}

func TestNodeSetStateBroadcasts(t *testing.T) {
	n := NewNode(rawNode(1, raw.Normal))
	sink := &recordingSink{}

	n.SetState(sink, Unexpected)
	assert.Equal(t, 1, sink.count())
	data := sink.last().Data.(UpdateNode)
	assert.Equal(t, raw.NodeID(1), data.ID)
	assert.Equal(t, Unexpected, data.State)
}
