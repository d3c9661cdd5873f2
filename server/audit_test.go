package server

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rinmyo/uroj-go/fsm"
	"github.com/rinmyo/uroj-go/raw"
)

func TestRecordAuditFromFrameSignal(t *testing.T) {
	before := len(audits.getSince(0, 1_000_000))

	recordAuditFromFrame("inst-1", fsm.Frame{
		Kind: fsm.FrameUpdateSignal,
		Data: fsm.UpdateSignal{ID: "S1", State: fsm.AspectU},
	})

	after := audits.getSince(0, 1_000_000)
	require.Len(t, after, before+1)
	last := after[len(after)-1]
	assert.Equal(t, "SIGNAL_ASPECT_CHANGED", last.Event)
	assert.Equal(t, "inst-1", last.InstanceID)
	assert.Equal(t, "S1", last.Details["signalId"])
}

func TestRecordAuditFromFrameGlobalStatusSkipped(t *testing.T) {
	before := len(audits.getSince(0, 1_000_000))

	recordAuditFromFrame("inst-1", fsm.Frame{
		Kind: fsm.FrameUpdateGlobalStatus,
		Data: fsm.UpdateGlobalStatus{},
	})

	after := len(audits.getSince(0, 1_000_000))
	assert.Equal(t, before, after, "a resync snapshot must not be logged as an event")
}

func TestRecordAuditFromFrameTrainMove(t *testing.T) {
	recordAuditFromFrame("inst-2", fsm.Frame{
		Kind: fsm.FrameMoveTrain,
		Data: fsm.MoveTrain{ID: 3, NodeID: raw.NodeID(7), Progress: 0.5, Dir: raw.Right},
	})

	all := audits.getSince(0, 1_000_000)
	last := all[len(all)-1]
	assert.Equal(t, "TRAIN_MOVED", last.Event)
	assert.Equal(t, 3, last.Details["trainId"])
}

func TestAuditGetSinceFiltersByID(t *testing.T) {
	recordAuditFromFrame("inst-3", fsm.Frame{Kind: fsm.FrameUpdateNode, Data: fsm.UpdateNode{ID: 1, State: fsm.Occupied}})
	all := audits.getSince(0, 1_000_000)
	require.NotEmpty(t, all)
	lastID, err := strconv.ParseInt(all[len(all)-1].ID, 10, 64)
	require.NoError(t, err)

	recordAuditFromFrame("inst-3", fsm.Frame{Kind: fsm.FrameUpdateNode, Data: fsm.UpdateNode{ID: 2, State: fsm.Vacant}})

	onlyNew := audits.getSince(lastID, 1_000_000)
	require.Len(t, onlyNew, 1)
	assert.Equal(t, raw.NodeID(2), onlyNew[0].Details["nodeId"])
}

func TestAuditSubscribeReceivesNewEntries(t *testing.T) {
	ch := audits.subscribe()
	defer audits.unsubscribe(ch)

	recordAuditFromFrame("inst-4", fsm.Frame{Kind: fsm.FrameUpdateSignal, Data: fsm.UpdateSignal{ID: "S9", State: fsm.AspectL}})

	entry := <-ch
	assert.Equal(t, "inst-4", entry.InstanceID)
	assert.Equal(t, "S9", entry.Details["signalId"])
}
