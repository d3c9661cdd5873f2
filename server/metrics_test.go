package server

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/rinmyo/uroj-go/fsm"
)

func TestRecordCommandTalliesByOutcome(t *testing.T) {
	before := testutil.ToFloat64(commandsTotal.WithLabelValues("instance", "run", "ok"))
	recordCommand("instance", "run", nil)
	after := testutil.ToFloat64(commandsTotal.WithLabelValues("instance", "run", "ok"))
	assert.Equal(t, before+1, after)
}

func TestRecordRouteOutcome(t *testing.T) {
	beforeOK := testutil.ToFloat64(routesCreatedTotal.WithLabelValues("ok"))
	recordRouteOutcome(nil)
	assert.Equal(t, beforeOK+1, testutil.ToFloat64(routesCreatedTotal.WithLabelValues("ok")))

	beforeConflict := testutil.ToFloat64(routesCreatedTotal.WithLabelValues("conflict"))
	recordRouteOutcome(assertError{})
	assert.Equal(t, beforeConflict+1, testutil.ToFloat64(routesCreatedTotal.WithLabelValues("conflict")))
}

func TestRecordFrame(t *testing.T) {
	before := testutil.ToFloat64(framesBroadcastTotal.WithLabelValues(string(fsm.FrameMoveTrain)))
	recordFrame(fsm.FrameMoveTrain)
	after := testutil.ToFloat64(framesBroadcastTotal.WithLabelValues(string(fsm.FrameMoveTrain)))
	assert.Equal(t, before+1, after)
}

type assertError struct{}

func (assertError) Error() string { return "boom" }
