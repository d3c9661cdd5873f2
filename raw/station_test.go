package raw

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeLength(t *testing.T) {
	n := Node{Line: [2]Point{{X: 0, Y: 0}, {X: 3, Y: 4}}}
	assert.InDelta(t, 5.0, n.Length(), 1e-9)
}

func TestDirectionReverse(t *testing.T) {
	assert.Equal(t, Right, Left.Reverse())
	assert.Equal(t, Left, Right.Reverse())
}

func TestFromYAMLRoundTrip(t *testing.T) {
	doc := []byte(`
title: Test Station
nodes:
  - id: 1
    nodeKind: MAINLINE
    trackId: "T1"
    leftAdj: [2]
    rightAdj: []
    conflictedNodes: []
    line:
      - {x: 0, y: 0}
      - {x: 0, y: 10}
    joint: [NORMAL, NORMAL]
  - id: 2
    nodeKind: NORMAL
    trackId: "T2"
    leftAdj: []
    rightAdj: [1]
    conflictedNodes: []
    line:
      - {x: 0, y: 10}
      - {x: 0, y: 20}
    joint: [NORMAL, END]
signals:
  - id: "S1"
    isUp: true
    sgnKind: HOME_SIGNAL
    sgnMnt: POST_MOUNTING
    protectNodeId: 1
    towardNodeId: 2
    btns: ["TRAIN"]
independent_btns: []
`)
	st, err := FromYAML(doc)
	require.NoError(t, err)
	require.Len(t, st.Nodes, 2)
	assert.Equal(t, "Test Station", st.Title)
	assert.Equal(t, NodeID(1), st.Nodes[0].ID)
	assert.Equal(t, Mainline, st.Nodes[0].Kind)
	assert.InDelta(t, 10.0, st.Nodes[0].Length(), 1e-9)
	require.Len(t, st.Signals, 1)
	assert.Equal(t, HomeSignal, st.Signals[0].Kind)
	assert.Equal(t, []ButtonKind{Train}, st.Signals[0].Buttons)
}

func TestFromJSONRoundTrip(t *testing.T) {
	doc := []byte(`{
		"title": "JSON Station",
		"nodes": [{
			"id": 1, "nodeKind": "SIDING", "trackId": "T1",
			"leftAdj": [], "rightAdj": [], "conflictedNodes": [],
			"line": [{"x":0,"y":0},{"x":1,"y":0}],
			"joint": ["NORMAL", "NORMAL"]
		}],
		"signals": [],
		"independent_btns": [{
			"id": "B1", "kind": "PASS", "pos": {"x":0,"y":0}, "protectNodeId": 1
		}]
	}`)
	st, err := FromJSON(doc)
	require.NoError(t, err)
	assert.Equal(t, "JSON Station", st.Title)
	require.Len(t, st.IndependentBtns, 1)
	assert.Equal(t, Pass, st.IndependentBtns[0].Kind)
	assert.Equal(t, NodeID(1), st.IndependentBtns[0].ProtectNodeID)
}

func TestFromYAMLInvalid(t *testing.T) {
	_, err := FromYAML([]byte("not: [valid: yaml"))
	assert.Error(t, err)
}

func TestFromJSONInvalid(t *testing.T) {
	_, err := FromJSON([]byte("{not json"))
	assert.Error(t, err)
}
