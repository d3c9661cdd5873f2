package exam

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rinmyo/uroj-go/fsm"
	"github.com/rinmyo/uroj-go/raw"
	"github.com/rinmyo/uroj-go/store"
)

type recordingSink struct {
	mu     sync.Mutex
	frames []fsm.Frame
}

func (r *recordingSink) Broadcast(f fsm.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, f)
}

func (r *recordingSink) last() fsm.Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames[len(r.frames)-1]
}

func testQuestions() []Question {
	return []Question{
		{ID: 1, Title: "Receive at platform 2", From: 10, To: 20, Score: 5},
		{ID: 2, Title: "Shunt to siding", From: 30, To: 40, Score: 3},
	}
}

func TestQuestionsReturnsACopy(t *testing.T) {
	m := NewManager(testQuestions())
	qs := m.Questions()
	require.Len(t, qs, 2)
	qs[0].Title = "mutated"
	assert.Equal(t, "Receive at platform 2", m.Questions()[0].Title)
}

func TestUpdateStateCompletedScoresPoints(t *testing.T) {
	m := NewManager(testQuestions())
	sink := &recordingSink{}

	m.UpdateState(sink, 1, Completed)
	assert.Equal(t, 5, m.scores[1])

	last := sink.last()
	assert.Equal(t, fsm.FrameUpdateQuestion, last.Kind)
	data := last.Data.(fsm.UpdateQuestion)
	assert.Equal(t, 1, data.ID)
	assert.Equal(t, string(Completed), data.Outcome)
}

func TestUpdateStateExpiredScoresZero(t *testing.T) {
	m := NewManager(testQuestions())
	sink := &recordingSink{}

	m.UpdateState(sink, 1, Expired)

	id := uuid.New()
	st := store.NewMemStore()
	st.PutInstance(store.InstanceRecord{ID: id}, nil)
	st.PutQuestion(id, store.Question{ID: 1, Score: 5})

	require.NoError(t, m.Persist(context.Background(), id, st))

	scores, err := st.GetScores(context.Background(), store.InstanceRecord{ID: id})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	require.NotNil(t, scores[0].Score)
	assert.Equal(t, 0, *scores[0].Score)
}

func TestNoteRouteMatchesFromTo(t *testing.T) {
	m := NewManager(testQuestions())
	sink := &recordingSink{}

	m.NoteRoute(sink, raw.NodeID(30), raw.NodeID(40))

	last := sink.last()
	data := last.Data.(fsm.UpdateQuestion)
	assert.Equal(t, 2, data.ID)
	assert.Equal(t, string(Completed), data.Outcome)
}

func TestNoteRouteNoMatchEmitsNothing(t *testing.T) {
	m := NewManager(testQuestions())
	sink := &recordingSink{}

	m.NoteRoute(sink, raw.NodeID(1), raw.NodeID(2))

	assert.Empty(t, sink.frames)
}

func TestPersistUpsertsOnlyGradedQuestions(t *testing.T) {
	m := NewManager(testQuestions())
	sink := &recordingSink{}
	m.UpdateState(sink, 1, Completed)

	instanceID := uuid.New()
	st := store.NewMemStore()
	st.PutInstance(store.InstanceRecord{ID: instanceID}, nil)
	st.PutQuestion(instanceID, store.Question{ID: 1, Score: 5})
	st.PutQuestion(instanceID, store.Question{ID: 2, Score: 3})

	require.NoError(t, m.Persist(context.Background(), instanceID, st))

	rows, err := st.GetScores(context.Background(), store.InstanceRecord{ID: instanceID})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	var gradedScore, ungradedScore *int
	for _, r := range rows {
		if r.QuestionID == 1 {
			gradedScore = r.Score
		}
		if r.QuestionID == 2 {
			ungradedScore = r.Score
		}
	}
	require.NotNil(t, gradedScore)
	assert.Equal(t, 5, *gradedScore)
	assert.Nil(t, ungradedScore, "an ungraded question must not be upserted")
}
