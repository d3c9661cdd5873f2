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

// Package exam is the optional per-instance scoring component: it holds the
// question set and current per-question scores, grades route-construction
// outcomes, and persists scores at instance termination.
package exam

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/rinmyo/uroj-go/fsm"
	"github.com/rinmyo/uroj-go/raw"
	"github.com/rinmyo/uroj-go/store"
)

// Outcome is a graded question's terminal state.
type Outcome string

const (
	Completed Outcome = "COMPLETED"
	Expired   Outcome = "EXPIRED"
	Skip      Outcome = "SKIP"
)

// Question is one immutable exam question for the instance's lifetime.
type Question struct {
	ID      int
	Title   string
	From    raw.NodeID
	To      raw.NodeID
	ErrNode []raw.NodeID
	ErrSgn  bool
	Score   int
}

// Manager is the per-instance exam state: the question set plus each
// question's current score, initially ungraded.
type Manager struct {
	mu        sync.Mutex
	questions []Question
	scores    map[int]int
	graded    map[int]bool
}

// NewManager builds a Manager from the store-backed question records
// attached to one instance.
func NewManager(questions []Question) *Manager {
	return &Manager{
		questions: questions,
		scores:    make(map[int]int),
		graded:    make(map[int]bool),
	}
}

// Questions returns the immutable question list for client display.
func (m *Manager) Questions() []Question {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Question, len(m.questions))
	copy(out, m.questions)
	return out
}

// UpdateState grades one question: Completed scores its point value,
// Expired and Skip score zero. Emits an UpdateQuestion frame.
func (m *Manager) UpdateState(sink fsm.Sink, questionID int, outcome Outcome) {
	m.mu.Lock()
	score := 0
	if outcome == Completed {
		for _, q := range m.questions {
			if q.ID == questionID {
				score = q.Score
				break
			}
		}
	}
	m.scores[questionID] = score
	m.graded[questionID] = true
	m.mu.Unlock()

	sink.Broadcast(fsm.Frame{Kind: fsm.FrameUpdateQuestion, Data: fsm.UpdateQuestion{
		ID: questionID, Outcome: string(outcome),
	}})
}

// NoteRoute matches a just-created route's (from, to) endpoints against
// every question's (from, to) and, on a match, grades it Completed,
// emitting an UpdateQuestion frame. This is the engine's grading hook from
// CreateRoute.
func (m *Manager) NoteRoute(sink fsm.Sink, from, to raw.NodeID) {
	m.mu.Lock()
	var matched int
	found := false
	for _, q := range m.questions {
		if q.From == from && q.To == to {
			matched = q.ID
			found = true
			break
		}
	}
	m.mu.Unlock()

	if found {
		m.UpdateState(sink, matched, Completed)
	}
}

// Persist upserts every graded question's score via the external storage
// interface, at instance termination.
func (m *Manager) Persist(ctx context.Context, instanceID uuid.UUID, st store.Store) error {
	m.mu.Lock()
	graded := make(map[int]int, len(m.graded))
	for qid := range m.graded {
		graded[qid] = m.scores[qid]
	}
	m.mu.Unlock()

	for qid, score := range graded {
		if err := st.UpdateScore(ctx, instanceID, qid, score); err != nil {
			return fmt.Errorf("exam: persisting score for question %d: %w", qid, err)
		}
	}
	return nil
}
