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

package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemStore is an in-memory Store, used by engine tests so they never touch
// a real database.
type MemStore struct {
	mu        sync.Mutex
	instances map[uuid.UUID]InstanceRecord
	stations  map[uuid.UUID][]byte
	questions map[int]Question
	scores    map[uuid.UUID][]InstanceQuestion
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		instances: make(map[uuid.UUID]InstanceRecord),
		stations:  make(map[uuid.UUID][]byte),
		questions: make(map[int]Question),
		scores:    make(map[uuid.UUID][]InstanceQuestion),
	}
}

// PutInstance seeds an instance record and its station document.
func (m *MemStore) PutInstance(rec InstanceRecord, stationDoc []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[rec.ID] = rec
	m.stations[rec.ID] = stationDoc
}

// PutQuestion seeds a question, attaching it to an instance's score sheet.
func (m *MemStore) PutQuestion(instanceID uuid.UUID, q Question) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.questions[q.ID] = q
	m.scores[instanceID] = append(m.scores[instanceID], InstanceQuestion{
		ID:         len(m.scores[instanceID]) + 1,
		InstanceID: instanceID,
		QuestionID: q.ID,
	})
}

func (m *MemStore) FindInstance(_ context.Context, id uuid.UUID) (InstanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.instances[id]
	if !ok {
		return InstanceRecord{}, fmt.Errorf("store: unknown instance %s", id)
	}
	return rec, nil
}

func (m *MemStore) GetStation(_ context.Context, rec InstanceRecord) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.stations[rec.ID]
	if !ok {
		return nil, fmt.Errorf("store: no station document for instance %s", rec.ID)
	}
	return doc, nil
}

func (m *MemStore) GetScores(_ context.Context, rec InstanceRecord) ([]InstanceQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]InstanceQuestion, len(m.scores[rec.ID]))
	copy(out, m.scores[rec.ID])
	return out, nil
}

func (m *MemStore) GetQuestion(_ context.Context, questionID int) (Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[questionID]
	if !ok {
		return Question{}, fmt.Errorf("store: unknown question %d", questionID)
	}
	return q, nil
}

func (m *MemStore) UpdateInstanceState(_ context.Context, id uuid.UUID, state string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.instances[id]
	if !ok {
		return fmt.Errorf("store: unknown instance %s", id)
	}
	rec.CurrState = state
	m.instances[id] = rec
	return nil
}

func (m *MemStore) UpdateScore(_ context.Context, instanceID uuid.UUID, questionID int, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.scores[instanceID]
	for i, row := range rows {
		if row.QuestionID == questionID {
			s := score
			rows[i].Score = &s
			return nil
		}
	}
	return fmt.Errorf("store: no instance_question row for instance %s question %d", instanceID, questionID)
}

var _ Store = (*MemStore)(nil)
