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

// Package store is the external persistence interface the engine consumes
// but never owns: instance/station/question records live in a real
// database in production; the engine only ever calls through this
// interface to load an instance from its record, at run/stop time, and to
// persist exam scores.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// InstanceRecord is one persisted instance row.
type InstanceRecord struct {
	ID          uuid.UUID
	Title       string
	Description string
	PlayerID    string
	StationID   int
	CurrState   string
	BeginAt     time.Time
	ExecutorID  int
	Token       string
}

// Question is one persisted exam question row.
type Question struct {
	ID      int
	Title   string
	FromNode uint
	ToNode   uint
	ErrNode  []uint
	ErrSgn   bool
	Score    int
}

// InstanceQuestion is one exam question's graded score within one
// instance.
type InstanceQuestion struct {
	ID         int
	InstanceID uuid.UUID
	QuestionID int
	Score      *int
}

// Store is the persistence boundary the engine calls through. A real
// implementation backs it with a database; tests use the in-memory
// MemStore (memstore.go).
type Store interface {
	FindInstance(ctx context.Context, id uuid.UUID) (InstanceRecord, error)
	GetStation(ctx context.Context, rec InstanceRecord) ([]byte, error)
	GetScores(ctx context.Context, rec InstanceRecord) ([]InstanceQuestion, error)
	GetQuestion(ctx context.Context, questionID int) (Question, error)
	UpdateInstanceState(ctx context.Context, id uuid.UUID, state string) error
	UpdateScore(ctx context.Context, instanceID uuid.UUID, questionID int, score int) error
}
