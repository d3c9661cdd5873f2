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

package instance

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/rinmyo/uroj-go/exam"
	"github.com/rinmyo/uroj-go/raw"
	"github.com/rinmyo/uroj-go/store"
)

// Load builds an Engine from a persisted instance record: the station
// document, the exam question sheet attached to the instance, and the
// lifecycle bookkeeping (begin_at, player, token). cfg supplies the
// process-level knobs (buffer size, sweep interval, three-point delay);
// everything record-derived on it is overwritten here.
func Load(ctx context.Context, st store.Store, id uuid.UUID, cfg Config) (*Engine, error) {
	rec, err := st.FindInstance(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: instance %s", ErrNotFound, id)
	}

	doc, err := st.GetStation(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("instance: loading station document: %w", err)
	}
	station, err := raw.FromYAML(doc)
	if err != nil {
		return nil, err
	}

	rows, err := st.GetScores(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("instance: loading score sheet: %w", err)
	}
	var questions []exam.Question
	for _, row := range rows {
		q, err := st.GetQuestion(ctx, row.QuestionID)
		if err != nil {
			return nil, fmt.Errorf("instance: loading question %d: %w", row.QuestionID, err)
		}
		errNodes := make([]raw.NodeID, len(q.ErrNode))
		for i, n := range q.ErrNode {
			errNodes[i] = raw.NodeID(n)
		}
		questions = append(questions, exam.Question{
			ID:      q.ID,
			Title:   q.Title,
			From:    raw.NodeID(q.FromNode),
			To:      raw.NodeID(q.ToNode),
			ErrNode: errNodes,
			ErrSgn:  q.ErrSgn,
			Score:   q.Score,
		})
	}

	cfg.ID = id.String()
	cfg.Title = rec.Title
	cfg.PlayerID = rec.PlayerID
	cfg.Token = rec.Token
	cfg.BeginAt = rec.BeginAt
	cfg.Station = station
	cfg.Questions = questions
	return New(cfg)
}

func (e *Engine) recordID() (uuid.UUID, error) {
	uid, err := uuid.Parse(e.id)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("%w: instance %s has no store record", ErrNotFound, e.id)
	}
	return uid, nil
}

// RunWith is Run plus the persistence side of the lifecycle: the external
// record's state is advanced to PLAYING once the engine has started.
func (e *Engine) RunWith(ctx context.Context, st store.Store) error {
	uid, err := e.recordID()
	if err != nil {
		return err
	}
	if err := e.Run(); err != nil {
		return err
	}
	if err := st.UpdateInstanceState(ctx, uid, string(Playing)); err != nil {
		return fmt.Errorf("instance: recording state: %w", err)
	}
	return nil
}

// StopWith is Stop plus the persistence side of termination: every graded
// exam score is upserted and the record's state is advanced to FINISHED.
func (e *Engine) StopWith(ctx context.Context, st store.Store) error {
	uid, err := e.recordID()
	if err != nil {
		return err
	}
	e.Stop()
	if err := e.Exam.Persist(ctx, uid, st); err != nil {
		return err
	}
	if err := st.UpdateInstanceState(ctx, uid, string(Finished)); err != nil {
		return fmt.Errorf("instance: recording state: %w", err)
	}
	return nil
}
