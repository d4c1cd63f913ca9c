/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FailureRecord is one unit that could not be rendered during a run.
type FailureRecord struct {
	RunID string
	Unit  string
	Error string
	TS    time.Time
}

// NewRunID returns a fresh identifier for one batch run.
func NewRunID() string { return uuid.NewString() }

// RecordFailures appends the failures of a run to the ledger.
func (w *Workspace) RecordFailures(ctx context.Context, runID string, failures []FailureRecord) error {
	if runID == "" {
		return errors.New("run id is required")
	}
	if len(failures) == 0 {
		return nil
	}
	db, err := InitOrOpenIndex(w.Root)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO failures(run_id, unit, error, ts) VALUES(?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	now := time.Now().UTC()
	for _, f := range failures {
		ts := f.TS
		if ts.IsZero() {
			ts = now
		}
		if _, err := ins.ExecContext(ctx, runID, f.Unit, f.Error, ts.UTC().Format(tsLayout)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert failure: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Failures returns the failures of runID in insertion order. An empty runID
// selects the most recent run that recorded any failure.
func (w *Workspace) Failures(ctx context.Context, runID string) ([]FailureRecord, error) {
	db, err := InitOrOpenIndex(w.Root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	if runID == "" {
		err := db.QueryRowContext(ctx, `SELECT run_id FROM failures ORDER BY id DESC LIMIT 1`).Scan(&runID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("latest run: %w", err)
		}
	}
	rows, err := db.QueryContext(ctx, `SELECT run_id, unit, error, ts FROM failures WHERE run_id=? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failure query: %w", err)
	}
	defer rows.Close()
	var out []FailureRecord
	for rows.Next() {
		var f FailureRecord
		var ts string
		if err := rows.Scan(&f.RunID, &f.Unit, &f.Error, &ts); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		f.TS, _ = time.Parse(tsLayout, ts)
		out = append(out, f)
	}
	return out, rows.Err()
}
