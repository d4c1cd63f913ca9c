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
	"errors"
	"fmt"
	"time"
)

// tsLayout keeps fixed-width fractions so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// language=SQL
// dialect=SQLite
const insertRevisionSQL = `INSERT INTO revisions(title, hash, ts, text) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listRevisionsSQL = `SELECT hash, ts, text FROM revisions WHERE title=? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneRevisionsSQL = `DELETE FROM revisions WHERE title=? AND id NOT IN (
	SELECT id FROM revisions WHERE title=? ORDER BY ts DESC, id DESC LIMIT ?
)`

// Revision is one stored version of a page.
type Revision struct {
	TS   time.Time
	Hash int64
	Text string
}

// Revisions returns up to limit most recent revisions of a page, newest first.
func (w *Workspace) Revisions(ctx context.Context, title string, limit int) ([]Revision, error) {
	if title == "" {
		return nil, errors.New("page title is required")
	}
	if limit <= 0 {
		limit = 50
	}
	db, err := InitOrOpenIndex(w.Root)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()
	rows, err := db.QueryContext(ctx, listRevisionsSQL, title, limit)
	if err != nil {
		return nil, fmt.Errorf("revision query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		var r Revision
		var ts string
		if err := rows.Scan(&r.Hash, &ts, &r.Text); err != nil {
			return nil, err
		}
		r.TS, _ = time.Parse(tsLayout, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneRevisions keeps at most keepLast revisions of a page and deletes older
// ones.
func (w *Workspace) PruneRevisions(ctx context.Context, title string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	db, err := InitOrOpenIndex(w.Root)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()
	res, err := db.ExecContext(ctx, pruneRevisionsSQL, title, title, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
