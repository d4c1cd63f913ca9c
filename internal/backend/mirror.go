/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/OneOfOne/xxhash"
	"github.com/google/uuid"

	"storywiki/internal/storage"
)

// Upsert writes pages into the mirror, replacing rows with the same title.
// Rows whose stored hash already matches are not touched. It returns the
// number of rows written.
func (m *Mirror) Upsert(ctx context.Context, pages []storage.Page) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	const q = `INSERT INTO pages(title, kind, hash, body, characters, music, updated_at)
		VALUES($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (title) DO UPDATE SET
			kind = EXCLUDED.kind, hash = EXCLUDED.hash, body = EXCLUDED.body,
			characters = EXCLUDED.characters, music = EXCLUDED.music, updated_at = now()
		WHERE pages.hash <> EXCLUDED.hash`
	written := 0
	for _, p := range pages {
		chars := p.Characters
		if chars == nil {
			chars = []string{}
		}
		music := p.Music
		if music == nil {
			music = []int64{}
		}
		kind := p.Kind
		if kind == "" {
			kind = storage.KindStory
		}
		res, err := tx.ExecContext(ctx, q, p.Title, kind, int64(xxhash.ChecksumString32(p.Text)), p.Text, chars, music)
		if err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("upsert %q: %w", p.Title, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			written++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	m.log.Info("pages mirrored", slog.Int("written", written), slog.Int("total", len(pages)))
	return written, nil
}

// RecordFailures copies the failures of one run into the mirror.
func (m *Mirror) RecordFailures(ctx context.Context, runID string, failures []storage.FailureRecord) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}
	for _, f := range failures {
		if _, err := m.db.ExecContext(ctx, `INSERT INTO failures(run_id, unit, error) VALUES($1, $2, $3)`, id, f.Unit, f.Error); err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}
	return nil
}

// Search runs q against the mirror with the same filters as the workspace
// index, so results can be compared one to one.
func (m *Mirror) Search(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if strings.TrimSpace(q.Text) != "" {
		tq := place(q.Text)
		b.WriteString("SELECT p.title, p.kind, ")
		b.WriteString("COALESCE(ts_headline('simple', p.body, plainto_tsquery('simple', " + tq + "), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') ")
		b.WriteString("FROM pages p WHERE p.search_vector @@ plainto_tsquery('simple', " + tq + ") ")
	} else {
		b.WriteString("SELECT p.title, p.kind, '' FROM pages p WHERE TRUE ")
	}
	if s := strings.TrimSpace(q.Kind); s != "" {
		b.WriteString(" AND p.kind = " + place(s) + " ")
	}
	if s := strings.TrimSpace(q.Character); s != "" {
		ss := strings.ToLower(s)
		b.WriteString(" AND EXISTS (SELECT 1 FROM unnest(p.characters) c WHERE lower(c) = " + place(ss) + " OR lower(c) LIKE " + place(ss+" (%") + ") ")
	}
	if q.Music != 0 {
		b.WriteString(" AND " + place(q.Music) + " = ANY (p.music) ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	b.WriteString(" ORDER BY p.title ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(max(q.Offset, 0)))

	rows, err := m.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		if err := rows.Scan(&r.Title, &r.Kind, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
