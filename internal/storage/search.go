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
	"fmt"
	"strings"
)

// SearchQuery describes a search over the indexed pages.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT).
// Filters are optional; Music 0 means unset.
type SearchQuery struct {
	Text      string
	Kind      string
	Character string
	Music     int64
	Limit     int
	Offset    int
}

// SearchResult is a single matching page. Snippet marks matches with [ ]
// when Text was given.
type SearchResult struct {
	Title   string
	Kind    string
	Snippet string
}

// Search performs full-text search with optional filters over the index.
// When q.Text is empty, it falls back to a plain scan with filters applied.
func (w *Workspace) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	db, err := InitOrOpenIndex(w.Root)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return searchDB(ctx, db, q)
}

func searchDB(ctx context.Context, db *sql.DB, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT p.title, p.kind, snippet(fts_pages, 1, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_pages JOIN pages p ON fts_pages.rowid = p.page_id\n")
		sb.WriteString("WHERE fts_pages MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT p.title, p.kind, ''\n")
		sb.WriteString("FROM pages p\nWHERE 1=1\n")
	}
	if s := strings.TrimSpace(q.Kind); s != "" {
		sb.WriteString(" AND p.kind = ?\n")
		args = append(args, s)
	}
	if s := strings.TrimSpace(q.Character); s != "" {
		sb.WriteString(" AND p.title IN (SELECT title FROM page_characters WHERE lower(name) = ? OR lower(name) LIKE ?)\n")
		ss := strings.ToLower(s)
		args = append(args, ss, ss+" (%")
	}
	if q.Music != 0 {
		sb.WriteString(" AND p.title IN (SELECT title FROM page_music WHERE bgm_id = ?)\n")
		args = append(args, q.Music)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := max(q.Offset, 0)
	sb.WriteString("ORDER BY p.title\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var sn sql.NullString
		if err := rows.Scan(&r.Title, &r.Kind, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}
