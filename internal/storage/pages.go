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
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/OneOfOne/xxhash"

	applog "storywiki/internal/log"
)

// Page kinds.
const (
	KindStory    = "story"
	KindMomoTalk = "momotalk"
)

// Page is one rendered wiki page together with the facts the index keeps
// about it.
type Page struct {
	Title      string
	Kind       string
	Text       string
	Characters []string
	Music      []int64
}

var (
	reCharList = regexp.MustCompile(`\{\{Story/CharList \|([^}]*)\}\}`)
	reBGMList  = regexp.MustCompile(`\{\{Story/BGMList \|([^}]*)\}\}`)
)

// PageFromText recovers a Page from stored page text, reading characters and
// music back from the list templates of the category block.
func PageFromText(title, text string) Page {
	p := Page{Title: title, Kind: KindStory, Text: text}
	if strings.Contains(text, "[[Category:MomoTalk]]") {
		p.Kind = KindMomoTalk
	}
	if m := reCharList.FindStringSubmatch(text); m != nil {
		for _, name := range strings.Split(m[1], "|") {
			if name = strings.TrimSpace(name); name != "" {
				p.Characters = append(p.Characters, name)
			}
		}
	}
	if m := reBGMList.FindStringSubmatch(text); m != nil {
		for _, id := range strings.Split(m[1], "|") {
			if n, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64); err == nil {
				p.Music = append(p.Music, n)
			}
		}
	}
	return p
}

func pageHash(text string) int64 { return int64(xxhash.ChecksumString32(text)) }

// SaveResult reports what SavePages did.
type SaveResult struct {
	Written   []string
	Unchanged []string
	Pruned    int64
}

// SavePages writes every page whose text changed since the last save,
// indexes it and records a revision. Pages with unchanged text are left
// alone.
func (w *Workspace) SavePages(ctx context.Context, pages []Page) (SaveResult, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "save_pages")
	var res SaveResult
	db, err := InitOrOpenIndex(w.Root)
	if err != nil {
		return res, err
	}
	defer db.Close()

	for _, p := range pages {
		if strings.TrimSpace(p.Title) == "" {
			return res, errors.New("page title is required")
		}
		if p.Kind == "" {
			p.Kind = KindStory
		}
		hash := pageHash(p.Text)
		var stored int64
		err := db.QueryRowContext(ctx, `SELECT hash FROM pages WHERE title=?`, p.Title).Scan(&stored)
		switch {
		case err == nil && stored == hash:
			if text, rerr := w.ReadPage(p.Title); rerr == nil && text == p.Text {
				res.Unchanged = append(res.Unchanged, p.Title)
				continue
			}
		case err != nil && !errors.Is(err, sql.ErrNoRows):
			return res, fmt.Errorf("read page hash: %w", err)
		}

		prev, existed, err := w.currentPage(p.Title)
		if err != nil {
			return res, fmt.Errorf("page %q: %w", p.Title, err)
		}
		now := time.Now().UTC()
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return res, fmt.Errorf("begin tx: %w", err)
		}
		if err := indexPage(ctx, tx, p, now); err != nil {
			_ = tx.Rollback()
			return res, err
		}
		if _, err := tx.ExecContext(ctx, insertRevisionSQL, p.Title, hash, now.Format(tsLayout), p.Text); err != nil {
			_ = tx.Rollback()
			return res, fmt.Errorf("insert revision: %w", err)
		}
		var pruned int64
		if w.KeepRevisions > 0 {
			r, err := tx.ExecContext(ctx, pruneRevisionsSQL, p.Title, p.Title, w.KeepRevisions)
			if err != nil {
				_ = tx.Rollback()
				return res, fmt.Errorf("prune revisions: %w", err)
			}
			pruned, _ = r.RowsAffected()
		}
		// The page file is replaced only after the index work succeeded.
		if err := w.writePage(p.Title, p.Text); err != nil {
			_ = tx.Rollback()
			return res, fmt.Errorf("page %q: %w", p.Title, err)
		}
		if err := tx.Commit(); err != nil {
			if rerr := w.restorePage(p.Title, prev, existed); rerr != nil {
				l.Error("restore page failed", slog.String("title", p.Title), slog.Any("err", rerr))
			}
			return res, fmt.Errorf("commit: %w", err)
		}
		res.Pruned += pruned
		res.Written = append(res.Written, p.Title)
	}
	l.Info("pages saved",
		slog.Int("written", len(res.Written)),
		slog.Int("unchanged", len(res.Unchanged)),
		slog.Int64("revisions_pruned", res.Pruned),
	)
	return res, nil
}

// indexPage upserts one page row with its character and music lists.
func indexPage(ctx context.Context, tx *sql.Tx, p Page, now time.Time) error {
	if p.Kind == "" {
		p.Kind = KindStory
	}
	const upsert = `INSERT INTO pages(title, kind, hash, text, updated_at) VALUES(?,?,?,?,?)
		ON CONFLICT(title) DO UPDATE SET kind=excluded.kind, hash=excluded.hash, text=excluded.text, updated_at=excluded.updated_at`
	if _, err := tx.ExecContext(ctx, upsert, p.Title, p.Kind, pageHash(p.Text), p.Text, now.Format(tsLayout)); err != nil {
		return fmt.Errorf("upsert page: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM page_characters WHERE title=?`, p.Title); err != nil {
		return fmt.Errorf("clear characters: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM page_music WHERE title=?`, p.Title); err != nil {
		return fmt.Errorf("clear music: %w", err)
	}
	for _, name := range p.Characters {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO page_characters(title, name) VALUES(?,?)`, p.Title, name); err != nil {
			return fmt.Errorf("insert character: %w", err)
		}
	}
	for _, id := range p.Music {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO page_music(title, bgm_id) VALUES(?,?)`, p.Title, id); err != nil {
			return fmt.Errorf("insert music: %w", err)
		}
	}
	return nil
}

// Characters returns every indexed character name with the number of pages
// it appears on, sorted by name.
func (w *Workspace) Characters(ctx context.Context) (map[string]int, []string, error) {
	db, err := InitOrOpenIndex(w.Root)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()
	rows, err := db.QueryContext(ctx, `SELECT name, COUNT(*) FROM page_characters GROUP BY name`)
	if err != nil {
		return nil, nil, fmt.Errorf("character query: %w", err)
	}
	defer rows.Close()
	counts := map[string]int{}
	var names []string
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		counts[name] = n
		names = append(names, name)
	}
	sort.Strings(names)
	return counts, names, rows.Err()
}
