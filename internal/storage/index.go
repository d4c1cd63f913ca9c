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
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "storywiki/internal/log"
	"storywiki/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// IndexDirName holds the disposable index data under the workspace root.
	IndexDirName  = ".storywiki"
	IndexFileName = "index.sqlite"

	// schemaVersion tracks the local SQLite schema.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// IndexPath returns the full path to the workspace index database file.
func IndexPath(root string) string {
	return filepath.Join(root, IndexDirName, IndexFileName)
}

// InitOrOpenIndex ensures that the workspace SQLite index exists, opens it,
// enables WAL mode and brings the schema up to date.
// Callers close the returned *sql.DB.
func InitOrOpenIndex(root string) (*sql.DB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "index_init").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, IndexDirName), 0o755); err != nil {
		l.Error("create index dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	path := IndexPath(root)
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure index schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("index ready", slog.String("path", path))
	return db, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// A fresh database starts at version 1 and migrates forward.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_page_characters_name ON page_characters(name);`,
				`CREATE INDEX IF NOT EXISTS idx_page_music_bgm ON page_music(bgm_id);`,
				`CREATE INDEX IF NOT EXISTS idx_failures_run ON failures(run_id);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// ensureIndexSchema creates the index tables and FTS structures if they do not exist.
func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			page_id    INTEGER PRIMARY KEY,
			title      TEXT    NOT NULL UNIQUE,
			kind       TEXT    NOT NULL,
			hash       INTEGER NOT NULL,
			text       TEXT    NOT NULL,
			updated_at TEXT    NOT NULL
		);`,
		// External-content FTS5 index fed from pages via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_pages USING fts5(
			title,
			text,
			content='pages',
			content_rowid='page_id',
			tokenize = 'unicode61'
		);`,
		`CREATE TABLE IF NOT EXISTS page_characters (
			title TEXT NOT NULL,
			name  TEXT NOT NULL,
			PRIMARY KEY(title, name)
		);`,
		`CREATE TABLE IF NOT EXISTS page_music (
			title  TEXT    NOT NULL,
			bgm_id INTEGER NOT NULL,
			PRIMARY KEY(title, bgm_id)
		);`,
		`CREATE TABLE IF NOT EXISTS failures (
			id     INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL,
			unit   TEXT NOT NULL,
			error  TEXT NOT NULL,
			ts     TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS revisions (
			id    INTEGER PRIMARY KEY,
			title TEXT    NOT NULL,
			hash  INTEGER NOT NULL,
			ts    TEXT    NOT NULL,
			text  TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_revisions_title_ts ON revisions(title, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS pages_ai AFTER INSERT ON pages BEGIN
			INSERT INTO fts_pages(rowid, title, text) VALUES (new.page_id, new.title, new.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS pages_ad AFTER DELETE ON pages BEGIN
			INSERT INTO fts_pages(fts_pages, rowid, title, text) VALUES ('delete', old.page_id, old.title, old.text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS pages_au AFTER UPDATE ON pages BEGIN
			INSERT INTO fts_pages(fts_pages, rowid, title, text) VALUES ('delete', old.page_id, old.title, old.text);
			INSERT INTO fts_pages(rowid, title, text) VALUES (new.page_id, new.title, new.text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildIndex checks the index for corruption or a missing schema
// and rebuilds it from the page files when needed. It reports whether a
// rebuild happened.
func DetectAndRebuildIndex(ctx context.Context, w *Workspace) (bool, error) {
	path := IndexPath(w.Root)
	db, err := InitOrOpenIndex(w.Root)
	if err != nil {
		backupIndexFile(path)
		removeIndexFiles(path)
		if rbErr := RebuildIndex(ctx, w); rbErr != nil {
			return false, fmt.Errorf("rebuild after open failure: %w (open err: %v)", rbErr, err)
		}
		return true, nil
	}
	needs := false
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil || !strings.Contains(strings.ToLower(chk), "ok") {
		needs = true
	}
	if !needs {
		if _, err := db.ExecContext(ctx, `SELECT 1 FROM pages LIMIT 1;`); err != nil {
			needs = true
		}
	}
	_ = db.Close()
	if !needs {
		return false, nil
	}
	backupIndexFile(path)
	removeIndexFiles(path)
	if err := RebuildIndex(ctx, w); err != nil {
		return false, err
	}
	return true, nil
}

// RebuildIndex drops the page tables and indexes every page file again.
// Revisions and the failure ledger are kept.
func RebuildIndex(ctx context.Context, w *Workspace) error {
	db, err := InitOrOpenIndex(w.Root)
	if err != nil {
		return err
	}
	defer db.Close()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	drops := []string{
		"DROP TRIGGER IF EXISTS pages_ai;",
		"DROP TRIGGER IF EXISTS pages_ad;",
		"DROP TRIGGER IF EXISTS pages_au;",
		"DROP TABLE IF EXISTS fts_pages;",
		"DROP TABLE IF EXISTS pages;",
		"DROP TABLE IF EXISTS page_characters;",
		"DROP TABLE IF EXISTS page_music;",
	}
	for _, q := range drops {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("drop commit: %w", err)
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_page_characters_name ON page_characters(name);`); err != nil {
		return fmt.Errorf("recreate index: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_page_music_bgm ON page_music(bgm_id);`); err != nil {
		return fmt.Errorf("recreate index: %w", err)
	}

	titles, err := w.PageTitles()
	if err != nil {
		return err
	}
	pages := make([]Page, 0, len(titles))
	for _, title := range titles {
		text, err := os.ReadFile(w.PagePath(title))
		if err != nil {
			return fmt.Errorf("read page %q: %w", title, err)
		}
		pages = append(pages, PageFromText(title, string(text)))
	}
	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	now := time.Now().UTC()
	for _, p := range pages {
		if err := indexPage(ctx, tx, p, now); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	applog.WithComponent("storage").Info("index rebuilt", slog.Int("pages", len(pages)))
	return nil
}

// backupIndexFile copies the current index file into a timestamped backup
// next to it.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

func removeIndexFiles(indexPath string) {
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(indexPath + suffix)
	}
}
