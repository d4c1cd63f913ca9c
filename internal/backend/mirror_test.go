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
	"os"
	"strings"
	"testing"
	"time"

	"storywiki/internal/storage"
)

func TestParseVersion(t *testing.T) {
	cases := map[string]int64{
		"0001_pages.sql":           1,
		"migrations/0012_x_y.sql":  12,
		"20240101_big_version.sql": 20240101,
	}
	for name, want := range cases {
		got, err := parseVersion(name)
		if err != nil || got != want {
			t.Fatalf("parseVersion(%q) = %d, %v; want %d", name, got, err, want)
		}
	}
	for _, bad := range []string{"pages.sql", "v1_pages.sql"} {
		if _, err := parseVersion(bad); err == nil {
			t.Fatalf("parseVersion(%q): expected error", bad)
		}
	}
}

func TestMigrationFilesOrdered(t *testing.T) {
	files, err := migrationFiles()
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if strings.Join(files, ",") != "0001_pages.sql,0002_failures.sql" {
		t.Fatalf("unexpected migrations %v", files)
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), " "); err == nil {
		t.Fatalf("expected error for blank dsn")
	}
}

// openMirrorForTest connects to SW_PG_DSN and skips when it is unset or the
// server is unreachable.
func openMirrorForTest(t *testing.T) *Mirror {
	t.Helper()
	dsn := os.Getenv("SW_PG_DSN")
	if dsn == "" {
		t.Skip("SW_PG_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m, err := Open(ctx, dsn)
	if err != nil {
		t.Skipf("postgres not available: %v", err)
	}
	if _, err := m.db.ExecContext(ctx, `TRUNCATE pages, failures`); err != nil {
		_ = m.Close()
		t.Fatalf("truncate: %v", err)
	}
	return m
}

func TestMirrorUpsertAndSearchParity(t *testing.T) {
	m := openMirrorForTest(t)
	defer func() { _ = m.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pages := []storage.Page{
		{Title: "Episode 1", Kind: storage.KindStory, Text: "Aru laughs at the office", Characters: []string{"Aru"}, Music: []int64{3}},
		{Title: "Episode 2", Kind: storage.KindStory, Text: "Hoshino naps", Characters: []string{"Hoshino (Swimsuit)"}, Music: []int64{4}},
	}
	n, err := m.Upsert(ctx, pages)
	if err != nil || n != 2 {
		t.Fatalf("Upsert = %d, %v", n, err)
	}
	if n, err = m.Upsert(ctx, pages); err != nil || n != 0 {
		t.Fatalf("repeat Upsert = %d, %v; want 0 rows written", n, err)
	}

	w, err := storage.InitWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("InitWorkspace: %v", err)
	}
	if _, err := w.SavePages(ctx, pages); err != nil {
		t.Fatalf("SavePages: %v", err)
	}
	for _, q := range []storage.SearchQuery{
		{Text: "office"},
		{Character: "hoshino"},
		{Music: 3},
		{Kind: storage.KindStory, Limit: 1, Offset: 1},
	} {
		pg, err := m.Search(ctx, q)
		if err != nil {
			t.Fatalf("mirror Search(%+v): %v", q, err)
		}
		local, err := w.Search(ctx, q)
		if err != nil {
			t.Fatalf("workspace Search(%+v): %v", q, err)
		}
		if len(pg) != len(local) {
			t.Fatalf("parity mismatch for %+v: pg=%+v local=%+v", q, pg, local)
		}
		for i := range pg {
			if pg[i].Title != local[i].Title {
				t.Fatalf("parity mismatch for %+v: pg=%+v local=%+v", q, pg, local)
			}
		}
	}

	if err := m.RecordFailures(ctx, storage.NewRunID(), []storage.FailureRecord{{Unit: "Two", Error: "bgm 77: not found"}}); err != nil {
		t.Fatalf("RecordFailures: %v", err)
	}
	if err := m.RecordFailures(ctx, "not-a-uuid", nil); err == nil {
		t.Fatalf("expected error for bad run id")
	}
}
