/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestFileLoggingWritesStructuredJSON(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "storywiki.json")

	var console bytes.Buffer
	l := New(Options{Level: "debug", Format: "json", File: fpath}, &console)
	l = WithOperation(l.With(slog.String("component", "parser")), "parse")
	l.Info("hello world", slog.String("k", "v"))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var last string
	sc := bufio.NewScanner(bytes.NewReader(b))
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	if m["app"] != "storywiki" {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if m["component"] != "parser" || m["op"] != "parse" || m["k"] != "v" {
		t.Fatalf("missing contextual attrs: %v", m)
	}
	if !strings.Contains(console.String(), "hello world") {
		t.Fatalf("console output missing message: %q", console.String())
	}
}

func TestUnitFromContextIsAttached(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info", Format: "json"}, &buf)
	ctx := WithUnit(context.Background(), "main-1-2-3")
	l.WarnContext(ctx, "unrecognized line")

	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("unmarshal: %v (%q)", err, buf.String())
	}
	if m["unit"] != "main-1-2-3" {
		t.Fatalf("unit attr = %v, want main-1-2-3", m["unit"])
	}
	if _, ok := UnitFrom(context.Background()); ok {
		t.Fatalf("empty context should carry no unit")
	}
}

func TestFromEnvAndGetenv(t *testing.T) {
	t.Setenv("SW_LOG_LEVEL", "warn")
	t.Setenv("SW_LOG_FORMAT", "json")
	t.Setenv("SW_LOG_SOURCE", "true")
	t.Setenv("SW_LOG_FILE", "")

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if v := getenv("SW_SURELY_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestPrettyTextHandlerBehavior(t *testing.T) {
	var buf bytes.Buffer
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn}, w: &buf}

	if h.Enabled(context.Background(), slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v")}).WithGroup("grp")
	r := slog.NewRecord(time.Now(), slog.LevelError, "boom", 0)
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true))
	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"ERR", "boom", "k=v", "grp.n=42", "grp.pi=3.14", "grp.ok=true"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q: %q", want, out)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
