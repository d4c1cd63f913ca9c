/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	want := Defaults()
	want.normalize()
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
data:
  dir: /srv/tables
parser:
  workers: 3
  screen_composition: true
logging:
  level: DEBUG
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Data.Dir != "/srv/tables" || !cfg.Data.Validate {
		t.Fatalf("data section not merged over defaults: %#v", cfg.Data)
	}
	if cfg.Parser.Workers != 3 || !cfg.Parser.ScreenComposition {
		t.Fatalf("parser section not read: %#v", cfg.Parser)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "console" {
		t.Fatalf("logging not normalized: %#v", cfg.Logging)
	}
	if cfg.Output.Dir != "wiki" || cfg.Output.KeepRevisions != 10 {
		t.Fatalf("output defaults lost: %#v", cfg.Output)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SW_DATA_DIR", "/env/data")
	t.Setenv("SW_WORKERS", "7")
	t.Setenv("SW_SCREEN_COMPOSITION", "true")
	t.Setenv("SW_LOG_LEVEL", "ERROR")
	t.Setenv("SW_LOG_FORMAT", "json")
	t.Setenv("SW_LOG_SOURCE", "1")
	t.Setenv("SW_LOG_FILE", "X:/sw.log")
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Data.Dir != "/env/data" || cfg.Parser.Workers != 7 || !cfg.Parser.ScreenComposition {
		t.Fatalf("env overrides not applied: %#v %#v", cfg.Data, cfg.Parser)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "X:/sw.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
	if name, ok := EnvOverrideFor("parser.workers"); !ok || name != "SW_WORKERS" {
		t.Fatalf("EnvOverrideFor(parser.workers) = %q, %v", name, ok)
	}
	if _, ok := EnvOverrideFor("mirror.dsn"); ok {
		t.Fatalf("mirror.dsn is not overridden")
	}
}

func TestEnvOverrideBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("output:\n  dir: from-file\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SW_OUTPUT_DIR", "from-env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Output.Dir != "from-env" {
		t.Fatalf("Output.Dir = %q, want from-env", cfg.Output.Dir)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("parser: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(bad); err == nil {
		t.Fatalf("expected parse error")
	}

	t.Setenv("SW_WORKERS", "many")
	if _, err := Load(filepath.Join(dir, "none.yaml")); err == nil {
		t.Fatalf("expected env parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	cfg.Mirror.Enabled = true
	cfg.Logging.Format = "xml"
	cfg.Data.Dir = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"data.dir", "mirror.dsn", "logging.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Defaults()
	cfg.Mirror = MirrorConfig{Enabled: true, DSN: "postgres://localhost/wiki"}
	cfg.Parser.Workers = 2
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLogOptions(t *testing.T) {
	o := LoggingConfig{Level: "warn", Format: "json", Source: true, File: "a.log"}.LogOptions()
	if o.Level != "warn" || o.Format != "json" || !o.AddSource || o.File != "a.log" {
		t.Fatalf("unexpected options %#v", o)
	}
}
