/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	applog "storywiki/internal/log"
)

// AppConfig is the configuration read from a YAML file. Environment
// variables are applied on top as read-only overrides.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Data          DataConfig    `yaml:"data"`
	Output        OutputConfig  `yaml:"output"`
	Parser        ParserConfig  `yaml:"parser"`
	Mirror        MirrorConfig  `yaml:"mirror"`
	Logging       LoggingConfig `yaml:"logging"`
}

// DataConfig locates the game data tables.
type DataConfig struct {
	Dir string `yaml:"dir" env:"SW_DATA_DIR"`
	// Validate checks every table against its JSON schema before use.
	Validate bool `yaml:"validate" env:"SW_DATA_VALIDATE"`
}

type OutputConfig struct {
	Dir           string `yaml:"dir"            env:"SW_OUTPUT_DIR"`
	KeepRevisions int    `yaml:"keep_revisions" env:"SW_KEEP_REVISIONS"`
	Transcripts   bool   `yaml:"transcripts"    env:"SW_TRANSCRIPTS"`
}

type ParserConfig struct {
	Workers           int  `yaml:"workers"            env:"SW_WORKERS"`
	ScreenComposition bool `yaml:"screen_composition" env:"SW_SCREEN_COMPOSITION"`
}

// MirrorConfig enables the Postgres page mirror.
type MirrorConfig struct {
	Enabled bool   `yaml:"enabled" env:"SW_MIRROR_ENABLED"`
	DSN     string `yaml:"dsn"     env:"SW_PG_DSN"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"  env:"SW_LOG_LEVEL"`
	Format string `yaml:"format" env:"SW_LOG_FORMAT"`
	Source bool   `yaml:"source" env:"SW_LOG_SOURCE"`
	File   string `yaml:"file"   env:"SW_LOG_FILE"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Data:          DataConfig{Dir: "data", Validate: true},
		Output:        OutputConfig{Dir: "wiki", KeepRevisions: 10},
		Parser:        ParserConfig{Workers: runtime.NumCPU()},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// EnvConfigFile names the config file when no path is given explicitly.
const EnvConfigFile = "SW_CONFIG"

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "storywiki")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "storywiki")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "storywiki")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the config file at path (ConfigPath when empty) over the
// defaults and applies environment overrides. A missing file is not an
// error.
func Load(path string) (AppConfig, error) {
	cfg := Defaults()
	if path == "" {
		p, err := ConfigPath()
		if err != nil {
			return cfg, err
		}
		path = p
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Save writes cfg as YAML to path.
func Save(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func (c *AppConfig) normalize() {
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.File = strings.TrimSpace(c.Logging.File)
	c.Data.Dir = strings.TrimSpace(c.Data.Dir)
	c.Output.Dir = strings.TrimSpace(c.Output.Dir)
	if c.Parser.Workers <= 0 {
		c.Parser.Workers = 1
	}
}

// Validate reports settings that cannot work together.
func (c AppConfig) Validate() error {
	var errs []error
	if c.Data.Dir == "" {
		errs = append(errs, errors.New("data.dir is required"))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output.dir is required"))
	}
	if c.Mirror.Enabled && strings.TrimSpace(c.Mirror.DSN) == "" {
		errs = append(errs, errors.New("mirror.enabled needs mirror.dsn"))
	}
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q: want console or json", c.Logging.Format))
	}
	return errors.Join(errs...)
}

// LogOptions converts the logging section for log.Init.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}

var envKeys = map[string]string{
	"data.dir":                  "SW_DATA_DIR",
	"data.validate":             "SW_DATA_VALIDATE",
	"output.dir":                "SW_OUTPUT_DIR",
	"output.keep_revisions":     "SW_KEEP_REVISIONS",
	"output.transcripts":        "SW_TRANSCRIPTS",
	"parser.workers":            "SW_WORKERS",
	"parser.screen_composition": "SW_SCREEN_COMPOSITION",
	"mirror.enabled":            "SW_MIRROR_ENABLED",
	"mirror.dsn":                "SW_PG_DSN",
	"logging.level":             "SW_LOG_LEVEL",
	"logging.format":            "SW_LOG_FORMAT",
	"logging.source":            "SW_LOG_SOURCE",
	"logging.file":              "SW_LOG_FILE",
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
