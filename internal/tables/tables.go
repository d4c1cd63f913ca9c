/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tables holds the read-only lookup tables the story parser resolves
// script references against: scenario characters, backgrounds, music,
// localized titles and the sprite-existence index. Each table is built by a
// single pass over its source the first time it is needed and cached for the
// lifetime of the Tables value.
package tables

import (
	"fmt"
	"path/filepath"
	"sync"

	"storywiki/internal/domain"
)

// lazy memoizes one table build.
type lazy[T any] struct {
	once sync.Once
	val  T
	err  error
}

func (l *lazy[T]) get(build func() (T, error)) (T, error) {
	l.once.Do(func() { l.val, l.err = build() })
	return l.val, l.err
}

// Rows carries in-memory table rows for FromRows.
type Rows struct {
	Characters  []domain.CharacterRow
	Backgrounds []domain.BackgroundRow
	BGMs        []domain.BGMRow
	Localize    []domain.LocalizeRow
	SpriteFiles []string
	Scripts     []domain.ScriptLine
	Modes       []domain.ScenarioModeRow
	Messenger   []domain.MessengerRow
}

type sources struct {
	characters  func() ([]domain.CharacterRow, error)
	backgrounds func() ([]domain.BackgroundRow, error)
	bgms        func() ([]domain.BGMRow, error)
	localize    func() ([]domain.LocalizeRow, error)
	sprites     func() ([]string, error)
	scripts     func() ([]domain.ScriptLine, error)
	modes       func() ([]domain.ScenarioModeRow, error)
	messenger   func() ([]domain.MessengerRow, error)
}

// Tables resolves ids found in script rows. Safe for concurrent use.
type Tables struct {
	src sources

	characters  lazy[map[uint32]domain.Character]
	backgrounds lazy[map[uint32]string]
	bgms        lazy[map[int64]domain.BGM]
	localize    lazy[localized]
	sprites     lazy[map[string][]string]
	scripts     lazy[map[int64][]domain.ScriptLine]
	modes       lazy[[]domain.ScenarioModeRow]
	messenger   lazy[map[int64][]domain.MessengerRow]
}

type localized struct {
	texts []string
	index map[uint32]int
}

// Open returns tables backed by the JSON files in dir. Nothing is read until
// the first lookup. When validate is set, every table is checked against its
// embedded JSON schema before decoding.
func Open(dir string, validate bool) *Tables {
	file := func(name string) string { return filepath.Join(dir, name) }
	return &Tables{src: sources{
		characters: func() ([]domain.CharacterRow, error) {
			return readDataList[domain.CharacterRow](file(CharacterFile), "character", validate)
		},
		backgrounds: func() ([]domain.BackgroundRow, error) {
			return readDataList[domain.BackgroundRow](file(BackgroundFile), "background", validate)
		},
		bgms: func() ([]domain.BGMRow, error) {
			return readDataList[domain.BGMRow](file(BGMFile), "bgm", validate)
		},
		localize: func() ([]domain.LocalizeRow, error) {
			return readDataList[domain.LocalizeRow](file(LocalizeFile), "localize", validate)
		},
		sprites: func() ([]string, error) {
			return readSpriteFiles(file(SpritesFile), validate)
		},
		scripts: func() ([]domain.ScriptLine, error) {
			return readDataLists[domain.ScriptLine](dir, scriptPattern, "script", validate)
		},
		modes: func() ([]domain.ScenarioModeRow, error) {
			return readDataList[domain.ScenarioModeRow](file(ScenarioModeFile), "scenario_mode", validate)
		},
		messenger: func() ([]domain.MessengerRow, error) {
			return readDataLists[domain.MessengerRow](dir, messengerPattern, "messenger", validate)
		},
	}}
}

// FromRows returns tables built from in-memory rows.
func FromRows(r Rows) *Tables {
	return &Tables{src: sources{
		characters:  func() ([]domain.CharacterRow, error) { return r.Characters, nil },
		backgrounds: func() ([]domain.BackgroundRow, error) { return r.Backgrounds, nil },
		bgms:        func() ([]domain.BGMRow, error) { return r.BGMs, nil },
		localize:    func() ([]domain.LocalizeRow, error) { return r.Localize, nil },
		sprites:     func() ([]string, error) { return r.SpriteFiles, nil },
		scripts:     func() ([]domain.ScriptLine, error) { return r.Scripts, nil },
		modes:       func() ([]domain.ScenarioModeRow, error) { return r.Modes, nil },
		messenger:   func() ([]domain.MessengerRow, error) { return r.Messenger, nil },
	}}
}

// Background returns the wiki file name of a scenario background.
func (t *Tables) Background(id uint32) (string, error) {
	m, err := t.backgrounds.get(func() (map[uint32]string, error) {
		rows, err := t.src.backgrounds()
		if err != nil {
			return nil, err
		}
		out := make(map[uint32]string, len(rows))
		for _, r := range rows {
			out[r.Name] = backgroundFileName(r.BGFileName)
		}
		return out, nil
	})
	if err != nil {
		return "", fmt.Errorf("background table: %w", err)
	}
	name, ok := m[id]
	if !ok {
		return "", fmt.Errorf("background %d: %w", id, domain.ErrNotFound)
	}
	return name, nil
}

// BGM returns the music track registered under id.
func (t *Tables) BGM(id int64) (domain.BGM, error) {
	m, err := t.bgms.get(func() (map[int64]domain.BGM, error) {
		rows, err := t.src.bgms()
		if err != nil {
			return nil, err
		}
		out := make(map[int64]domain.BGM, len(rows))
		for _, r := range rows {
			out[r.ID] = domain.BGM{
				ID:        r.ID,
				File:      baseName(r.Path),
				LoopStart: r.LoopStartTime,
				LoopEnd:   r.LoopEndTime,
				Volume:    r.Volume,
			}
		}
		return out, nil
	})
	if err != nil {
		return domain.BGM{}, fmt.Errorf("bgm table: %w", err)
	}
	b, ok := m[id]
	if !ok {
		return domain.BGM{}, fmt.Errorf("bgm %d: %w", id, domain.ErrNotFound)
	}
	return b, nil
}

// TitleSummary returns the localized title stored under key and the summary
// stored in the row right after it. The summary is empty when key is the
// last row.
func (t *Tables) TitleSummary(key uint32) (title, summary string, err error) {
	loc, err := t.localize.get(func() (localized, error) {
		rows, err := t.src.localize()
		if err != nil {
			return localized{}, err
		}
		l := localized{texts: make([]string, 0, len(rows)), index: make(map[uint32]int, len(rows))}
		for i, r := range rows {
			l.texts = append(l.texts, r.En)
			l.index[r.Key] = i
		}
		return l, nil
	})
	if err != nil {
		return "", "", fmt.Errorf("localize table: %w", err)
	}
	i, ok := loc.index[key]
	if !ok {
		return "", "", fmt.Errorf("localize key %d: %w", key, domain.ErrNotFound)
	}
	title = loc.texts[i]
	if i+1 < len(loc.texts) {
		summary = loc.texts[i+1]
	}
	return title, summary, nil
}

// ScriptGroup returns the rows of one scenario script group in table order.
func (t *Tables) ScriptGroup(group int64) ([]domain.ScriptLine, error) {
	m, err := t.scripts.get(func() (map[int64][]domain.ScriptLine, error) {
		rows, err := t.src.scripts()
		if err != nil {
			return nil, err
		}
		out := map[int64][]domain.ScriptLine{}
		for _, r := range rows {
			out[r.GroupID] = append(out[r.GroupID], r)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("script tables: %w", err)
	}
	lines, ok := m[group]
	if !ok {
		return nil, fmt.Errorf("script group %d: %w", group, domain.ErrNotFound)
	}
	return lines, nil
}

// ScenarioModes returns every row of the scenario mode table.
func (t *Tables) ScenarioModes() ([]domain.ScenarioModeRow, error) {
	rows, err := t.modes.get(t.src.modes)
	if err != nil {
		return nil, fmt.Errorf("scenario mode table: %w", err)
	}
	return rows, nil
}

// Messages returns the messenger rows of one character in table order.
func (t *Tables) Messages(characterID int64) ([]domain.MessengerRow, error) {
	m, err := t.messenger.get(func() (map[int64][]domain.MessengerRow, error) {
		rows, err := t.src.messenger()
		if err != nil {
			return nil, err
		}
		out := map[int64][]domain.MessengerRow{}
		for _, r := range rows {
			out[r.CharacterID] = append(out[r.CharacterID], r)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("messenger tables: %w", err)
	}
	rows, ok := m[characterID]
	if !ok {
		return nil, fmt.Errorf("messages of character %d: %w", characterID, domain.ErrNotFound)
	}
	return rows, nil
}

// baseName returns the last element of a slash separated asset path.
func baseName(p string) string {
	if i := lastSlash(p); i >= 0 {
		return p[i+1:]
	}
	return p
}

func lastSlash(p string) int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == '\\' {
			return i
		}
	}
	return -1
}

func backgroundFileName(p string) string {
	name := baseName(p)
	if name == "" || filepath.Ext(name) != "" {
		return name
	}
	return name + ".jpg"
}
