/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script turns the rows of a scenario script into typed story events.
// A Parser walks the rows of one story unit in order, keeps the running
// scene state (background, music, popup, reply counters) and resolves
// characters, backgrounds and music through a Lookup.
package script

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"storywiki/internal/domain"
	applog "storywiki/internal/log"
)

// Lookup is the read-only table surface the parser resolves script
// references against. Missing ids are reported as errors wrapping
// domain.ErrNotFound. *tables.Tables implements it.
type Lookup interface {
	Character(token string) (domain.Character, error)
	Background(id uint32) (string, error)
	BGM(id int64) (domain.BGM, error)
	Expressions(sprite string) ([]string, error)
}

// Options describe the story unit being parsed.
type Options struct {
	Type domain.StoryType
	// CharacterName is the owner of a relationship story. It names the
	// memorial lobby and speaks the lines of live2d scenes.
	CharacterName string
	// ScreenComposition enables Screen events.
	ScreenComposition bool
}

// Story is the result of parsing one unit.
type Story struct {
	Title      string
	Events     []Event
	Characters []string // sorted
	Music      []int64  // sorted
}

// Parser is safe for concurrent use; each Parse call owns its scene state.
// Warnings about unknown names and missing sprites are emitted once per
// Parser.
type Parser struct {
	lookup Lookup
	log    *slog.Logger

	mu            sync.Mutex
	missingNames  map[string]struct{}
	missingSpines map[string]struct{}
}

// NewParser returns a parser resolving against l. A nil logger uses the
// process logger.
func NewParser(l Lookup, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = applog.WithComponent("script")
	}
	return &Parser{lookup: l, log: logger}
}

func (p *Parser) warnOnce(ctx context.Context, seen *map[string]struct{}, key, msg string, attrs ...any) {
	p.mu.Lock()
	if *seen == nil {
		*seen = map[string]struct{}{}
	}
	_, dup := (*seen)[key]
	(*seen)[key] = struct{}{}
	p.mu.Unlock()
	if !dup {
		p.log.WarnContext(ctx, msg, attrs...)
	}
}

// state is the scene state of one Parse call.
type state struct {
	opts   Options
	events []Event
	title  string
	chars  map[string]struct{}
	music  map[int64]struct{}

	background  string
	popup       string
	bgm         int64
	hanging     bool
	live2d      bool
	onScreen    string
	optionGroup int
	// baseSelection is the raw selection group mapped to option 1, or -1
	// until the first option after a reply is seen.
	baseSelection int64
}

func (s *state) emit(ev ...Event) { s.events = append(s.events, ev...) }

// selection rebases a raw selection group to the options of the current
// reply, starting at 1.
func (s *state) selection(raw int64) int {
	if raw == 0 {
		return 0
	}
	if s.baseSelection == -1 {
		s.baseSelection = raw
	}
	return int(raw - s.baseSelection + 1)
}

// Parse walks the rows of one story unit. A fatal row aborts the unit with
// a *UnitError and no events.
func (p *Parser) Parse(ctx context.Context, lines []domain.ScriptLine, opts Options) (*Story, error) {
	st := &state{
		opts:          opts,
		chars:         map[string]struct{}{},
		music:         map[int64]struct{}{},
		baseSelection: -1,
	}
	for i, line := range lines {
		if err := p.parseLine(ctx, st, line); err != nil {
			return nil, &UnitError{Row: i, Group: line.GroupID, Script: line.ScriptKr, Err: err}
		}
	}
	if st.hanging {
		st.emit(BGMStop{})
	}

	out := &Story{Title: st.title, Events: st.events}
	for name := range st.chars {
		out.Characters = append(out.Characters, name)
	}
	sort.Strings(out.Characters)
	for id := range st.music {
		out.Music = append(out.Music, id)
	}
	sort.Slice(out.Music, func(i, j int) bool { return out.Music[i] < out.Music[j] })
	return out, nil
}

func (p *Parser) parseLine(ctx context.Context, st *state, line domain.ScriptLine) error {
	if line.Battle {
		st.emit(Info{Text: "A battle ensues"})
		return nil
	}
	if err := p.music(st, line.BGMID); err != nil {
		return err
	}
	if err := p.background(st, line.BGName); err != nil {
		return err
	}
	if line.PopupFileName != "" {
		popup := strings.ReplaceAll(line.PopupFileName, "U", "u")
		if popup != st.popup {
			st.emit(Popup{File: popup})
			st.popup = popup
		}
	}

	script := line.ScriptKr
	lower := strings.ToLower(script)
	text := displayText(line.TextEn)
	selection := st.selection(line.SelectionGroup)

	switch {
	case strings.HasPrefix(lower, "#title;"):
		st.title = titleText(text)
		return nil
	case strings.HasPrefix(lower, "#place;"):
		st.emit(Info{Text: text})
		return nil
	case strings.HasPrefix(lower, "#continued"):
		st.emit(Info{Text: "To be continued"})
		return nil
	}

	stripped := Strip(lower)
	st.emit(stripped.Effects...)
	cleaned := stripped.Line

	if m := reLogTag.FindStringSubmatch(text); m != nil {
		script = "3;" + m[1] + ";00;lorem ipsum"
		cleaned = strings.ToLower(script)
		text = strings.TrimSpace(reLogAny.ReplaceAllString(text, ""))
	}
	if stripped.Staged {
		text = strings.TrimSpace(stripStagedText(text))
	}

	res, err := p.resolve(ctx, script)
	if err != nil {
		return err
	}

	var branch Branch
	if selection != 0 {
		branch = Branch{Group: st.optionGroup, Option: selection}
	}

	if line.Sound != "" {
		st.emit(Sound{File: soundFile(line.Sound), Name: SoundLabel(line.Sound), Branch: branch})
	}

	switch {
	case cleaned == "" && (!stripped.Staged || text == ""):
		if text != "" {
			p.log.WarnContext(ctx, "unprocessed text", slog.String("text", text), slog.Int64("group", line.GroupID))
		}
	case strings.HasPrefix(cleaned, "#nextepisode;"):
		st.emit(Info{Text: strings.ReplaceAll(text, ";", ": ")})
	case strings.HasPrefix(cleaned, "#na;("):
		st.emit(Narration{Text: infoText(text), Branch: branch})
	case strings.HasPrefix(cleaned, "#na;") && (len(res.Present) == 0 || res.Present[0] == nil):
		st.emit(Narration{Text: infoText(text), Branch: branch})
	case reChoice.MatchString(text):
		p.choice(st, text, branch)
	case hasCharacters(res) || (st.live2d && text != ""):
		return p.dialogue(st, res, text, branch)
	case text != "":
		st.emit(Info{Text: infoText(text), Branch: branch})
	default:
		p.log.WarnContext(ctx, "unrecognized line", slog.String("script", line.ScriptKr), slog.String("processed", cleaned))
	}
	return nil
}

func hasCharacters(res Resolution) bool {
	for _, sp := range res.Present {
		if sp != nil {
			return true
		}
	}
	return false
}

func (p *Parser) music(st *state, id int64) error {
	// A stop before anything was emitted is an artifact of the data.
	if id == 0 || (id == domain.BGMStop && len(st.events) == 0) {
		return nil
	}
	if id == domain.BGMStop {
		st.emit(BGMStop{})
		st.hanging = false
		st.bgm = 0
		return nil
	}
	b, err := p.lookup.BGM(id)
	if err != nil {
		return fmt.Errorf("bgm %d: %w", id, err)
	}
	st.music[id] = struct{}{}
	if st.hanging && st.bgm == id {
		return nil
	}
	st.emit(BGM{
		ID:        id,
		File:      b.File,
		Name:      MusicTitle(b.File),
		Volume:    b.Volume,
		LoopStart: b.LoopStart,
		LoopEnd:   b.LoopEnd,
	})
	st.hanging = true
	st.bgm = id
	return nil
}

// MusicTitle derives a display title from a music file name.
func MusicTitle(file string) string {
	return strings.TrimSpace(strings.ReplaceAll(file, "_", " "))
}

func (p *Parser) background(st *state, id uint32) error {
	if id == 0 {
		return nil
	}
	file, err := p.lookup.Background(id)
	if err != nil {
		return fmt.Errorf("background %d: %w", id, err)
	}
	if strings.Contains(file, "SpineBG_Lobby") && st.opts.Type == domain.StoryRelationship {
		st.live2d = true
		file = "Memorial Lobby " + st.opts.CharacterName
	} else {
		st.live2d = false
	}
	if file != st.background {
		st.emit(Background{File: file})
		st.background = file
	}
	return nil
}

func (p *Parser) choice(st *state, text string, branch Branch) {
	options := choiceOptions(text)
	if len(options) == 1 {
		st.emit(Sensei{Text: options[0], Branch: branch})
		return
	}
	st.optionGroup++
	st.baseSelection = -1
	st.emit(Reply{Options: options, Group: st.optionGroup})
}

func (p *Parser) dialogue(st *state, res Resolution, text string, branch Branch) error {
	if st.opts.ScreenComposition {
		p.screen(st, res, branch)
	}
	if text == "" {
		return nil
	}
	d := Dialogue{Text: text, Branch: branch}
	switch {
	case res.Speaker != nil:
		d.Name, d.Affiliation = res.Speaker.Name, res.Speaker.Nickname
		if res.Speaker.Spine != "" {
			d.Spine, d.Sequence = res.Speaker.Spine, res.Speaker.Expression
		}
	case st.live2d:
		d.Name = st.opts.CharacterName
	case res.UnknownSpeaker:
		st.emit(Info{Text: infoText(text), Branch: branch})
		return nil
	default:
		return ErrNoSpeaker
	}
	if d.Name != "" {
		st.chars[d.Name] = struct{}{}
	}
	st.emit(d)
	return nil
}

// screen emits a Screen event when the set of characters with sprites
// changes and more than one of them is shown.
func (p *Parser) screen(st *state, res Resolution, branch Branch) {
	var slots []ScreenSlot
	keys := make([]string, 0, len(res.Present))
	for _, sp := range res.Present {
		if sp == nil || strings.TrimSpace(sp.Spine) == "" {
			continue
		}
		slots = append(slots, ScreenSlot{Spine: sp.Spine, Sequence: sp.Expression})
		keys = append(keys, sp.Name+"\x00"+sp.Spine+"\x00"+sp.Expression)
	}
	if len(slots) < 2 {
		return
	}
	sort.Strings(keys)
	key := strings.Join(keys, "\n")
	if key == st.onScreen {
		return
	}
	st.onScreen = key
	st.emit(Screen{Slots: slots, Branch: branch})
}
