/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package story assembles story units from script groups and renders them
// into wiki pages. A unit is one page: one or more script groups, its
// localized title and summary, and its categories.
package story

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"

	"storywiki/internal/domain"
	"storywiki/internal/export"
	applog "storywiki/internal/log"
	"storywiki/internal/script"
)

// ErrEmptyUnit is returned for a unit none of whose groups has script rows.
var ErrEmptyUnit = errors.New("story unit has no script rows")

// Source provides script rows, localized titles and the parser lookups.
// *tables.Tables implements it.
type Source interface {
	script.Lookup
	ScriptGroup(group int64) ([]domain.ScriptLine, error)
	TitleSummary(key uint32) (title, summary string, err error)
}

// Unit describes one story page.
type Unit struct {
	// Name is the page title.
	Name   string
	Type   domain.StoryType
	Groups []int64
	// TitleKeys are localization keys of the unit's title rows. Without
	// them the #title row of the script is used.
	TitleKeys []uint32
	// CharacterName owns a relationship story.
	CharacterName string
	// Categories replace the default category of Type when set.
	Categories []string

	Volume, Chapter, Episode int64
}

// Result is a rendered unit.
type Result struct {
	Unit    Unit
	Title   string
	Summary string
	Story   *script.Story
	Page    export.Page
}

// Failure records a unit that could not be rendered.
type Failure struct {
	Unit Unit
	Err  error
}

// Batch is the outcome of BuildAll. Stories keep the order of the input
// units.
type Batch struct {
	Stories  []Result
	Failures []Failure
}

// Options tune a Builder.
type Options struct {
	// Workers > 1 builds units concurrently.
	Workers           int
	ScreenComposition bool
}

type Builder struct {
	src    Source
	parser *script.Parser
	opts   Options
	log    *slog.Logger
}

// NewBuilder returns a builder reading from src. A nil logger uses the
// process logger.
func NewBuilder(src Source, opts Options, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = applog.WithComponent("story")
	}
	return &Builder{src: src, parser: script.NewParser(src, logger), opts: opts, log: logger}
}

var typeCategories = map[domain.StoryType]string{
	domain.StoryRelationship: "Relationship story episodes",
	domain.StoryMain:         "Main story episodes",
	domain.StorySide:         "Side story episodes",
	domain.StoryGroup:        "Group story episodes",
	domain.StoryEvent:        "Event story episodes",
}

// TypeCategory returns the category every story of type t belongs to.
func TypeCategory(t domain.StoryType) string { return typeCategories[t] }

// Build renders one unit. Groups without rows are skipped; consecutive
// groups are separated by a battle marker.
func (b *Builder) Build(ctx context.Context, u Unit) (*Result, error) {
	ctx = applog.WithUnit(ctx, u.Name)
	l := applog.WithOperation(b.log, "build")

	var lines []domain.ScriptLine
	for _, g := range u.Groups {
		rows, err := b.src.ScriptGroup(g)
		if errors.Is(err, domain.ErrNotFound) {
			l.WarnContext(ctx, "script group missing", slog.Int64("group", g))
			continue
		}
		if err != nil {
			return nil, err
		}
		if len(lines) > 0 {
			lines = append(lines, domain.ScriptLine{GroupID: g, Battle: true})
		}
		lines = append(lines, rows...)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyUnit
	}

	var titles, summaries []string
	for _, key := range u.TitleKeys {
		title, summary, err := b.src.TitleSummary(key)
		if err != nil {
			return nil, fmt.Errorf("title: %w", err)
		}
		if title != "" {
			titles = append(titles, title)
		}
		if summary != "" {
			summaries = append(summaries, summary)
		}
	}

	st, err := b.parser.Parse(ctx, lines, script.Options{
		Type:              u.Type,
		CharacterName:     u.CharacterName,
		ScreenComposition: b.opts.ScreenComposition,
	})
	if err != nil {
		return nil, err
	}

	title := mergeTitles(titles)
	if title == "" {
		title = st.Title
	}
	if title == "" {
		title = u.Name
	}
	cats := u.Categories
	if len(cats) == 0 {
		if c := TypeCategory(u.Type); c != "" {
			cats = []string{c}
		}
	}
	summary := strings.Join(summaries, "\n\n")
	res := &Result{
		Unit:    u,
		Title:   title,
		Summary: summary,
		Story:   st,
		Page: export.Page{
			Title:      title,
			Summary:    summary,
			Body:       export.Template("Story", st.Events),
			Categories: export.Categories(cats, st.Characters, st.Music),
		},
	}
	l.DebugContext(ctx, "unit built", slog.Int("events", len(st.Events)), slog.Int("rows", len(lines)))
	return res, nil
}

// mergeTitles picks the title of a unit spanning several title rows. Parts
// of a multi-part episode ("Reunion 1", "Reunion 2") share the title without
// the part number.
func mergeTitles(titles []string) string {
	if len(titles) == 0 {
		return ""
	}
	first := titles[0]
	same := true
	for _, t := range titles[1:] {
		same = same && t == first
	}
	if same {
		return first
	}
	fields := strings.Fields(first)
	if len(fields) > 1 {
		last := fields[len(fields)-1]
		if unicode.IsDigit(rune(last[len(last)-1])) {
			return strings.Join(fields[:len(fields)-1], " ")
		}
	}
	return first
}

// BuildAll renders every unit. A unit that fails is recorded and skipped;
// the others are still built.
func (b *Builder) BuildAll(ctx context.Context, units []Unit) Batch {
	results := make([]*Result, len(units))
	errs := make([]error, len(units))

	g, gctx := errgroup.WithContext(ctx)
	workers := b.opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = b.Build(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	var batch Batch
	for i, u := range units {
		if errs[i] != nil {
			b.log.WarnContext(applog.WithUnit(ctx, u.Name), "unit skipped", slog.Any("err", errs[i]))
			batch.Failures = append(batch.Failures, Failure{Unit: u, Err: errs[i]})
			continue
		}
		batch.Stories = append(batch.Stories, *results[i])
	}
	return batch
}
