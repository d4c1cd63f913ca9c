/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"storywiki/internal/backend"
	"storywiki/internal/config"
	"storywiki/internal/domain"
	"storywiki/internal/messenger"
	"storywiki/internal/publish"
	"storywiki/internal/storage"
	"storywiki/internal/story"
	"storywiki/internal/tables"
)

type app struct {
	cfg config.AppConfig
	ws  *storage.Workspace
	out io.Writer
	log *slog.Logger
}

func (a *app) tables() *tables.Tables {
	return tables.Open(a.cfg.Data.Dir, a.cfg.Data.Validate)
}

func (a *app) builder(t *tables.Tables) *story.Builder {
	return story.NewBuilder(t, story.Options{
		Workers:           a.cfg.Parser.Workers,
		ScreenComposition: a.cfg.Parser.ScreenComposition,
	}, nil)
}

// publisher opens the mirror when enabled. The returned func closes it.
func (a *app) publisher(ctx context.Context) (*publish.Publisher, func(), error) {
	if !a.cfg.Mirror.Enabled {
		p := publish.New(a.ws, nil)
		p.Transcripts = a.cfg.Output.Transcripts
		return p, func() {}, nil
	}
	m, err := backend.Open(ctx, a.cfg.Mirror.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open mirror: %w", err)
	}
	p := publish.New(a.ws, m)
	p.Transcripts = a.cfg.Output.Transcripts
	return p, func() { _ = m.Close() }, nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) render(ctx context.Context, args []string) error {
	fs := newFlagSet("render")
	typ := fs.String("type", "main", "story type: main|side|group|event|relationship")
	titleKeys := fs.String("title-keys", "", "comma separated localization keys of the title rows")
	character := fs.String("character", "", "character owning a relationship story")
	categories := fs.String("categories", "", "comma separated categories replacing the default one")
	if err := fs.Parse(args); err != nil {
		return usageError("render: " + err.Error())
	}
	if fs.NArg() < 2 {
		return usageError("render requires <title> and at least one <group>")
	}
	st, ok := domain.ParseStoryType(*typ)
	if !ok {
		return usageError(fmt.Sprintf("render: unknown story type %q", *typ))
	}
	groups, err := parseInts(fs.Args()[1:])
	if err != nil {
		return usageError("render: " + err.Error())
	}
	keys, err := parseKeys(*titleKeys)
	if err != nil {
		return usageError("render: " + err.Error())
	}
	u := story.Unit{
		Name:          fs.Arg(0),
		Type:          st,
		Groups:        groups,
		TitleKeys:     keys,
		CharacterName: *character,
		Categories:    splitList(*categories),
	}

	batch := a.builder(a.tables()).BuildAll(ctx, []story.Unit{u})
	if err := a.publishBatch(ctx, batch); err != nil {
		return err
	}
	if len(batch.Failures) > 0 {
		return fmt.Errorf("render %q: %w", u.Name, batch.Failures[0].Err)
	}
	return nil
}

func (a *app) mainStory(ctx context.Context, args []string) error {
	fs := newFlagSet("main-story")
	volume := fs.Int64("volume", 0, "only this volume (0 = all)")
	if err := fs.Parse(args); err != nil {
		return usageError("main-story: " + err.Error())
	}
	t := a.tables()
	modes, err := t.ScenarioModes()
	if err != nil {
		return err
	}
	units := story.MainUnits(modes, *volume)
	if len(units) == 0 {
		return fmt.Errorf("no main story episodes for volume %d", *volume)
	}
	start := time.Now()
	batch := a.builder(t).BuildAll(ctx, units)
	story.LinkEpisodes(batch.Stories)
	a.log.Info("main story built",
		slog.Int("units", len(units)),
		slog.Int("failed", len(batch.Failures)),
		slog.Duration("took", time.Since(start)),
	)
	return a.publishBatch(ctx, batch)
}

func (a *app) publishBatch(ctx context.Context, batch story.Batch) error {
	p, done, err := a.publisher(ctx)
	if err != nil {
		return err
	}
	defer done()
	rep, err := p.Batch(ctx, batch)
	if err != nil {
		return err
	}
	a.printReport(rep)
	for _, f := range batch.Failures {
		fmt.Fprintf(a.out, "  failed: %s: %v\n", f.Unit.Name, f.Err)
	}
	return nil
}

func (a *app) printReport(rep publish.Report) {
	fmt.Fprintf(a.out, "Run %s: %s written, %s unchanged, %s failed (%s of wikitext)\n",
		rep.RunID,
		humanize.Comma(int64(rep.Written)),
		humanize.Comma(int64(rep.Unchanged)),
		humanize.Comma(int64(rep.Failed)),
		humanize.Bytes(uint64(rep.Bytes)),
	)
	if rep.Transcripts > 0 {
		fmt.Fprintf(a.out, "  %s transcripts in %s\n", humanize.Comma(int64(rep.Transcripts)), storage.ExportsDirName)
	}
	if a.cfg.Mirror.Enabled {
		fmt.Fprintf(a.out, "  %s pages mirrored\n", humanize.Comma(int64(rep.Mirrored)))
	}
}

func (a *app) momotalk(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return usageError("momotalk requires <character id> and <name>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return usageError(fmt.Sprintf("momotalk: bad character id %q", args[0]))
	}
	name := strings.Join(args[1:], " ")
	rows, err := a.tables().Messages(id)
	if err != nil {
		return err
	}
	text, err := messenger.Page(name, rows)
	if err != nil {
		return err
	}
	p, done, err := a.publisher(ctx)
	if err != nil {
		return err
	}
	defer done()
	short, _, _ := strings.Cut(name, " ")
	rep, err := p.Page(ctx, storage.Page{
		Title:      short + "/MomoTalk",
		Kind:       storage.KindMomoTalk,
		Text:       text,
		Characters: []string{name},
	})
	if err != nil {
		return err
	}
	a.printReport(rep)
	return nil
}

func (a *app) search(ctx context.Context, args []string) error {
	fs := newFlagSet("search")
	kind := fs.String("kind", "", "page kind: story|momotalk")
	character := fs.String("character", "", "pages listing this character")
	bgm := fs.Int64("bgm", 0, "pages playing this BGM id")
	limit := fs.Int("limit", 20, "maximum results")
	if err := fs.Parse(args); err != nil {
		return usageError("search: " + err.Error())
	}
	q := storage.SearchQuery{
		Text:      strings.Join(fs.Args(), " "),
		Kind:      *kind,
		Character: *character,
		Music:     *bgm,
		Limit:     *limit,
	}
	res, err := a.ws.Search(ctx, q)
	if err != nil {
		return err
	}
	if len(res) == 0 {
		fmt.Fprintln(a.out, "No matches.")
		return nil
	}
	for _, r := range res {
		if r.Snippet != "" {
			fmt.Fprintf(a.out, "%s [%s]\n    %s\n", r.Title, r.Kind, r.Snippet)
			continue
		}
		fmt.Fprintf(a.out, "%s [%s]\n", r.Title, r.Kind)
	}
	fmt.Fprintf(a.out, "%s results\n", humanize.Comma(int64(len(res))))
	return nil
}

func (a *app) failures(ctx context.Context, args []string) error {
	runID := ""
	if len(args) > 0 {
		runID = args[0]
	}
	recs, err := a.ws.Failures(ctx, runID)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "No failures recorded.")
		return nil
	}
	fmt.Fprintf(a.out, "Run %s\n", recs[0].RunID)
	for _, f := range recs {
		fmt.Fprintf(a.out, "  %s (%s): %s\n", f.Unit, humanize.Time(f.TS), f.Error)
	}
	return nil
}

func (a *app) revisions(ctx context.Context, args []string) error {
	fs := newFlagSet("revisions")
	limit := fs.Int("limit", 10, "maximum revisions listed")
	keep := fs.Int("keep", 0, "prune the page to this many revisions first (0 = no pruning)")
	if err := fs.Parse(args); err != nil {
		return usageError("revisions: " + err.Error())
	}
	if fs.NArg() == 0 {
		return usageError("revisions requires a page <title>")
	}
	title := strings.Join(fs.Args(), " ")
	if *keep > 0 {
		n, err := a.ws.PruneRevisions(ctx, title, *keep)
		if err != nil {
			return err
		}
		if n > 0 {
			fmt.Fprintf(a.out, "Pruned %s revisions\n", humanize.Comma(n))
		}
	}
	revs, err := a.ws.Revisions(ctx, title, *limit)
	if err != nil {
		return err
	}
	if len(revs) == 0 {
		fmt.Fprintf(a.out, "No revisions of %q.\n", title)
		return nil
	}
	for _, r := range revs {
		fmt.Fprintf(a.out, "%s  %08x  %s\n", r.TS.Format(time.DateTime), uint32(r.Hash), humanize.Bytes(uint64(len(r.Text))))
	}
	return nil
}

func (a *app) characters(ctx context.Context) error {
	counts, names, err := a.ws.Characters(ctx)
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Fprintln(a.out, "No characters indexed.")
		return nil
	}
	for _, n := range names {
		fmt.Fprintf(a.out, "%-32s %s\n", n, humanize.Comma(int64(counts[n])))
	}
	return nil
}

func (a *app) reindex(ctx context.Context) error {
	rebuilt, err := storage.DetectAndRebuildIndex(ctx, a.ws)
	if err != nil {
		return err
	}
	if !rebuilt {
		if err := storage.RebuildIndex(ctx, a.ws); err != nil {
			return err
		}
	}
	titles, err := a.ws.PageTitles()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Indexed %s pages\n", humanize.Comma(int64(len(titles))))
	return nil
}

func parseInts(args []string) ([]int64, error) {
	var out []int64
	for _, a := range args {
		for _, s := range splitList(a) {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("bad group %q", s)
			}
			out = append(out, n)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no groups given")
	}
	return out, nil
}

func parseKeys(s string) ([]uint32, error) {
	var out []uint32
	for _, p := range splitList(s) {
		n, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("bad title key %q", p)
		}
		out = append(out, uint32(n))
	}
	return out, nil
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
