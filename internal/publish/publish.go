/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package publish stores rendered stories: page files and index in the
// workspace, optional PDF transcripts, the failure ledger and the optional
// Postgres mirror.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"storywiki/internal/export"
	applog "storywiki/internal/log"
	"storywiki/internal/storage"
	"storywiki/internal/story"
)

// Mirror receives a copy of every saved page. *backend.Mirror implements it.
type Mirror interface {
	Upsert(ctx context.Context, pages []storage.Page) (int, error)
	RecordFailures(ctx context.Context, runID string, failures []storage.FailureRecord) error
}

// Publisher writes results into one workspace.
type Publisher struct {
	ws     *storage.Workspace
	mirror Mirror
	// Transcripts also writes a PDF transcript per story into exports/.
	Transcripts bool
	log         *slog.Logger
}

// New returns a publisher for ws. mirror may be nil.
func New(ws *storage.Workspace, mirror Mirror) *Publisher {
	return &Publisher{ws: ws, mirror: mirror, log: applog.WithComponent("publish")}
}

// Report summarizes one publish run.
type Report struct {
	RunID       string
	Written     int
	Unchanged   int
	Failed      int
	Mirrored    int
	Transcripts int
	// Bytes is the size of all page text handed to the workspace.
	Bytes int64
}

// StoryPage converts a rendered story into a workspace page.
func StoryPage(r story.Result) storage.Page {
	return storage.Page{
		Title:      r.Unit.Name,
		Kind:       storage.KindStory,
		Text:       r.Page.Text(),
		Characters: r.Story.Characters,
		Music:      r.Story.Music,
	}
}

// Batch stores every story of b and records its failures under a new run id.
func (p *Publisher) Batch(ctx context.Context, b story.Batch) (Report, error) {
	rep := Report{RunID: storage.NewRunID(), Failed: len(b.Failures)}
	l := p.log.With(slog.String("run", rep.RunID))

	pages := make([]storage.Page, len(b.Stories))
	for i, r := range b.Stories {
		pages[i] = StoryPage(r)
	}
	if err := p.pages(ctx, pages, &rep); err != nil {
		return rep, err
	}

	if p.Transcripts {
		for _, r := range b.Stories {
			path := TranscriptPath(p.ws, r.Unit.Name)
			opt := export.TranscriptOptions{Title: r.Title, Summary: r.Summary, Cues: true}
			if err := export.WriteTranscriptPDF(path, r.Story.Events, opt); err != nil {
				return rep, fmt.Errorf("transcript %q: %w", r.Unit.Name, err)
			}
			rep.Transcripts++
		}
	}

	if len(b.Failures) > 0 {
		recs := make([]storage.FailureRecord, len(b.Failures))
		for i, f := range b.Failures {
			recs[i] = storage.FailureRecord{Unit: f.Unit.Name, Error: f.Err.Error()}
		}
		if err := p.ws.RecordFailures(ctx, rep.RunID, recs); err != nil {
			return rep, err
		}
		if p.mirror != nil {
			if err := p.mirror.RecordFailures(ctx, rep.RunID, recs); err != nil {
				return rep, fmt.Errorf("mirror failures: %w", err)
			}
		}
	}
	l.Info("batch published",
		slog.Int("written", rep.Written),
		slog.Int("unchanged", rep.Unchanged),
		slog.Int("failed", rep.Failed),
		slog.Int("transcripts", rep.Transcripts),
	)
	return rep, nil
}

// Page stores a single page that did not come from a story batch, such as a
// MomoTalk page.
func (p *Publisher) Page(ctx context.Context, page storage.Page) (Report, error) {
	rep := Report{RunID: storage.NewRunID()}
	err := p.pages(ctx, []storage.Page{page}, &rep)
	return rep, err
}

func (p *Publisher) pages(ctx context.Context, pages []storage.Page, rep *Report) error {
	for _, pg := range pages {
		rep.Bytes += int64(len(pg.Text))
	}
	res, err := p.ws.SavePages(ctx, pages)
	if err != nil {
		return err
	}
	rep.Written, rep.Unchanged = len(res.Written), len(res.Unchanged)
	if p.mirror != nil && len(pages) > 0 {
		n, err := p.mirror.Upsert(ctx, pages)
		if err != nil {
			return fmt.Errorf("mirror pages: %w", err)
		}
		rep.Mirrored = n
	}
	return nil
}

// TranscriptPath is where the PDF transcript of a page is written.
func TranscriptPath(ws *storage.Workspace, title string) string {
	name := strings.TrimSuffix(storage.PageFileName(title), filepath.Ext(storage.PageFileName(title)))
	return filepath.Join(ws.Root, storage.ExportsDirName, name+".pdf")
}
