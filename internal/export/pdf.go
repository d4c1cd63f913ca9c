/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"storywiki/internal/script"
)

// TranscriptOptions controls PDF transcript output. Sizes are points.
type TranscriptOptions struct {
	Title    string
	Summary  string
	FontSize float64 // default 11
	// Cues includes music, background, sound and popup lines.
	Cues bool
}

var (
	reBreak = regexp.MustCompile(`<br\s*/?>`)
	reTag   = regexp.MustCompile(`<[^>]+>`)
)

// plain strips the wiki HTML used in event text.
func plain(s string) string {
	s = reBreak.ReplaceAllString(s, "\n")
	s = reTag.ReplaceAllString(s, "")
	return strings.ReplaceAll(s, "&#8203;", "")
}

// transcriptLine is one paragraph of the transcript. Style is a gofpdf font
// style ("", "B", "I").
type transcriptLine struct {
	speaker string
	text    string
	style   string
}

func transcript(events []script.Event, cues bool) []transcriptLine {
	var out []transcriptLine
	cue := func(format string, args ...any) {
		if cues {
			out = append(out, transcriptLine{text: "[" + fmt.Sprintf(format, args...) + "]", style: "I"})
		}
	}
	for _, ev := range events {
		switch e := ev.(type) {
		case script.Dialogue:
			out = append(out, transcriptLine{speaker: e.Name, text: plain(e.Text)})
		case script.StudentText:
			out = append(out, transcriptLine{speaker: e.Name, text: plain(e.Text)})
		case script.Sensei:
			out = append(out, transcriptLine{speaker: "Sensei", text: plain(e.Text)})
		case script.Narration:
			out = append(out, transcriptLine{text: plain(e.Text), style: "I"})
		case script.Info:
			out = append(out, transcriptLine{text: plain(e.Text), style: "I"})
		case script.Reply:
			for i, o := range e.Options {
				out = append(out, transcriptLine{speaker: fmt.Sprintf("Option %d", i+1), text: plain(o)})
			}
		case script.StudentImage:
			cue("Image: %s", e.File)
		case script.Relationship:
			out = append(out, transcriptLine{text: "Relationship story unlocked", style: "B"})
		case script.BGM:
			cue("Music: %s", e.Name)
		case script.BGMStop:
			cue("Music stops")
		case script.Background:
			cue("Background: %s", e.File)
		case script.Sound:
			cue("Sound: %s", e.Name)
		case script.Popup:
			cue("Popup: %s", e.File)
		case script.Screen:
			names := make([]string, len(e.Slots))
			for i, s := range e.Slots {
				names[i] = s.Spine
			}
			cue("On screen: %s", strings.Join(names, ", "))
		}
	}
	return out
}

// WriteTranscriptPDF writes a readable transcript of events to path,
// creating parent directories as needed.
func WriteTranscriptPDF(path string, events []script.Event, opt TranscriptOptions) error {
	size := opt.FontSize
	if size <= 0 {
		size = 11
	}
	pdf := gofpdf.New("P", "pt", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(opt.Title, true)
	pdf.SetAuthor("storywiki", false)
	pdf.SetMargins(56, 56, 56)
	pdf.SetAutoPageBreak(true, 56)
	pdf.AddPage()

	width, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	body := width - left - right
	lineH := size * 1.35

	if opt.Title != "" {
		pdf.SetFont("Helvetica", "B", size*1.6)
		pdf.MultiCell(body, size*2, tr(opt.Title), "", "L", false)
	}
	if opt.Summary != "" {
		pdf.SetFont("Helvetica", "I", size)
		pdf.MultiCell(body, lineH, tr(plain(opt.Summary)), "", "L", false)
	}
	pdf.Ln(lineH)

	for _, l := range transcript(events, opt.Cues) {
		if l.speaker != "" {
			pdf.SetFont("Helvetica", "B", size)
			pdf.MultiCell(body, lineH, tr(l.speaker), "", "L", false)
		}
		pdf.SetFont("Helvetica", l.style, size)
		pdf.MultiCell(body, lineH, tr(l.text), "", "L", false)
		pdf.Ln(size * 0.4)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
