/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders parsed stories: wiki template markup for pages and
// PDF transcripts for proofreading.
package export

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"storywiki/internal/script"
)

// Navigation templates framing every story page.
const (
	StoryTop    = "{{Story/StoryTop}}"
	StoryBottom = "{{Story/StoryBottom}}"
)

// field is one template argument of an event. A key containing %d gets the
// slot number substituted there instead of appended.
type field struct {
	key   string
	value string
}

// Template renders events as one {{name ...}} call. Every event takes the
// next slot of a single counter shared by all kinds, so the output of
// equal event lists is byte-identical.
func Template(name string, events []script.Event) string {
	lines := []string{"{{" + name}
	for i, ev := range events {
		n := strconv.Itoa(i + 1)
		lines = append(lines, "|"+n+"="+string(ev.Kind()))
		for _, f := range fields(ev) {
			key := f.key + n
			if strings.Contains(f.key, "%d") {
				key = strings.ReplaceAll(f.key, "%d", n)
			}
			lines = append(lines, "|"+key+"="+f.value)
		}
		lines = append(lines, "")
	}
	lines = append(lines, "}}")
	return strings.Join(lines, "\n")
}

func fields(ev script.Event) []field {
	switch e := ev.(type) {
	case script.Dialogue:
		out := []field{{"name", e.Name}, {"affiliation", e.Affiliation}, {"text", e.Text}}
		if e.Spine != "" {
			out = append(out, field{"spine", e.Spine}, field{"sequence", e.Sequence})
		}
		return withBranch(out, e.Branch)
	case script.Narration:
		return withBranch([]field{{"text", e.Text}}, e.Branch)
	case script.Info:
		return withBranch([]field{{"text", e.Text}}, e.Branch)
	case script.Sensei:
		return withBranch([]field{{"text", e.Text}}, e.Branch)
	case script.Reply:
		out := make([]field, 0, len(e.Options)+1)
		for i, o := range e.Options {
			out = append(out, field{fmt.Sprintf("option%%d_%d", i+1), o})
		}
		return append(out, field{"group", strconv.Itoa(e.Group)})
	case script.Background:
		return []field{{"background", e.File}}
	case script.BGM:
		out := []field{{"bgm", e.File}, {"name", e.Name}, {"volume", fmt.Sprintf("%.2f", e.Volume)}}
		if e.LoopEnd != nil && math.Abs(*e.LoopEnd) > 0.0001 {
			start := 0.0
			if e.LoopStart != nil {
				start = *e.LoopStart
			}
			out = append(out, field{"loop-start", fmt.Sprintf("%.2f", start)}, field{"loop-end", fmt.Sprintf("%.2f", *e.LoopEnd)})
		}
		return out
	case script.BGMStop:
		return nil
	case script.Sound:
		return withBranch([]field{{"sound", e.File}, {"name", e.Name}}, e.Branch)
	case script.Popup:
		return []field{{"popup", e.File}}
	case script.Screen:
		parts := make([]string, 0, len(e.Slots))
		for i, s := range e.Slots {
			parts = append(parts, fmt.Sprintf("char%d=%s|sequence%d=%s", i, s.Spine, i, s.Sequence))
		}
		return withBranch([]field{{"content", "{{Story/Row|" + strings.Join(parts, "|") + "}}"}}, e.Branch)
	case script.StudentText:
		return withBranch(header([]field{{"text", e.Text}}, e.Name, e.Profile), e.Branch)
	case script.StudentImage:
		return withBranch(header([]field{{"file", e.File}}, e.Name, e.Profile), e.Branch)
	case script.Relationship:
		return []field{{"name", e.Name}}
	}
	return nil
}

func withBranch(f []field, b script.Branch) []field {
	if !b.InBranch() {
		return f
	}
	return append(f, field{"group", strconv.Itoa(b.Group)}, field{"option", strconv.Itoa(b.Option)})
}

func header(f []field, name, profile string) []field {
	if name == "" {
		return f
	}
	return append(f, field{"name", name}, field{"profile", profile})
}

// Categories renders the music and character lists of a story followed by
// its category links.
func Categories(cats, chars []string, music []int64) string {
	ids := append([]int64(nil), music...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	bgm := make([]string, len(ids))
	for i, id := range ids {
		bgm[i] = strconv.FormatInt(id, 10)
	}
	names := append([]string(nil), chars...)
	sort.Strings(names)

	links := make([]string, len(cats))
	for i, c := range cats {
		links[i] = "[[Category:" + c + "]]"
	}
	return "{{Story/BGMList | " + strings.Join(bgm, " | ") + " }}" +
		"{{Story/CharList | " + strings.Join(names, " | ") + " }}" +
		strings.Join(links, "\n")
}

// NavArgs link a story page to its neighbours.
type NavArgs struct {
	PrevTitle string
	PrevPage  string
	NextTitle string
	NextPage  string
}

// TitleArgs are shown in the top navigation only.
type TitleArgs struct {
	Title   string
	Summary string
}

func joinArgs(kv ...string) string {
	var parts []string
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			parts = append(parts, kv[i]+"="+kv[i+1])
		}
	}
	return strings.Join(parts, " | ")
}

// CustomNav adds navigation arguments to the top and bottom templates. The
// title arguments go to the top template only.
func CustomNav(top, bottom string, nav NavArgs, title TitleArgs) (string, string) {
	navArgs := joinArgs("prev_title", nav.PrevTitle, "prev_page", nav.PrevPage, "next_title", nav.NextTitle, "next_page", nav.NextPage)
	titleArgs := joinArgs("title", title.Title, "summary", title.Summary)
	return withArgs(top, navArgs, titleArgs), withArgs(bottom, navArgs)
}

func withArgs(tmpl string, args ...string) string {
	var parts []string
	for _, a := range args {
		if a != "" {
			parts = append(parts, a)
		}
	}
	i := strings.LastIndex(tmpl, "}}")
	if len(parts) == 0 || i < 0 {
		return tmpl
	}
	return tmpl[:i] + " | " + strings.Join(parts, " | ") + " }}" + tmpl[i+2:]
}

// Page is a complete story page.
type Page struct {
	Title      string
	Summary    string
	Body       string // output of Template
	Categories string // output of Categories
	Nav        NavArgs
}

// Text assembles the page wikitext.
func (p Page) Text() string {
	top, bottom := CustomNav(StoryTop, StoryBottom, p.Nav, TitleArgs{Title: p.Title, Summary: p.Summary})
	return strings.Join([]string{top, p.Body, bottom, p.Categories}, "\n")
}
