/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package story

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"storywiki/internal/domain"
	"storywiki/internal/script"
	"storywiki/internal/tables"
)

func testTables() *tables.Tables {
	line := func(group int64, script, text string) domain.ScriptLine {
		return domain.ScriptLine{GroupID: group, ScriptKr: script, TextEn: text}
	}
	withBGM := func(l domain.ScriptLine, id int64) domain.ScriptLine {
		l.BGMID = id
		return l
	}
	return tables.FromRows(tables.Rows{
		Characters: []domain.CharacterRow{
			{CharacterName: tables.HashName("아루"), NameEN: "Aru", NicknameEN: "Problem Solver 68", SpinePrefabName: "x/CharacterSpine_Aru"},
		},
		BGMs: []domain.BGMRow{{ID: 3, Path: "Audio/Theme_03", Volume: 1}},
		Localize: []domain.LocalizeRow{
			{Key: 100, En: "Reunion 1"},
			{Key: 101, En: "Aru comes back."},
			{Key: 102, En: "Reunion 2"},
			{Key: 103, En: "Aru stays."},
		},
		SpriteFiles: []string{"Aru 05.png"},
		Scripts: []domain.ScriptLine{
			withBGM(line(1, "3;아루;05;안녕", "Hello."), 3),
			line(2, "3;아루;05;응", "Again."),
			withBGM(line(3, "3;아루;05;안녕", "Broken."), 77),
			line(4, "#title;1;제목", "Episode 4;Found Title"),
			line(4, "3;아루;05;응", "Fine."),
		},
	})
}

func quietBuilder(opts Options) *Builder {
	var buf bytes.Buffer
	return NewBuilder(testTables(), opts, slog.New(slog.NewTextHandler(&buf, nil)))
}

func TestBuildJoinsGroupsWithBattleMarker(t *testing.T) {
	b := quietBuilder(Options{})
	res, err := b.Build(context.Background(), Unit{Name: "Test", Type: domain.StoryMain, Groups: []int64{1, 2}, TitleKeys: []uint32{100, 102}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	kinds := make([]script.Kind, len(res.Story.Events))
	for i, e := range res.Story.Events {
		kinds[i] = e.Kind()
	}
	want := []script.Kind{script.KindBGM, script.KindDialogue, script.KindInfo, script.KindDialogue, script.KindBGMStop}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Fatalf("kinds mismatch (-want +got):\n%s", diff)
	}
	if res.Story.Events[2].(script.Info).Text != "A battle ensues" {
		t.Fatalf("expected battle marker, got %#v", res.Story.Events[2])
	}
	if res.Title != "Reunion" {
		t.Fatalf("title = %q", res.Title)
	}
	if res.Summary != "Aru comes back.\n\nAru stays." {
		t.Fatalf("summary = %q", res.Summary)
	}
	text := res.Page.Text()
	for _, s := range []string{"{{Story/StoryTop | title=Reunion", "[[Category:Main story episodes]]", "{{Story/BGMList | 3 }}", "{{Story/CharList | Aru }}"} {
		if !strings.Contains(text, s) {
			t.Errorf("page text lacks %q:\n%s", s, text)
		}
	}
}

func TestBuildTitleFallbacks(t *testing.T) {
	b := quietBuilder(Options{})
	res, err := b.Build(context.Background(), Unit{Name: "Page", Type: domain.StorySide, Groups: []int64{4}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Title != "Found Title" {
		t.Fatalf("title = %q", res.Title)
	}
	res, err = b.Build(context.Background(), Unit{Name: "Page", Groups: []int64{2}, Categories: []string{"Custom"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Title != "Page" || !strings.Contains(res.Page.Categories, "[[Category:Custom]]") {
		t.Fatalf("unexpected result %q %q", res.Title, res.Page.Categories)
	}
}

func TestBuildEmptyUnit(t *testing.T) {
	_, err := quietBuilder(Options{}).Build(context.Background(), Unit{Name: "Nothing", Groups: []int64{42}})
	if !errors.Is(err, ErrEmptyUnit) {
		t.Fatalf("expected ErrEmptyUnit, got %v", err)
	}
}

func TestBuildAllSkipsFailingUnit(t *testing.T) {
	units := []Unit{
		{Name: "One", Groups: []int64{1}},
		{Name: "Two", Groups: []int64{3}},
		{Name: "Three", Groups: []int64{2}},
	}
	for _, workers := range []int{1, 3} {
		batch := quietBuilder(Options{Workers: workers}).BuildAll(context.Background(), units)
		var names []string
		for _, r := range batch.Stories {
			names = append(names, r.Unit.Name)
		}
		if diff := cmp.Diff([]string{"One", "Three"}, names); diff != "" {
			t.Fatalf("workers %d: stories mismatch (-want +got):\n%s", workers, diff)
		}
		if len(batch.Failures) != 1 || batch.Failures[0].Unit.Name != "Two" {
			t.Fatalf("workers %d: failures = %+v", workers, batch.Failures)
		}
		if !errors.Is(batch.Failures[0].Err, domain.ErrNotFound) {
			t.Fatalf("workers %d: failure err = %v", workers, batch.Failures[0].Err)
		}
	}
}

func TestMergeTitles(t *testing.T) {
	cases := []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"Same", "Same"}, "Same"},
		{[]string{"Reunion 1", "Reunion 2"}, "Reunion"},
		{[]string{"Alpha", "Beta"}, "Alpha"},
	}
	for _, tc := range cases {
		if got := mergeTitles(tc.in); got != tc.want {
			t.Errorf("mergeTitles(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
