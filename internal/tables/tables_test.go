/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tables

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"storywiki/internal/domain"
)

func ptr(f float64) *float64 { return &f }

func sampleRows() Rows {
	return Rows{
		Characters: []domain.CharacterRow{
			{CharacterName: HashName("아루"), NameEN: "Aru", NicknameEN: "Problem Solver 68", SpinePrefabName: "UIs/03_Scenario/01_Character/CharacterSpine_aru", SmallPortrait: "UIs/01_Common/Student_Portrait_Aru"},
			{CharacterName: HashName("호시노 A"), NameEN: "Hoshino", NicknameEN: "Foreclosure Task Force", SpinePrefabName: "x/CharacterSpine_hoshino_swimsuit"},
			{CharacterName: HashName("선생"), NameEN: "Sensei", SmallPortrait: "x/NPC_Portrait_Zunko_Newyear"},
		},
		Backgrounds: []domain.BackgroundRow{
			{Name: 10, BGFileName: "UIs/03_Scenario/01_Background/BG_Classroom"},
			{Name: 11, BGFileName: "UIs/03_Scenario/01_Background/BG_Street.png"},
		},
		BGMs: []domain.BGMRow{
			{ID: 3, Path: "Audio/BGM/Theme_03", LoopStartTime: ptr(1.5), LoopEndTime: ptr(60), Volume: 0.7},
		},
		Localize: []domain.LocalizeRow{
			{Key: 1, En: "Title A"},
			{Key: 2, En: "Summary A"},
			{Key: 3, En: "Title B"},
		},
		SpriteFiles: []string{"Aru 05.png", "Aru 01.png", "Aru_01.png", "Hoshino (Swimsuit) 02.png", "readme.txt"},
		Scripts: []domain.ScriptLine{
			{GroupID: 7, TextEn: "a"},
			{GroupID: 8, TextEn: "b"},
			{GroupID: 7, TextEn: "c"},
		},
	}
}

func TestCharacterLookup(t *testing.T) {
	tb := FromRows(sampleRows())

	got, err := tb.Character("아루")
	if err != nil {
		t.Fatalf("Character: %v", err)
	}
	want := domain.Character{Name: "Aru", Nickname: "Problem Solver 68", Spine: "Aru", Portrait: "Aru"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("character mismatch (-want +got):\n%s", diff)
	}

	// lowercase latin suffix resolves through the upper-case variant
	got, err = tb.Character("호시노 a")
	if err != nil {
		t.Fatalf("Character variant: %v", err)
	}
	if got.Spine != "Hoshino (Swimsuit)" {
		t.Fatalf("spine = %q", got.Spine)
	}

	got, err = tb.Character("선생")
	if err != nil {
		t.Fatalf("Character npc: %v", err)
	}
	if got.Portrait != "Junko (New Year)" || got.Spine != "" {
		t.Fatalf("npc = %+v", got)
	}

	if _, err := tb.Character("없음"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCanonicalName(t *testing.T) {
	cases := map[string]string{
		"Hoshino_Swimsuit": "Hoshino (Swimsuit)",
		"hoshino":          "Hoshino",
		"Zunko":            "Junko",
		"Hihumi_default":   "Hifumi",
		"Serika_Newyear":   "Serika (New Year)",
		"Mika_Something":   "Mika (Something)",
		"":                 "",
	}
	for in, want := range cases {
		if got := CanonicalName(in); got != want {
			t.Errorf("CanonicalName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBackgroundAndBGM(t *testing.T) {
	tb := FromRows(sampleRows())
	name, err := tb.Background(10)
	if err != nil || name != "BG_Classroom.jpg" {
		t.Fatalf("Background(10) = %q, %v", name, err)
	}
	name, err = tb.Background(11)
	if err != nil || name != "BG_Street.png" {
		t.Fatalf("Background(11) = %q, %v", name, err)
	}
	if _, err := tb.Background(99); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	b, err := tb.BGM(3)
	if err != nil {
		t.Fatalf("BGM: %v", err)
	}
	if b.File != "Theme_03" || b.Volume != 0.7 || b.LoopEnd == nil || *b.LoopEnd != 60 {
		t.Fatalf("unexpected bgm %+v", b)
	}
	if _, err := tb.BGM(4); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTitleSummaryAndScripts(t *testing.T) {
	tb := FromRows(sampleRows())
	title, summary, err := tb.TitleSummary(1)
	if err != nil || title != "Title A" || summary != "Summary A" {
		t.Fatalf("TitleSummary(1) = %q, %q, %v", title, summary, err)
	}
	title, summary, err = tb.TitleSummary(3)
	if err != nil || title != "Title B" || summary != "" {
		t.Fatalf("TitleSummary(3) = %q, %q, %v", title, summary, err)
	}
	if _, _, err := tb.TitleSummary(42); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	lines, err := tb.ScriptGroup(7)
	if err != nil {
		t.Fatalf("ScriptGroup: %v", err)
	}
	if len(lines) != 2 || lines[0].TextEn != "a" || lines[1].TextEn != "c" {
		t.Fatalf("group 7 = %+v", lines)
	}
}

func TestSpriteIndex(t *testing.T) {
	idx := BuildSpriteIndex(sampleRows().SpriteFiles)
	want := map[string][]string{
		"Aru":                {"01", "05"},
		"Hoshino (Swimsuit)": {"02"},
	}
	if diff := cmp.Diff(want, idx); diff != "" {
		t.Fatalf("sprite index mismatch (-want +got):\n%s", diff)
	}

	tb := FromRows(sampleRows())
	exprs, err := tb.Expressions("Aru")
	if err != nil || len(exprs) != 2 {
		t.Fatalf("Expressions = %v, %v", exprs, err)
	}
	if _, err := tb.Expressions("Nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func writeTable(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestOpenReadsSplitScriptTables(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "ScenarioScriptExcelTable1.json", `{"DataList":[{"GroupId":1,"SelectionGroup":0,"BGMId":0,"Sound":"","BGName":0,"PopupFileName":"","ScriptKr":"","TextEn":"one"}]}`)
	writeTable(t, dir, "ScenarioScriptExcelTable2.json", `{"DataList":[{"GroupId":1,"SelectionGroup":0,"BGMId":0,"Sound":"","BGName":0,"PopupFileName":"","ScriptKr":"","TextEn":"two"}]}`)
	writeTable(t, dir, BGMFile, `{"DataList":[{"Id":5,"Path":"a/b/Track_5","LoopStartTime":null,"LoopEndTime":null,"Volume":1}]}`)

	tb := Open(dir, true)
	lines, err := tb.ScriptGroup(1)
	if err != nil {
		t.Fatalf("ScriptGroup: %v", err)
	}
	if len(lines) != 2 || lines[0].TextEn != "one" || lines[1].TextEn != "two" {
		t.Fatalf("unexpected lines %+v", lines)
	}
	b, err := tb.BGM(5)
	if err != nil || b.File != "Track_5" || b.LoopEnd != nil {
		t.Fatalf("BGM(5) = %+v, %v", b, err)
	}
	// sprites.json is optional
	if _, err := tb.Expressions("Aru"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without sprites file, got %v", err)
	}
}

func TestOpenRejectsInvalidTable(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, BackgroundFile, `{"DataList":[{"Name":"oops"}]}`)

	_, err := Open(dir, true).Background(1)
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(se.Problems) == 0 {
		t.Fatal("expected schema problems")
	}

	// without validation the decoder reports the type mismatch instead
	if _, err := Open(dir, false).Background(1); err == nil || errors.As(err, &se) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestMissingTableFile(t *testing.T) {
	if _, err := Open(t.TempDir(), false).Background(1); err == nil {
		t.Fatal("expected error for missing table file")
	}
}
