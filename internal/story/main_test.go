/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package story

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"storywiki/internal/domain"
	"storywiki/internal/export"
)

func TestMainStoryTitle(t *testing.T) {
	cases := map[string]string{
		MainStoryTitle(1, 2, 3):   "Main Story/Volume 1/Chapter 2/Episode 3",
		MainStoryTitle(100, 1, 1): "Main Story/Volume F/Chapter 1/Episode 1",
		MainStoryTitle(2, 0, 0):   "Main Story/Volume 2",
		MainStoryTitle(0, 0, 0):   "Main Story",
	}
	for got, want := range cases {
		if got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
}

func TestMainUnitsAndLinks(t *testing.T) {
	modes := []domain.ScenarioModeRow{
		{ModeType: "Main", VolumeID: 1, ChapterID: 2, EpisodeID: 1, FrontScenarioGroupID: []int64{30}},
		{ModeType: "Main", VolumeID: 1, ChapterID: 1, EpisodeID: 2, FrontScenarioGroupID: []int64{20}, BackScenarioGroupID: []int64{21}},
		{ModeType: "Main", VolumeID: 1, ChapterID: 1, EpisodeID: 1, FrontScenarioGroupID: []int64{10}},
		{ModeType: "Mini", VolumeID: 1, ChapterID: 1, EpisodeID: 1},
		{ModeType: "Main", VolumeID: 2, ChapterID: 1, EpisodeID: 1},
	}
	units := MainUnits(modes, 1)
	var names []string
	for _, u := range units {
		names = append(names, u.Name)
	}
	want := []string{
		"Main Story/Volume 1/Chapter 1/Episode 1",
		"Main Story/Volume 1/Chapter 1/Episode 2",
		"Main Story/Volume 1/Chapter 2/Episode 1",
	}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Fatalf("units mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int64{20, 21}, units[1].Groups); diff != "" {
		t.Fatalf("groups mismatch (-want +got):\n%s", diff)
	}

	results := make([]Result, len(units))
	for i, u := range units {
		results[i] = Result{Unit: u, Title: u.Name[len(u.Name)-9:]}
	}
	LinkEpisodes(results)
	if results[0].Page.Nav != (export.NavArgs{NextTitle: results[1].Title, NextPage: units[1].Name}) {
		t.Fatalf("first nav = %+v", results[0].Page.Nav)
	}
	if results[2].Page.Nav.PrevPage != units[1].Name || results[2].Page.Nav.NextPage != "" {
		t.Fatalf("last nav = %+v", results[2].Page.Nav)
	}
	if len(MainUnits(modes, 0)) != 4 {
		t.Fatalf("expected all main volumes without a filter")
	}
}

func TestTypeCategory(t *testing.T) {
	if got := TypeCategory(domain.StoryRelationship); got != "Relationship story episodes" {
		t.Fatalf("TypeCategory = %q", got)
	}
}
