/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package story

import (
	"fmt"
	"sort"

	"storywiki/internal/domain"
	"storywiki/internal/export"
)

// Volumes with a letter instead of a number on the wiki.
var volumeNames = map[int64]string{
	100: "F",
}

// MainStoryTitle returns the page title of a main story episode, e.g.
// "Main Story/Volume 1/Chapter 2/Episode 3". Zero parts are left out from
// the right.
func MainStoryTitle(volume, chapter, episode int64) string {
	out := "Main Story"
	if volume == 0 && chapter == 0 && episode == 0 {
		return out
	}
	v, ok := volumeNames[volume]
	if !ok {
		v = fmt.Sprint(volume)
	}
	out += "/Volume " + v
	if chapter != 0 {
		out += fmt.Sprintf("/Chapter %d", chapter)
		if episode != 0 {
			out += fmt.Sprintf("/Episode %d", episode)
		}
	}
	return out
}

// MainUnits lists the main story episodes of the scenario mode table in
// reading order. A non-zero volume restricts the list to that volume.
func MainUnits(modes []domain.ScenarioModeRow, volume int64) []Unit {
	var out []Unit
	for _, m := range modes {
		if m.ModeType != "Main" || (volume != 0 && m.VolumeID != volume) {
			continue
		}
		groups := append(append([]int64(nil), m.FrontScenarioGroupID...), m.BackScenarioGroupID...)
		out = append(out, Unit{
			Name:    MainStoryTitle(m.VolumeID, m.ChapterID, m.EpisodeID),
			Type:    domain.StoryMain,
			Groups:  groups,
			Volume:  m.VolumeID,
			Chapter: m.ChapterID,
			Episode: m.EpisodeID,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Volume != b.Volume {
			return a.Volume < b.Volume
		}
		if a.Chapter != b.Chapter {
			return a.Chapter < b.Chapter
		}
		return a.Episode < b.Episode
	})
	return out
}

// follows reports whether episode b comes right after a: the next episode
// of the same chapter, or the first episode of the next chapter.
func follows(a, b Unit) bool {
	if a.Volume != b.Volume {
		return false
	}
	if a.Chapter == b.Chapter {
		return b.Episode == a.Episode+1
	}
	return b.Chapter == a.Chapter+1 && b.Episode == 1
}

// LinkEpisodes sets the previous/next navigation of consecutive main story
// results. results must be in reading order, as BuildAll returns them.
func LinkEpisodes(results []Result) {
	for i := range results {
		var nav export.NavArgs
		if i > 0 && follows(results[i-1].Unit, results[i].Unit) {
			nav.PrevTitle, nav.PrevPage = results[i-1].Title, results[i-1].Unit.Name
		}
		if i+1 < len(results) && follows(results[i].Unit, results[i+1].Unit) {
			nav.NextTitle, nav.NextPage = results[i+1].Title, results[i+1].Unit.Name
		}
		results[i].Page.Nav = nav
	}
}
