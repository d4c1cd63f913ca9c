/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "errors"

// ErrNotFound is returned (wrapped) by lookups for ids absent from a table.
var ErrNotFound = errors.New("not found")

// This file defines the rows read from the game's data tables and the small
// resolved records handed to the story parser. JSON tags follow the column
// names of the exported "*ExcelTable.json" files.

// StoryType identifies which family of stories a unit belongs to.
type StoryType int

const (
	StoryMain StoryType = iota
	StorySide
	StoryGroup
	StoryEvent
	StoryRelationship
)

var storyTypeNames = map[StoryType]string{
	StoryMain:         "main",
	StorySide:         "side",
	StoryGroup:        "group",
	StoryEvent:        "event",
	StoryRelationship: "relationship",
}

func (t StoryType) String() string {
	if s, ok := storyTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseStoryType maps a name produced by String back to a StoryType.
func ParseStoryType(s string) (StoryType, bool) {
	for t, name := range storyTypeNames {
		if name == s {
			return t, true
		}
	}
	return 0, false
}

// BGMStop is the BGMId sentinel meaning "stop the current track".
const BGMStop int64 = 999

// ScriptLine is one row of a scenario script table.
type ScriptLine struct {
	GroupID        int64  `json:"GroupId"`
	SelectionGroup int64  `json:"SelectionGroup"`
	BGMID          int64  `json:"BGMId"`
	Sound          string `json:"Sound"`
	BGName         uint32 `json:"BGName"`
	PopupFileName  string `json:"PopupFileName"`
	ScriptKr       string `json:"ScriptKr"`
	TextEn         string `json:"TextEn"`
	NextGroupID    int64  `json:"NextGroupId,omitempty"`
	FavorTrigger   bool   `json:"FavorTrigger,omitempty"`

	// Battle marks a synthetic separator inserted between two script groups
	// that are rendered as one story.
	Battle bool `json:"-"`
}

func (l ScriptLine) Group() int64     { return l.GroupID }
func (l ScriptLine) NextGroup() int64 { return l.NextGroupID }

// CharacterRow is one row of ScenarioCharacterNameExcelTable.
type CharacterRow struct {
	CharacterName   uint32 `json:"CharacterName"`
	NameEN          string `json:"NameEN"`
	NicknameEN      string `json:"NicknameEN"`
	SpinePrefabName string `json:"SpinePrefabName"`
	SmallPortrait   string `json:"SmallPortrait"`
}

// Character is a resolved scenario character.
type Character struct {
	Name     string
	Nickname string
	Spine    string
	Portrait string
}

// BackgroundRow is one row of ScenarioBGNameExcelTable.
type BackgroundRow struct {
	Name       uint32 `json:"Name"`
	BGFileName string `json:"BGFileName"`
}

// BGMRow is one row of BGMExcelTable.
type BGMRow struct {
	ID            int64    `json:"Id"`
	Path          string   `json:"Path"`
	LoopStartTime *float64 `json:"LoopStartTime"`
	LoopEndTime   *float64 `json:"LoopEndTime"`
	Volume        float64  `json:"Volume"`
}

// BGM is a resolved music track.
type BGM struct {
	ID        int64
	File      string
	LoopStart *float64
	LoopEnd   *float64
	Volume    float64
}

// LocalizeRow is one row of LocalizeScenarioExcelTable.
type LocalizeRow struct {
	Key uint32 `json:"Key"`
	En  string `json:"En"`
}

// ScenarioModeRow is one row of ScenarioModeExcelTable.
type ScenarioModeRow struct {
	ModeID               int64   `json:"ModeId"`
	ModeType             string  `json:"ModeType"`
	VolumeID             int64   `json:"VolumeId"`
	ChapterID            int64   `json:"ChapterId"`
	EpisodeID            int64   `json:"EpisodeId"`
	FrontScenarioGroupID []int64 `json:"FrontScenarioGroupId"`
	BackScenarioGroupID  []int64 `json:"BackScenarioGroupId"`
	NeedClub             string  `json:"NeedClub,omitempty"`
}

// MessengerRow is one row of AcademyMessangerExcelTable (MomoTalk).
type MessengerRow struct {
	ID               int64  `json:"Id"`
	CharacterID      int64  `json:"CharacterId"`
	MessageGroupID   int64  `json:"MessageGroupId"`
	MessageCondition string `json:"MessageCondition"`
	MessageType      string `json:"MessageType"`
	ImagePath        string `json:"ImagePath"`
	MessageEN        string `json:"MessageEN"`
	NextGroupID      int64  `json:"NextGroupId"`
	FavorScheduleID  int64  `json:"FavorScheduleId"`
}

func (m MessengerRow) Group() int64     { return m.MessageGroupID }
func (m MessengerRow) NextGroup() int64 { return m.NextGroupID }
