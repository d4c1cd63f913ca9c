/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package messenger

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"storywiki/internal/domain"
	"storywiki/internal/script"
)

func msg(group int64, condition, text string, next, favor int64) domain.MessengerRow {
	return domain.MessengerRow{
		CharacterID:      1,
		MessageGroupID:   group,
		MessageCondition: condition,
		MessageType:      "Text",
		MessageEN:        text,
		NextGroupID:      next,
		FavorScheduleID:  favor,
	}
}

func branchingConversation() []domain.MessengerRow {
	return []domain.MessengerRow{
		msg(1, "FavorRankUp", "Sensei!", 2, 0),
		msg(2, "Answer", "Yes?", 10, 0),
		msg(2, "Answer", "What?", 20, 0),
		msg(10, "None", "I missed you", 99, 5),
		msg(20, "None", "Rude!", 99, 5),
		msg(99, "None", "Anyway, bye", 0, 0),
	}
}

func TestConversation_ReplyBranches(t *testing.T) {
	b := NewBuilder("Aru Rikuhachima")
	got, err := b.Conversation(branchingConversation())
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	want := []script.Event{
		script.StudentText{Text: "Sensei!", Name: "Aru", Profile: "Aru Rikuhachima"},
		script.Reply{Options: []string{"Yes?", "What?"}, Group: 1},
		script.StudentText{Text: "I missed you", Name: "Aru", Profile: "Aru Rikuhachima", Branch: script.Branch{Group: 1, Option: 1}},
		script.StudentText{Text: "Rude!", Name: "Aru", Profile: "Aru Rikuhachima", Branch: script.Branch{Group: 1, Option: 2}},
		script.Relationship{Name: "Aru"},
		script.StudentText{Text: "Anyway, bye", Name: "Aru", Profile: "Aru Rikuhachima"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestConversation_SingleAnswerAndImages(t *testing.T) {
	rows := []domain.MessengerRow{
		msg(1, "FavorRankUp", "Look", 2, 0),
		{MessageGroupID: 1, MessageType: "Image", ImagePath: "UIs/03_Scenario/04_ScenarioImage/Aru_Image_01", NextGroupID: 2},
		msg(2, "Answer", "Nice photo", 3, 7),
	}
	got, err := NewBuilder("Aru").Conversation(rows)
	if err != nil {
		t.Fatalf("Conversation: %v", err)
	}
	want := []script.Event{
		script.StudentText{Text: "Look", Name: "Aru", Profile: "Aru"},
		script.StudentImage{File: "Aru_Image_01"},
		script.Sensei{Text: "Nice photo"},
		script.Relationship{Name: "Aru"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestConversation_RelationshipCount(t *testing.T) {
	rows := []domain.MessengerRow{msg(1, "FavorRankUp", "Hello", 0, 0)}
	if _, err := NewBuilder("Aru").Conversation(rows); !errors.Is(err, ErrRelationshipCount) {
		t.Fatalf("want ErrRelationshipCount, got %v", err)
	}
	rows = []domain.MessengerRow{msg(1, "FavorRankUp", "Hello", 2, 3), msg(2, "None", "Again", 0, 3)}
	if _, err := NewBuilder("Aru").Conversation(rows); !errors.Is(err, ErrRelationshipCount) {
		t.Fatalf("want ErrRelationshipCount for two events, got %v", err)
	}
}

func TestConversations_Split(t *testing.T) {
	rows := append(branchingConversation(), msg(200, "FavorRankUp", "Again?", 0, 9))
	convs := Conversations(rows)
	if len(convs) != 2 {
		t.Fatalf("want 2 conversations, got %d", len(convs))
	}
	if len(convs[0]) != 6 || convs[1][0].MessageEN != "Again?" {
		t.Fatalf("unexpected split: %+v", convs)
	}
}

func TestPage(t *testing.T) {
	rows := append(branchingConversation(),
		msg(200, "FavorRankUp", "Again?", 201, 0),
		msg(201, "Answer", "Sure", 202, 0),
		msg(201, "Answer", "No", 203, 0),
		msg(202, "None", "Yay", 0, 0),
		msg(203, "None", "Boo", 0, 4),
	)
	page, err := Page("Aru", rows)
	if err != nil {
		t.Fatalf("Page: %v", err)
	}
	for _, want := range []string{
		"{{#seo:\n    |title=Aru MomoTalks",
		"<span id=\"momotalk-1\"></span>\n{{MomoTalk\n|1=student-text",
		"<span id=\"momotalk-2\"></span>\n{{MomoTalk",
		"|group2=2",
		"[[Category:MomoTalk]]",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("page missing %q:\n%s", want, page)
		}
	}
	if !strings.HasSuffix(page, "}}\n\n[[Category:MomoTalk]]") {
		t.Errorf("unexpected page ending:\n%s", page)
	}
}

func TestPage_Untranslated(t *testing.T) {
	rows := branchingConversation()
	for i := range rows {
		rows[i].MessageEN = ""
	}
	if _, err := Page("Aru", rows); !errors.Is(err, ErrUntranslated) {
		t.Fatalf("want ErrUntranslated, got %v", err)
	}
}
