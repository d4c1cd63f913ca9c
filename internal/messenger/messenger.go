/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package messenger renders MomoTalk conversations: the in-game messenger
// chats between Sensei and a student.
package messenger

import (
	"errors"
	"fmt"
	"strings"

	"storywiki/internal/domain"
	"storywiki/internal/export"
	"storywiki/internal/script"
)

// Message conditions and types used by the messenger table.
const (
	conditionAnswer      = "Answer"
	conditionFavorRankUp = "FavorRankUp"
	typeImage            = "Image"
)

// maxBlank is the number of empty text messages tolerated per student
// before the table is considered untranslated.
const maxBlank = 3

var (
	// ErrUntranslated is returned for a student whose messages are mostly empty.
	ErrUntranslated = errors.New("messages are not translated")
	// ErrRelationshipCount is returned when a conversation does not unlock
	// its relationship story exactly once.
	ErrRelationshipCount = errors.New("relationship event must occur exactly once")
)

// Conversations splits the messages of one student at every FavorRankUp
// message.
func Conversations(rows []domain.MessengerRow) [][]domain.MessengerRow {
	var out [][]domain.MessengerRow
	var cur []domain.MessengerRow
	for _, r := range rows {
		if r.MessageCondition == conditionFavorRankUp && len(cur) > 0 {
			out = append(out, cur)
			cur = nil
		}
		cur = append(cur, r)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// Builder renders the conversations of one student. Reply groups are
// numbered across all conversations of the student.
type Builder struct {
	name       string
	short      string
	replyGroup int
}

func NewBuilder(characterName string) *Builder {
	short, _, _ := strings.Cut(characterName, " ")
	return &Builder{name: characterName, short: short}
}

// Conversation turns one conversation into events. Replies whose options
// lead to the same follow-up unlock the relationship story only once: the
// last group of every option path but the last one is kept from emitting it.
func (b *Builder) Conversation(rows []domain.MessengerRow) ([]script.Event, error) {
	index := script.IndexGroups(rows)
	options := map[int64]int{}
	noFavor := map[int64]struct{}{}
	branch := func(group int64) script.Branch {
		if o, ok := options[group]; ok {
			return script.Branch{Group: b.replyGroup, Option: o}
		}
		return script.Branch{}
	}

	var events []script.Event
	relationships := 0
	prevGroup := int64(-1)
	n := len(rows)
	for i := 0; i < n; i++ {
		c := rows[i]
		group := c.MessageGroupID
		switch {
		case c.MessageCondition == conditionAnswer && i < n-1 && rows[i+1].MessageGroupID == group:
			candidates := []domain.MessengerRow{c}
			for i < n-1 && rows[i+1].MessageGroupID == group {
				i++
				candidates = append(candidates, rows[i])
			}
			conv := script.FindConvergence(index, candidates)
			for idx, path := range conv.Paths {
				if len(path) > 0 {
					noFavor[path[len(path)-1]] = struct{}{}
				}
				for _, id := range path {
					options[id] = idx + 1
				}
			}
			if last := conv.Paths[len(conv.Paths)-1]; len(last) > 0 {
				delete(noFavor, last[len(last)-1])
			}
			b.replyGroup++
			texts := make([]string, len(candidates))
			for j, cand := range candidates {
				texts[j] = cand.MessageEN
			}
			events = append(events, script.Reply{Options: texts, Group: b.replyGroup})
		case c.MessageCondition == conditionAnswer:
			events = append(events, script.Sensei{Text: c.MessageEN, Branch: branch(group)})
		default:
			var name, profile string
			if group != prevGroup {
				name, profile = b.short, b.name
			}
			if c.MessageType == typeImage {
				events = append(events, script.StudentImage{File: baseName(c.ImagePath), Name: name, Profile: profile, Branch: branch(group)})
			} else {
				events = append(events, script.StudentText{Text: c.MessageEN, Name: name, Profile: profile, Branch: branch(group)})
			}
		}
		if _, skip := noFavor[group]; c.FavorScheduleID != 0 && !skip {
			events = append(events, script.Relationship{Name: b.short})
			relationships++
		}
		prevGroup = group
	}
	if relationships != 1 {
		return nil, fmt.Errorf("%s: %w (got %d, last group %d)", b.name, ErrRelationshipCount, relationships, prevGroup)
	}
	return events, nil
}

// Page renders every conversation of one student as a wiki page.
func Page(characterName string, rows []domain.MessengerRow) (string, error) {
	blank := 0
	for _, r := range rows {
		if r.MessageEN == "" && r.MessageType != typeImage {
			blank++
		}
	}
	if blank > maxBlank {
		return "", fmt.Errorf("%s: %w (%d blank)", characterName, ErrUntranslated, blank)
	}

	b := NewBuilder(characterName)
	parts := []string{seo(characterName)}
	for i, conv := range Conversations(rows) {
		events, err := b.Conversation(conv)
		if err != nil {
			return "", fmt.Errorf("conversation %d: %w", i+1, err)
		}
		parts = append(parts, fmt.Sprintf(`<span id="momotalk-%d"></span>`, i+1)+"\n"+export.Template("MomoTalk", events))
	}
	parts = append(parts, "[[Category:MomoTalk]]")
	return strings.Join(parts, "\n\n"), nil
}

func seo(name string) string {
	return strings.Join([]string{
		"{{#seo:",
		"    |title=" + name + " MomoTalks",
		"    |title_mode=append",
		"    |keywords=" + name + ",MomoTalk,chat,messenger,ingame,dialogue,Blue Archive,モモトーク",
		"    |description=All MomoTalk chats with " + name,
		"    |image = " + name + ".png",
		"    |image_alt = " + name + " MomoTalks",
		"}}",
	}, "\n")
}

func baseName(p string) string {
	if i := strings.LastIndexAny(p, `/\`); i >= 0 {
		return p[i+1:]
	}
	return p
}
