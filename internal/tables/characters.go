/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tables

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/OneOfOne/xxhash"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storywiki/internal/domain"
)

// Asset prefixes stripped from spine and portrait paths before the dev name
// is turned into a wiki name.
const (
	spinePrefix           = "CharacterSpine_"
	studentPortraitPrefix = "Student_Portrait_"
	npcPortraitPrefix     = "NPC_Portrait_"
)

// HashName is the xxh32 digest the character table is keyed by.
func HashName(name string) uint32 { return xxhash.ChecksumString32(name) }

// nameVariants lists the spellings tried when looking up a token. Script
// authors are inconsistent about the case of latin suffixes ("아루 a" vs "아루 A").
func nameVariants(token string) [][]byte {
	upper := cases.Upper(language.Und).String(token)
	lower := cases.Lower(language.Und).String(token)
	return [][]byte{[]byte(token), []byte(upper), []byte(lower)}
}

// Character resolves a raw in-script name token. The error wraps
// domain.ErrNotFound when no spelling of token is in the table.
func (t *Tables) Character(token string) (domain.Character, error) {
	m, err := t.characters.get(func() (map[uint32]domain.Character, error) {
		rows, err := t.src.characters()
		if err != nil {
			return nil, err
		}
		out := make(map[uint32]domain.Character, len(rows))
		for _, r := range rows {
			out[r.CharacterName] = characterFromRow(r)
		}
		return out, nil
	})
	if err != nil {
		return domain.Character{}, fmt.Errorf("character table: %w", err)
	}
	var last uint32
	for _, v := range nameVariants(token) {
		last = xxhash.Checksum32(v)
		if c, ok := m[last]; ok {
			return c, nil
		}
	}
	return domain.Character{}, fmt.Errorf("character %q (hash %d): %w", token, last, domain.ErrNotFound)
}

func characterFromRow(r domain.CharacterRow) domain.Character {
	spine := strings.TrimSpace(baseName(r.SpinePrefabName))
	if spine != "" {
		spine = CanonicalName(strings.TrimPrefix(spine, spinePrefix))
	}
	portrait := baseName(r.SmallPortrait)
	switch {
	case strings.Contains(portrait, studentPortraitPrefix):
		portrait = CanonicalName(strings.Replace(portrait, studentPortraitPrefix, "", 1))
	case strings.Contains(portrait, npcPortraitPrefix):
		portrait = CanonicalName(strings.Replace(portrait, npcPortraitPrefix, "", 1))
	}
	return domain.Character{
		Name:     r.NameEN,
		Nickname: r.NicknameEN,
		Spine:    spine,
		Portrait: portrait,
	}
}

// Dev names that differ from the romanization the wiki uses.
var firstNameFixes = map[string]string{
	"Zunko":  "Junko",
	"Hihumi": "Hifumi",
}

// Costume suffixes of dev names, keyed case-insensitively.
var variantNames = map[string]string{
	"default":      "",
	"original":     "",
	"swimsuit":     "Swimsuit",
	"ridingsuit":   "Riding",
	"casual":       "Casual",
	"newyear":      "New Year",
	"sportswear":   "Track",
	"cheerleader":  "Cheer Squad",
	"bunnygirl":    "Bunny",
	"christmas":    "Christmas",
	"hotspring":    "Hot Spring",
	"dress":        "Dress",
	"maid":         "Maid",
	"camp":         "Camp",
	"band":         "Band",
	"idol":         "Idol",
	"qipao":        "Qipao",
	"kid":          "Small",
	"small":        "Small",
	"battle":       "Battle",
	"armed":        "Armed",
	"guide":        "Guide",
	"part-timer":   "Part-Timer",
	"parttimer":    "Part-Timer",
	"terror":       "Terror",
	"uniform":      "Uniform",
	"pajama":       "Pajamas",
	"school":       "School",
	"gym":          "Gym",
	"cycling":      "Cycling",
	"hotspringsb":  "Hot Spring",
	"newyearsb":    "New Year",
	"swimsuitsb":   "Swimsuit",
	"cheerleadsb":  "Cheer Squad",
	"christmassb":  "Christmas",
	"sportswearsb": "Track",
}

// CanonicalName turns a dev name such as "Hoshino_Swimsuit" into the wiki
// name "Hoshino (Swimsuit)". Names without a costume suffix are returned
// with their first letter capitalized.
func CanonicalName(dev string) string {
	dev = strings.TrimSpace(dev)
	if dev == "" {
		return ""
	}
	first, suffix, _ := strings.Cut(dev, "_")
	first = capitalize(first)
	if fixed, ok := firstNameFixes[first]; ok {
		first = fixed
	}
	if suffix == "" {
		return first
	}
	variant, ok := variantNames[strings.ToLower(suffix)]
	if !ok {
		variant = capitalize(strings.ReplaceAll(suffix, "_", " "))
	}
	if variant == "" {
		return first
	}
	return first + " (" + variant + ")"
}

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}
