/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"
)

var (
	reWait       = regexp.MustCompile(`\[wa:\d+\]`)
	reSignature  = regexp.MustCompile(`~{3,5}`)
	reLogTag     = regexp.MustCompile(`\[log=([^\]]+)\]`)
	reLogAny     = regexp.MustCompile(`\[/?log=[^\]]+\]`)
	reChoice     = regexp.MustCompile(`\[n?s\d*\]`)
	reNoSelect   = regexp.MustCompile(`^\[ns\] *`)
	reBold       = regexp.MustCompile(`\[b\](.*)\[/b\]`)
	reColorSpan  = regexp.MustCompile(`\[([0-9a-zA-Z]{6})\]([^\[]*)\[-\]`)
	reColorOpen  = regexp.MustCompile(`\[([0-9a-zA-Z]{6})\]`)
	reSoundSE    = regexp.MustCompile(`(?i)^se`)
	reSoundPre   = regexp.MustCompile(`^ ?(SE|SFX)_`)
	reSoundTrail = regexp.MustCompile(`(?i)[_ ]\d{2}.?$`)
)

const zwsp = "&#8203;"

// displayText normalizes the translated text of a row: line breaks become
// <br/>, wait codes go away and wiki signatures are escaped.
func displayText(s string) string {
	s = strings.ReplaceAll(s, "#n", "<br/>")
	s = reWait.ReplaceAllString(s, "")
	s = reSignature.ReplaceAllString(s, "<nowiki>$0</nowiki>")
	return strings.TrimSpace(s)
}

// titleText extracts the title from a "#title;" row. The text usually reads
// "Episode 3;The Title".
func titleText(s string) string {
	if _, after, ok := strings.Cut(s, ";"); ok {
		after, _, _ = strings.Cut(after, ";")
		return strings.TrimSpace(after)
	}
	return strings.TrimSpace(s)
}

func stripStagedText(s string) string {
	s = reLogAny.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "[/log]", "")
	return reWait.ReplaceAllString(s, "")
}

// choiceOptions splits "[s1]A[s2]B" into its options. Text before the
// first marker is dropped.
func choiceOptions(s string) []string {
	parts := reChoice.Split(s, -1)
	if len(parts) < 2 {
		return nil
	}
	out := make([]string, 0, len(parts)-1)
	for _, p := range parts[1:] {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// infoText renders the inline markup of caption text as HTML spans.
func infoText(s string) string {
	s = reNoSelect.ReplaceAllString(s, "")
	s = reBold.ReplaceAllString(s, `<span style="font-weight: bolder">$1</span>`)
	s = reColorSpan.ReplaceAllString(s, `<span style="color:#$1">$2</span>`)
	s = openColorSpans(s)
	if strings.Contains(s, "></span>") {
		s = strings.ReplaceAll(s, `"></span>`, `">`+zwsp+`</span>`)
	}
	return s
}

// openColorSpans handles color tags without a closing [-]. The span ends at
// the end of the text, before a line break, or before the next tag of the
// same color.
func openColorSpans(s string) string {
	var b strings.Builder
	for {
		loc := reColorOpen.FindStringSubmatchIndex(s)
		if loc == nil {
			b.WriteString(s)
			return b.String()
		}
		color := s[loc[2]:loc[3]]
		rest := s[loc[1]:]
		n := -1
		next := strings.IndexByte(rest, '[')
		switch {
		case next < 0:
			n = len(rest)
		case strings.HasPrefix(rest[next:], "["+color+"]"):
			n = next
		default:
			n = strings.LastIndex(rest[:next], "<br")
		}
		if n < 0 {
			b.WriteString(s[:loc[1]])
			s = rest
			continue
		}
		b.WriteString(s[:loc[0]])
		b.WriteString(`<span style="color:#` + color + `">` + rest[:n] + `</span>`)
		s = rest[n:]
	}
}

// soundFile normalizes the case of the "SE" prefix of a sound file name.
func soundFile(s string) string {
	return reSoundSE.ReplaceAllString(s, "SE")
}

// SoundLabel turns a sound file name such as "SE_DoorOpen_01" into a
// readable label ("door open").
func SoundLabel(sound string) string {
	s := reSoundPre.ReplaceAllString(soundFile(sound), "")
	s = spaceCapitals(s)
	s = reSoundTrail.ReplaceAllString(s, "")
	return strings.ToLower(strings.TrimSpace(s))
}

// spaceCapitals puts a space before every capital letter not already
// preceded by one, absorbing a single underscore in front of it.
func spaceCapitals(s string) string {
	upper := func(c byte) bool { return c >= 'A' && c <= 'Z' }
	spaced := func(i int) bool { return i > 0 && s[i-1] == ' ' }
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' && i+1 < len(s) && upper(s[i+1]) && !spaced(i) {
			b.WriteByte(' ')
			b.WriteByte(s[i+1])
			i++
			continue
		}
		if upper(c) && !spaced(i) {
			b.WriteByte(' ')
		}
		b.WriteByte(c)
	}
	return b.String()
}
