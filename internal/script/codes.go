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

// Stripped is a script line with its director codes removed.
type Stripped struct {
	Line    string
	Effects []Event
	// Staged is set for staged text (#st) lines; their speaker comes from a
	// [log=NAME] tag in the display text.
	Staged bool
}

// codeRule removes one family of director codes. Rules run in table order and
// each one repeats until its pattern no longer matches, since some codes are
// nested inside others.
type codeRule struct {
	name   string
	re     *regexp.Regexp
	staged bool
	effect func() Event
}

var codeRules = []codeRule{
	{name: "wait", re: regexp.MustCompile(`#wait;\d+`)},
	{name: "hide-all", re: regexp.MustCompile(`#all;hide`)},
	{name: "camera", re: regexp.MustCompile(`#zmc;(instant|move);-?\d+,-?\d+;\d+(;\d+)?`)},
	{name: "numbered", re: regexp.MustCompile(`#\d;(hide|closeup|stiff|shake|dr|jump|d|em)?`)},
	{name: "staged", re: regexp.MustCompile(`#st;\[-?\d+,-?\d+\];(serial|instant|smooth);\d+;|^#st;`), staged: true},
	{name: "font-size", re: regexp.MustCompile(`#fontsize;\d+`)},
	{name: "clear-staged", re: regexp.MustCompile(`#clearst`)},
	{name: "bg-shake", re: regexp.MustCompile(`#bgshake`), effect: func() Event { return Info{Text: "Screen shakes"} }},
}

// Strip removes the known director codes from a lowercased script line.
// Unknown codes stay in the returned line.
func Strip(lower string) Stripped {
	var out Stripped
	for _, r := range codeRules {
		matched := false
		for r.re.MatchString(lower) {
			matched = true
			lower = r.re.ReplaceAllString(lower, "")
		}
		if !matched {
			continue
		}
		if r.staged {
			out.Staged = true
		}
		if r.effect != nil {
			out.Effects = append(out.Effects, r.effect())
		}
	}
	out.Line = strings.TrimSpace(lower)
	return out
}
