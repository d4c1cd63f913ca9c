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
	"regexp"
	"sort"

	"storywiki/internal/domain"
)

var reSpriteFile = regexp.MustCompile(`^(.*)[ _](\d\d)\.png$`)

// BuildSpriteIndex groups sprite file names such as "Aru 05.png" into a map
// from sprite name to its sorted, de-duplicated expression numbers. Names
// that do not look like sprite files are ignored.
func BuildSpriteIndex(files []string) map[string][]string {
	seen := map[string]map[string]struct{}{}
	for _, f := range files {
		m := reSpriteFile.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		if seen[m[1]] == nil {
			seen[m[1]] = map[string]struct{}{}
		}
		seen[m[1]][m[2]] = struct{}{}
	}
	out := make(map[string][]string, len(seen))
	for name, nums := range seen {
		list := make([]string, 0, len(nums))
		for n := range nums {
			list = append(list, n)
		}
		sort.Strings(list)
		out[name] = list
	}
	return out
}

// Expressions returns the available expression numbers of a sprite in
// ascending order. The error wraps domain.ErrNotFound for unknown sprites.
func (t *Tables) Expressions(sprite string) ([]string, error) {
	idx, err := t.sprites.get(func() (map[string][]string, error) {
		files, err := t.src.sprites()
		if err != nil {
			return nil, err
		}
		return BuildSpriteIndex(files), nil
	})
	if err != nil {
		return nil, fmt.Errorf("sprite index: %w", err)
	}
	list, ok := idx[sprite]
	if !ok {
		return nil, fmt.Errorf("sprite %q: %w", sprite, domain.ErrNotFound)
	}
	return list, nil
}
