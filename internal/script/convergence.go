/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

// Chained is a row that belongs to a group and points at the group that
// follows it.
type Chained interface {
	Group() int64
	NextGroup() int64
}

// Convergence is where the paths of a reply's options meet again.
type Convergence struct {
	Point int64
	Found bool
	// Paths holds, per option, the groups visited before Point. Without a
	// convergence point the full paths are kept.
	Paths [][]int64
}

// IndexGroups groups rows by group id, keeping row order.
func IndexGroups[T Chained](rows []T) map[int64][]T {
	out := map[int64][]T{}
	for _, r := range rows {
		out[r.Group()] = append(out[r.Group()], r)
	}
	return out
}

// FindConvergence follows each option's next-group chain through index and
// returns the first group of option 0's path that every other path reaches
// too. A path ends when the next group is not in index or was already
// visited.
func FindConvergence[T Chained](index map[int64][]T, options []T) Convergence {
	paths := make([][]int64, len(options))
	sets := make([]map[int64]struct{}, len(options))
	for i, opt := range options {
		id := opt.NextGroup()
		path := []int64{id}
		seen := map[int64]struct{}{id: {}}
		for {
			rows, ok := index[id]
			if !ok || len(rows) == 0 {
				break
			}
			next := rows[len(rows)-1].NextGroup()
			if _, ok := index[next]; !ok {
				break
			}
			if _, dup := seen[next]; dup {
				break
			}
			path = append(path, next)
			seen[next] = struct{}{}
			id = next
		}
		paths[i], sets[i] = path, seen
	}

	var c Convergence
	if len(paths) > 0 {
	search:
		for _, id := range paths[0] {
			for _, set := range sets {
				if _, ok := set[id]; !ok {
					continue search
				}
			}
			c.Point, c.Found = id, true
			break
		}
	}
	c.Paths = make([][]int64, len(paths))
	for i, path := range paths {
		cut := len(path)
		if c.Found {
			for j, id := range path {
				if id == c.Point {
					cut = j
					break
				}
			}
		}
		c.Paths[i] = path[:cut:cut]
	}
	return c
}
