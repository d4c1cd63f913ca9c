/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

type row struct{ group, next int64 }

func (r row) Group() int64     { return r.group }
func (r row) NextGroup() int64 { return r.next }

func TestFindConvergence(t *testing.T) {
	rows := []row{
		{1, 0}, {1, 0}, // the reply itself
		{10, 0}, {10, 11},
		{11, 99},
		{20, 99},
		{99, 0},
	}
	index := IndexGroups(rows)
	options := []row{{1, 10}, {1, 20}}

	got := FindConvergence(index, options)
	want := Convergence{Point: 99, Found: true, Paths: [][]int64{{10, 11}, {20}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("convergence mismatch (-want +got):\n%s", diff)
	}
}

func TestFindConvergenceNoPoint(t *testing.T) {
	index := IndexGroups([]row{{10, 11}, {11, 0}, {20, 0}})
	got := FindConvergence(index, []row{{1, 10}, {1, 20}})
	if got.Found {
		t.Fatalf("expected no convergence, got %+v", got)
	}
	if diff := cmp.Diff([][]int64{{10, 11}, {20}}, got.Paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestFindConvergenceStopsOnCycle(t *testing.T) {
	index := IndexGroups([]row{{10, 11}, {11, 10}, {20, 0}})
	got := FindConvergence(index, []row{{1, 10}, {1, 20}})
	if got.Found {
		t.Fatalf("expected no convergence, got %+v", got)
	}
	if diff := cmp.Diff([][]int64{{10, 11}, {20}}, got.Paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}

func TestFindConvergenceOptionOutsideIndex(t *testing.T) {
	index := IndexGroups([]row{{10, 0}})
	got := FindConvergence(index, []row{{1, 10}, {1, 30}})
	if got.Found {
		t.Fatalf("expected no convergence, got %+v", got)
	}
	if diff := cmp.Diff([][]int64{{10}, {30}}, got.Paths); diff != "" {
		t.Fatalf("paths mismatch (-want +got):\n%s", diff)
	}
}
