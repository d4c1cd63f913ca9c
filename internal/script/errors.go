/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"errors"
	"fmt"
)

// ErrNoSpeaker is returned when a line shows characters and carries text but
// none of the characters is marked as speaking.
var ErrNoSpeaker = errors.New("line has characters but no speaker")

// UnitError reports the row that made a story unit unparseable. No events
// are returned alongside it.
type UnitError struct {
	Row    int // 0-based index into the parsed rows
	Group  int64
	Script string
	Err    error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("row %d (group %d, script %q): %v", e.Row, e.Group, e.Script, e.Err)
}

func (e *UnitError) Unwrap() error { return e.Err }
