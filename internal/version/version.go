/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package version exposes build version information for storywiki.
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is overridden at build time via -ldflags "-X storywiki/internal/version.Version=...".
var Version = "0.1.0-dev"

// Commit is the short VCS revision; filled from build info when not set by ldflags.
var Commit = ""

// String returns a human readable version string such as "0.1.0-dev (abc1234)".
func String() string {
	c := Commit
	if c == "" {
		c = vcsRevision()
	}
	if c == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, c)
}

func vcsRevision() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return s.Value[:7]
		}
	}
	return ""
}
