/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic at the CLI boundary into a logged error and a
// crash report file.
package crash

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	applog "storywiki/internal/log"
	"storywiki/internal/storage"
	"storywiki/internal/version"
)

var (
	exitFn           = os.Exit
	stderr io.Writer = os.Stderr
)

// Report describes one crashed command.
type Report struct {
	Command   string
	Workspace string
	Panic     any
	Stack     []byte
	At        time.Time
}

// WriteTo renders the report as plain text.
func (r Report) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "storywiki crash report\n")
	fmt.Fprintf(&b, "time:      %s\n", r.At.Format(time.RFC3339))
	fmt.Fprintf(&b, "version:   %s (%s/%s)\n", version.String(), runtime.GOOS, runtime.GOARCH)
	if r.Command != "" {
		fmt.Fprintf(&b, "command:   %s\n", r.Command)
	}
	if r.Workspace != "" {
		fmt.Fprintf(&b, "workspace: %s\n", r.Workspace)
	}
	fmt.Fprintf(&b, "\npanic: %v\n\n%s\n", r.Panic, r.Stack)
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}

// Recover must be deferred directly: defer crash.Recover(ws, cmd).
// On a panic it logs the stack, saves a report next to the page backups of
// ws (the temp dir when ws is nil) and exits with status 2.
func Recover(ws *storage.Workspace, cmd string) {
	v := recover()
	if v == nil {
		return
	}
	rep := Report{Command: cmd, Panic: v, Stack: debug.Stack(), At: time.Now()}
	if ws != nil {
		rep.Workspace = ws.Root
	}
	l := applog.WithComponent("crash")
	l.Error("command panicked", slog.String("cmd", cmd), slog.Any("panic", v), slog.String("stack", string(rep.Stack)))

	path, err := save(rep)
	if err != nil {
		l.Error("crash report not saved", slog.Any("err", err))
		fmt.Fprintf(stderr, "storywiki %s crashed: %v\n", cmd, v)
	} else {
		fmt.Fprintf(stderr, "storywiki %s crashed: %v\nreport: %s\n", cmd, v, path)
	}
	exitFn(2)
}

func save(rep Report) (string, error) {
	dir := os.TempDir()
	if rep.Workspace != "" {
		dir = filepath.Join(rep.Workspace, storage.BackupsDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	name := "crash-" + rep.At.Format("20060102-150405")
	if rep.Command != "" {
		name += "-" + rep.Command
	}
	path := filepath.Join(dir, name+".log")
	f, err := os.Create(path)
	if err != nil {
		return path, err
	}
	if _, err := rep.WriteTo(f); err != nil {
		_ = f.Close()
		return path, err
	}
	_ = f.Sync()
	return path, f.Close()
}
