/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	PagesDirName   = "pages"
	BackupsDirName = "backups"
	ExportsDirName = "exports"

	pageExt = ".wiki"
)

var standardSubDirs = []string{
	PagesDirName,
	BackupsDirName,
	ExportsDirName,
}

// Workspace is the output directory rendered pages are written to.
// Root contains pages/, backups/, exports/ and the index directory.
type Workspace struct {
	Root string
	// KeepRevisions bounds the revision history stored per page. Zero keeps
	// everything.
	KeepRevisions int
}

// InitWorkspace creates root (if needed) with its standard subfolders.
func InitWorkspace(root string) (*Workspace, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("workspace root is required")
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return &Workspace{Root: root, KeepRevisions: 10}, nil
}

// PageFileName maps a wiki page title to its file name under pages/.
func PageFileName(title string) string {
	return url.PathEscape(title) + pageExt
}

// PageTitle is the inverse of PageFileName.
func PageTitle(fileName string) (string, error) {
	if !strings.HasSuffix(fileName, pageExt) {
		return "", fmt.Errorf("%s: not a page file", fileName)
	}
	return url.PathUnescape(strings.TrimSuffix(fileName, pageExt))
}

// PagePath returns the path of the page file for title.
func (w *Workspace) PagePath(title string) string {
	return filepath.Join(w.Root, PagesDirName, PageFileName(title))
}

// ReadPage returns the stored text of a page. When the page file cannot be
// read, the latest backup is used instead.
func (w *Workspace) ReadPage(title string) (string, error) {
	b, err := os.ReadFile(w.PagePath(title))
	if err == nil {
		return string(b), nil
	}
	text, berr := w.latestBackup(title)
	if berr != nil {
		return "", fmt.Errorf("read page: %w; backup attempt: %v", err, berr)
	}
	return text, nil
}

// writePage replaces the page file with text. The previous file, if any, is
// copied to a timestamped backup first.
func (w *Workspace) writePage(title, text string) error {
	path := w.PagePath(title)
	bdir := filepath.Join(w.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current page: %w", cerr)
		}
	}

	return replaceFile(path, []byte(text))
}

// currentPage reads the page file as it is on disk, without the backup
// fallback of ReadPage.
func (w *Workspace) currentPage(title string) (string, bool, error) {
	b, err := os.ReadFile(w.PagePath(title))
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(b), true, nil
}

// restorePage puts back the page file seen by currentPage.
func (w *Workspace) restorePage(title, text string, existed bool) error {
	path := w.PagePath(title)
	if !existed {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return replaceFile(path, []byte(text))
}

// replaceFile writes data to a temp file next to path and renames it over
// path.
func replaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure pages dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp page: %w", werr)
	}
	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace page: %w", rerr)
	}
	return nil
}

// PageTitles lists the titles of every page file in the workspace, sorted.
func (w *Workspace) PageTitles() ([]string, error) {
	ents, err := os.ReadDir(filepath.Join(w.Root, PagesDirName))
	if err != nil {
		return nil, fmt.Errorf("read pages dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		title, err := PageTitle(e.Name())
		if err != nil {
			continue
		}
		out = append(out, title)
	}
	sort.Strings(out)
	return out, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

func (w *Workspace) latestBackup(title string) (string, error) {
	bdir := filepath.Join(w.Root, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return "", fmt.Errorf("read backups dir: %w", err)
	}
	prefix := PageFileName(title) + "."
	var candidates []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			candidates = append(candidates, filepath.Join(bdir, name))
		}
	}
	if len(candidates) == 0 {
		return "", errors.New("no backups found")
	}
	sort.Strings(candidates) // timestamp in name yields lexicographic order
	b, err := os.ReadFile(candidates[len(candidates)-1])
	if err != nil {
		return "", fmt.Errorf("read latest backup: %w", err)
	}
	return string(b), nil
}
