/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tables

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Table file names inside the data directory.
const (
	CharacterFile    = "ScenarioCharacterNameExcelTable.json"
	BackgroundFile   = "ScenarioBGNameExcelTable.json"
	BGMFile          = "BGMExcelTable.json"
	LocalizeFile     = "LocalizeScenarioExcelTable.json"
	ScenarioModeFile = "ScenarioModeExcelTable.json"
	SpritesFile      = "sprites.json"

	scriptPattern    = "ScenarioScript*ExcelTable*.json"
	messengerPattern = "AcademyMessanger*ExcelTable.json"
)

// SchemaError reports a data table that does not match its embedded schema.
type SchemaError struct {
	File     string
	Problems []string
}

func (e *SchemaError) Error() string {
	const maxShown = 3
	shown := e.Problems
	more := ""
	if len(shown) > maxShown {
		more = fmt.Sprintf(" (and %d more)", len(shown)-maxShown)
		shown = shown[:maxShown]
	}
	return fmt.Sprintf("table %s does not match schema: %s%s", filepath.Base(e.File), strings.Join(shown, "; "), more)
}

// Validate checks raw table bytes against the named embedded schema
// (e.g. "character" for schemas/character.schema.json).
func Validate(schema string, data []byte) error {
	sb, err := schemaFS.ReadFile("schemas/" + schema + ".schema.json")
	if err != nil {
		return fmt.Errorf("load schema %s: %w", schema, err)
	}
	res, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(sb), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("validate against %s: %w", schema, err)
	}
	if res.Valid() {
		return nil
	}
	se := &SchemaError{File: schema}
	for _, e := range res.Errors() {
		se.Problems = append(se.Problems, e.String())
	}
	return se
}

// readDataList reads a {"DataList": [...]} table file.
func readDataList[T any](path, schema string, validate bool) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	if validate {
		if err := Validate(schema, data); err != nil {
			var se *SchemaError
			if errors.As(err, &se) {
				se.File = path
			}
			return nil, err
		}
	}
	var doc struct {
		DataList []T `json:"DataList"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return doc.DataList, nil
}

// readDataLists concatenates every table matching pattern, in file name order.
// A pattern with no matches yields an empty slice.
func readDataLists[T any](dir, pattern, schema string, validate bool) ([]T, error) {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(files)
	var out []T
	for _, f := range files {
		rows, err := readDataList[T](f, schema, validate)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

// readSpriteFiles reads the list of sprite file names published on the wiki.
// The file is optional; without it no expression substitution happens.
func readSpriteFiles(path string, validate bool) ([]string, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sprites: %w", err)
	}
	if validate {
		if err := Validate("sprites", data); err != nil {
			return nil, err
		}
	}
	var files []string
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("decode sprites: %w", err)
	}
	return files, nil
}
