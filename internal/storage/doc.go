/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements the workspace rendered pages are written to.
// Page files under pages/ are replaced transactionally with a timestamped
// backup of the previous version. The SQLite index at
// <root>/.storywiki/index.sqlite holds full-text search over pages, the
// characters and music each page lists, page revisions and the per-run
// failure ledger. Pages and their lists can be rebuilt from the page files.
package storage
