// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

//go:build !cgo

package methylation

// Without cgo, the pure Go modernc.org/sqlite driver is used. It is slower
// than the cgo driver.

import (
	"strings"

	_ "modernc.org/sqlite"
)

const whichSQLiteDriver = "sqlite"

// sqliteDSN turns a path into a URI filename, which modernc.org/sqlite
// requires to begin with "file:".
func sqliteDSN(path string) string {
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path
}
