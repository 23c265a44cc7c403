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

package methylation

// ReadGroup holds the panel calls of one read. It is built by an Aggregator
// and is read-only once returned by Aggregator.Group.
type ReadGroup struct {
	// ID is the read name with '/' replaced by '_'.
	ID string
	// Path is the call file the read came from.
	Path string
	// Gene is the panel gene of the read's first kept call.
	Gene string
	// Seq is the 1-based position of the group among the groups emitted from
	// Path.
	Seq int
	// Calls maps a covered position to its raw call symbol. A position called
	// twice keeps the later symbol.
	Calls map[int]string
}

func newReadGroup(id []byte, path, gene string) *ReadGroup {
	return &ReadGroup{
		ID:    sanitizeID(id),
		Path:  path,
		Gene:  gene,
		Calls: make(map[int]string, 8),
	}
}

// sanitizeID replaces path separators in a read name so that it can be used
// as a join key downstream.
func sanitizeID(id []byte) string {
	b := make([]byte, len(id))
	for i, c := range id {
		if c == '/' {
			c = '_'
		}
		b[i] = c
	}
	return string(b)
}

// sameID reports whether sanitizeID(raw) == id without allocating.
func sameID(id string, raw []byte) bool {
	if len(id) != len(raw) {
		return false
	}
	for i, c := range raw {
		if c == '/' {
			c = '_'
		}
		if id[i] != c {
			return false
		}
	}
	return true
}
