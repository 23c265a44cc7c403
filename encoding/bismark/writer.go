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

package bismark

import (
	"io"

	"github.com/grailbio/base/tsv"
)

// Writer writes calls in Bismark's CpG context format, in the layout Scanner
// reads. The aggregator never writes call files; Writer builds them for tests
// of this and other packages.
type Writer struct {
	w *tsv.Writer
}

// NewWriter constructs a Writer that writes calls to w. If version is
// nonempty, a header line "Bismark methylation extractor version <version>"
// is written first.
func NewWriter(w io.Writer, version string) *Writer {
	tw := tsv.NewWriter(w)
	if version != "" {
		tw.WriteString(HeaderPrefix + " methylation extractor version " + version)
		// The error, if any, is reported by the next Write or Flush.
		_ = tw.EndLine()
	}
	return &Writer{w: tw}
}

// Write writes one call. Bismark's fifth column is always "Z" (CpG context).
func (w *Writer) Write(c *Call) error {
	w.w.WriteString(string(c.ReadID))
	w.w.WriteString(string(c.State))
	w.w.WriteString(string(c.Chrom))
	w.w.WriteInt64(int64(c.Pos))
	w.w.WriteByte('Z')
	return w.w.EndLine()
}

// Flush flushes buffered calls to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}
