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

import (
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/implicon/amplicon"
)

// Row is one line of the output table.
type Row struct {
	// ID is the run-wide read number. The read name itself is not reported.
	ID     int64
	Sample string
	Allele string
	Gene   string
	// States has one entry per position of Gene, in panel order.
	States []State
}

// NewRow renders g as a Row with ID 0. Calls at positions outside the gene's
// columns are ignored. An unknown call symbol at a column yields an error of
// kind errors.Integrity.
func NewRow(g *ReadGroup, panel *amplicon.Panel, labels Labels) (*Row, error) {
	positions := panel.Positions[g.Gene]
	row := &Row{
		Sample: labels.Sample,
		Allele: labels.Allele,
		Gene:   g.Gene,
		States: make([]State, len(positions)),
	}
	for i, pos := range positions {
		sym, ok := g.Calls[pos]
		if !ok {
			row.States[i] = NotCovered
			continue
		}
		s, err := ParseState(sym)
		if err != nil {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("%s: read %s at %s:%d", g.Path, g.ID, g.Gene, pos), err)
		}
		row.States[i] = s
	}
	return row, nil
}

// RowWriter writes Rows as a tab-separated table.
type RowWriter struct {
	w      *tsv.Writer
	allele bool
}

// NewRowWriter creates a RowWriter. If allele is set, rows carry an allele
// column after the sample.
func NewRowWriter(w io.Writer, allele bool) *RowWriter {
	return &RowWriter{w: tsv.NewWriter(w), allele: allele}
}

// WriteHeader writes the header line
//
//   readID  sample  [allele]  implicon  1  2  ...  maxCols
//
// Rows of genes with fewer positions than maxCols are shorter than the header.
func (w *RowWriter) WriteHeader(maxCols int) error {
	w.w.WriteString("readID")
	w.w.WriteString("sample")
	if w.allele {
		w.w.WriteString("allele")
	}
	w.w.WriteString("implicon")
	for i := 1; i <= maxCols; i++ {
		w.w.WriteString(strconv.Itoa(i))
	}
	return w.w.EndLine()
}

// Write writes one row.
func (w *RowWriter) Write(r *Row) error {
	w.w.WriteInt64(r.ID)
	w.w.WriteString(r.Sample)
	if w.allele {
		w.w.WriteString(r.Allele)
	}
	w.w.WriteString(r.Gene)
	for _, s := range r.States {
		w.w.WriteString(s.String())
	}
	return w.w.EndLine()
}

// Flush flushes buffered rows.
func (w *RowWriter) Flush() error {
	return w.w.Flush()
}
