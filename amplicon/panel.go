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

// Package amplicon loads the CpG site annotation of a targeted amplicon
// panel.
//
// The annotation is a tab-separated table with one header line followed by
// rows of the form
//
//   name  chromosome  position  (unused)  gene
//
// Each row names one CpG site covered by an amplicon ("implicon"). Load turns
// the table into a Panel, which answers two questions: which gene does a
// (chromosome, position) pair belong to, and in what order are a gene's sites
// laid out in the output.
package amplicon

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/tsv"
)

// SiteTable maps chromosome -> position -> gene.
type SiteTable map[string]map[int]string

// Lookup returns the gene covering the given site.
func (t SiteTable) Lookup(chrom string, pos int) (string, bool) {
	sites, ok := t[chrom]
	if !ok {
		return "", false
	}
	gene, ok := sites[pos]
	return gene, ok
}

// GenePositions maps a gene to its site positions, in annotation order.
// Duplicate rows in the annotation produce duplicate positions.
type GenePositions map[string][]int

// Panel is the loaded annotation. It is immutable once returned by Load or
// Read and is safe for concurrent use.
type Panel struct {
	Sites     SiteTable
	Positions GenePositions
	// Genes lists gene names in the order they first appear.
	Genes []string
	// NumSites is the number of annotation rows read.
	NumSites int
}

// MaxPositions returns the number of positions of the widest gene.
func (p *Panel) MaxPositions() int {
	n := 0
	for _, pos := range p.Positions {
		if len(pos) > n {
			n = len(pos)
		}
	}
	return n
}

// Opts controls annotation loading.
type Opts struct {
	// StrictSites causes a site listed under two different genes to be
	// reported as an error. By default the later row wins.
	StrictSites bool
}

// annotationRow is one data line of the annotation table.
type annotationRow struct {
	Name   string
	Chrom  string
	Pos    string
	Unused string
	Gene   string
}

// Load reads the annotation table at path. Compressed tables are decoded
// based on the file extension.
func Load(ctx context.Context, path string, opts Opts) (p *Panel, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var inr io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(inr, in.Name()); u != nil {
		inr = u
	}
	return Read(inr, path, opts)
}

// Read parses an annotation table from r. Name is used in error messages,
// which name the physical line at fault. Blank lines are errors.
//
// Fields go through CSV unquoting, so a field written as "GeneA" is read as
// GeneA. A quoted field may not span lines.
func Read(r io.Reader, name string, opts Opts) (*Panel, error) {
	br := bufio.NewReaderSize(r, 64<<10)
	// The first line is a header, whatever it contains.
	if _, err := br.ReadString('\n'); err != nil {
		if err == io.EOF {
			return newPanel(), nil
		}
		return nil, err
	}
	lines := &lineCounter{r: br}
	scanner := tsv.NewReader(lines)
	scanner.FieldsPerRecord = 5
	scanner.LazyQuotes = true

	p := newPanel()
	var row annotationRow
	last := 1 // physical line of the last record; the header is line 1
	for {
		err := scanner.Read(&row)
		if err == io.EOF {
			if n := lines.lines() + 1; n > last {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("%s:%d: empty line", name, last+1))
			}
			break
		}
		// csv counts lines from the first line after the header.
		var nLine int
		if err == nil {
			nLine, _ = scanner.FieldPos(0)
		} else if perr, ok := err.(*csv.ParseError); ok {
			// perr counts lines the same way; keep only the cause.
			nLine, err = perr.StartLine, perr.Err
		} else {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s:%d", name, last+1), err)
		}
		nLine++
		if nLine > last+1 {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s:%d: empty line", name, last+1))
		}
		if err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s:%d: expected 5 tab-separated fields", name, nLine), err)
		}
		for _, field := range []string{row.Name, row.Chrom, row.Pos, row.Unused, row.Gene} {
			if strings.IndexByte(field, '\n') >= 0 {
				return nil, errors.E(errors.Invalid, fmt.Sprintf("%s:%d: quoted field spans lines", name, nLine))
			}
		}
		last = nLine
		pos, err := strconv.Atoi(row.Pos)
		if err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s:%d: position %q is not an integer", name, nLine, row.Pos))
		}
		if err := p.add(row.Chrom, pos, row.Gene, opts); err != nil {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("%s:%d: %v", name, nLine, err))
		}
	}
	log.Printf("%s: stored %d CpG positions for %d implicons", name, p.NumSites, len(p.Genes))
	for _, gene := range p.Genes {
		log.Debug.Printf("%s\t%d", gene, len(p.Positions[gene]))
	}
	return p, nil
}

// lineCounter counts the lines that pass through it. csv skips blank lines
// silently; comparing its line numbers with this count exposes them.
type lineCounter struct {
	r        io.Reader
	newlines int
	partial  bool // the last line read has no terminating newline yet
}

func (c *lineCounter) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.newlines += bytes.Count(p[:n], []byte{'\n'})
		c.partial = p[n-1] != '\n'
	}
	return n, err
}

// lines returns the number of lines read so far.
func (c *lineCounter) lines() int {
	if c.partial {
		return c.newlines + 1
	}
	return c.newlines
}

func newPanel() *Panel {
	return &Panel{Sites: SiteTable{}, Positions: GenePositions{}}
}

func (p *Panel) add(chrom string, pos int, gene string, opts Opts) error {
	sites, ok := p.Sites[chrom]
	if !ok {
		sites = map[int]string{}
		p.Sites[chrom] = sites
	}
	if old, ok := sites[pos]; ok && old != gene {
		if opts.StrictSites {
			return fmt.Errorf("site %s:%d listed under both %s and %s", chrom, pos, old, gene)
		}
		log.Error.Printf("site %s:%d moved from %s to %s", chrom, pos, old, gene)
		p.drop(old, pos)
	}
	sites[pos] = gene
	if _, ok := p.Positions[gene]; !ok {
		p.Genes = append(p.Genes, gene)
	}
	p.Positions[gene] = append(p.Positions[gene], pos)
	p.NumSites++
	return nil
}

// drop removes pos from gene's columns so that every listed position still
// maps back to its gene. A gene left without positions is forgotten.
func (p *Panel) drop(gene string, pos int) {
	old := p.Positions[gene]
	kept := old[:0]
	for _, q := range old {
		if q != pos {
			kept = append(kept, q)
		}
	}
	p.NumSites -= len(old) - len(kept)
	if len(kept) > 0 {
		p.Positions[gene] = kept
		return
	}
	delete(p.Positions, gene)
	for i, g := range p.Genes {
		if g == gene {
			p.Genes = append(p.Genes[:i], p.Genes[i+1:]...)
			break
		}
	}
}
