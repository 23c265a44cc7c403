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
	"github.com/grailbio/base/log"
	"github.com/grailbio/implicon/amplicon"
	"github.com/grailbio/implicon/encoding/bismark"
)

// CallSource is a stream of methylation calls, such as a *bismark.Scanner.
type CallSource interface {
	Scan(c *bismark.Call) bool
	Err() error
}

// AggregateStats counts what an Aggregator has seen.
type AggregateStats struct {
	// Calls is the number of calls read.
	Calls int64
	// Kept is the number of calls that fell on a panel site.
	Kept int64
	// Groups is the number of read groups emitted.
	Groups int64
}

// Aggregator groups the calls of a stream into reads. Calls whose chromosome
// or position is not a panel site are dropped without comment. The remaining
// calls are grouped by contiguity: a group is closed as soon as a kept call
// with a different read name appears, or the stream ends. A read whose calls
// are not consecutive is therefore reported as several groups.
//
// Typical use:
//
//   agg := NewAggregator(scanner, panel, path)
//   for agg.Scan() {
//     g := agg.Group()
//     ...
//   }
//   if err := agg.Err(); err != nil { ... }
//
// An Aggregator makes a single pass over its source and is not threadsafe.
type Aggregator struct {
	src   CallSource
	sites amplicon.SiteTable
	path  string

	call  bismark.Call
	open  *ReadGroup // group being accumulated, nil when none
	group *ReadGroup // last emitted group
	seq   int
	done  bool
	err   error
	stats AggregateStats
}

// NewAggregator creates an Aggregator reading calls from src. Path is
// recorded in every emitted group.
func NewAggregator(src CallSource, panel *amplicon.Panel, path string) *Aggregator {
	return &Aggregator{src: src, sites: panel.Sites, path: path}
}

// Scan advances to the next completed read group, which is then available
// through Group. It returns false when the stream is exhausted or an error
// occurs; once it returns false it never returns true again.
func (a *Aggregator) Scan() bool {
	a.group = nil
	if a.done {
		return false
	}
	c := &a.call
	for a.src.Scan(c) {
		a.stats.Calls++
		// string(c.Chrom) in an index expression does not allocate.
		sites, ok := a.sites[string(c.Chrom)]
		if !ok {
			continue
		}
		gene, ok := sites[c.Pos]
		if !ok {
			continue
		}
		a.stats.Kept++
		if a.open != nil && sameID(a.open.ID, c.ReadID) {
			a.open.Calls[c.Pos] = symbol(c.State)
			continue
		}
		prev := a.open
		a.open = newReadGroup(c.ReadID, a.path, gene)
		a.open.Calls[c.Pos] = symbol(c.State)
		if prev != nil {
			a.emit(prev)
			return true
		}
	}
	a.done = true
	if a.err = a.src.Err(); a.err != nil {
		a.open = nil
		return false
	}
	if a.open != nil {
		a.emit(a.open)
		a.open = nil
		return true
	}
	return false
}

func (a *Aggregator) emit(g *ReadGroup) {
	a.seq++
	g.Seq = a.seq
	a.stats.Groups++
	a.group = g
	if log.At(log.Debug) {
		log.Debug.Printf("%s: read %d (%s) %s, %d sites", a.path, g.Seq, g.ID, g.Gene, len(g.Calls))
	}
}

// Group returns the group found by the last successful Scan.
func (a *Aggregator) Group() *ReadGroup { return a.group }

// Err returns the error that stopped the scan, if any.
func (a *Aggregator) Err() error { return a.err }

// Stats returns counts for the calls consumed so far.
func (a *Aggregator) Stats() AggregateStats { return a.stats }

// symbol returns the call symbol as a string, without allocating for the two
// symbols Bismark writes.
func symbol(b []byte) string {
	switch string(b) {
	case "+":
		return "+"
	case "-":
		return "-"
	}
	return string(b)
}
