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
	"context"
	"io"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/implicon/amplicon"
	"github.com/klauspost/compress/gzip"
)

const (
	// DefaultPattern matches Bismark CpG context files.
	DefaultPattern = "CpG_*.txt.gz"
	// DefaultOutput is the name of the output table.
	DefaultOutput = "methylation_state_consistency.txt"
	// SampleMaxColumns is the number of positional header columns of the
	// sample table.
	SampleMaxColumns = 33
	// AlleleMaxColumns is the number of positional header columns of the
	// allele table.
	AlleleMaxColumns = 31
)

// Opts configures Run.
type Opts struct {
	// AnnotationPath is the panel annotation table.
	AnnotationPath string
	// Panel controls annotation loading.
	Panel amplicon.Opts
	// InputDir is searched (non-recursively) for call files.
	InputDir string
	// Pattern selects call files by base name, as in filepath.Match.
	Pattern string
	// OutputPath is the output table. It is gzip-compressed if the name ends
	// in ".gz".
	OutputPath string
	// SQLitePath, if set, names an SQLite database that receives the rows
	// too.
	SQLitePath string
	// Labeler derives labels from call file names. Required.
	Labeler Labeler
	// MaxColumns is the number of positional header columns. If zero, the
	// number of positions of the widest gene is used.
	MaxColumns int
	// Parallelism is the maximum number of call files aggregated at once. If
	// zero, the number of CPUs is used.
	Parallelism int
	// TempDir holds staged rows. If empty, the system default is used.
	TempDir string
}

// DefaultOpts are the sample table settings, minus the annotation and
// labeler.
var DefaultOpts = Opts{
	InputDir:   ".",
	Pattern:    DefaultPattern,
	OutputPath: DefaultOutput,
	MaxColumns: SampleMaxColumns,
}

// Stats summarizes a run.
type Stats struct {
	Files int
	Calls int64
	Kept  int64
	Reads int64
}

// FindInputs returns the files directly inside dir whose base names match
// pattern, in lexical order.
func FindInputs(ctx context.Context, dir, pattern string) ([]string, error) {
	if _, err := filepath.Match(pattern, ""); err != nil {
		return nil, errors.E(errors.Invalid, "input pattern "+pattern, err)
	}
	var paths []string
	lister := file.List(ctx, dir, false)
	for lister.Scan() {
		if ok, _ := filepath.Match(pattern, filepath.Base(lister.Path())); ok {
			paths = append(paths, lister.Path())
		}
	}
	if err := lister.Err(); err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

// Run writes the methylation state table of all call files selected by opts.
//
// Labels of every file are checked before any file is read. Files are then
// aggregated concurrently, and their rows are written in file order with
// read numbers counting up from 1 across the whole run. An error in any call
// file aborts the run before the output is created.
func Run(ctx context.Context, opts Opts) (stats Stats, err error) {
	if opts.Labeler == nil {
		return stats, errors.E(errors.Invalid, "no labeler configured")
	}
	panel, err := amplicon.Load(ctx, opts.AnnotationPath, opts.Panel)
	if err != nil {
		return stats, err
	}
	if opts.MaxColumns <= 0 {
		opts.MaxColumns = panel.MaxPositions()
	} else if n := panel.MaxPositions(); n > opts.MaxColumns {
		log.Error.Printf("%s: widest implicon has %d positions, header has %d", opts.AnnotationPath, n, opts.MaxColumns)
	}
	paths, err := FindInputs(ctx, opts.InputDir, opts.Pattern)
	if err != nil {
		return stats, err
	}
	log.Printf("analysing %d Bismark CpG files in %s: %v", len(paths), opts.InputDir, paths)
	labels := make([]Labels, len(paths))
	for i, path := range paths {
		if labels[i], err = opts.Labeler.Labels(path); err != nil {
			return stats, err
		}
	}

	shards := newShards(opts.TempDir, paths, labels)
	defer removeShards(shards)
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if err = traverse.Limit(parallelism).Each(len(shards), func(i int) error {
		return shards[i].stage(ctx, panel)
	}); err != nil {
		return stats, err
	}
	for _, sh := range shards {
		stats.Files++
		stats.Calls += sh.stats.Calls
		stats.Kept += sh.stats.Kept
	}
	stats.Reads, err = commit(ctx, opts, panel, shards)
	return stats, err
}

// commit writes the staged rows of shards, in order, to the outputs named by
// opts. It returns the number of rows written.
//
// The SQLite database is opened first, so that a database that cannot be
// written leaves a previous output table in place. Rows reach the database
// only when the table was written in full.
func commit(ctx context.Context, opts Opts, panel *amplicon.Panel, shards []*shard) (n int64, err error) {
	var sink *SQLiteSink
	if opts.SQLitePath != "" {
		if sink, err = OpenSQLiteSink(opts.SQLitePath, panel); err != nil {
			return 0, err
		}
		defer func() {
			if err != nil {
				sink.abort()
				return
			}
			err = sink.Close()
		}()
	}

	out, err := file.Create(ctx, opts.OutputPath)
	if err != nil {
		return 0, err
	}
	defer file.CloseAndReport(ctx, out, &err)
	var w io.Writer = out.Writer(ctx)
	if strings.HasSuffix(opts.OutputPath, ".gz") {
		gz := gzip.NewWriter(w)
		defer func() {
			if e := gz.Close(); e != nil && err == nil {
				err = e
			}
		}()
		w = gz
	}
	rw := NewRowWriter(w, opts.Labeler.HasAllele())
	if err = rw.WriteHeader(opts.MaxColumns); err != nil {
		return 0, err
	}

	var counter Counter
	for _, sh := range shards {
		err = sh.scan(func(r *Row) error {
			r.ID = counter.Next()
			if err := rw.Write(r); err != nil {
				return err
			}
			if sink != nil {
				return sink.Write(r)
			}
			return nil
		})
		if err != nil {
			return counter.Count(), err
		}
		log.Printf("finished %s: amplicon reads processed in total: %d", sh.path, counter.Count())
	}
	if err = rw.Flush(); err != nil {
		return counter.Count(), err
	}
	log.Printf("All done. Final number of reads processed: %d", counter.Count())
	return counter.Count(), nil
}
