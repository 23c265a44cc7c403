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
	"encoding/binary"
	"io/ioutil"
	"os"
	"strconv"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/implicon/amplicon"
	"github.com/grailbio/implicon/encoding/bismark"
	pkgerrors "github.com/pkg/errors"
)

func init() {
	recordiozstd.Init()
}

// marshalRow encodes a *Row as
//
//   id (8 bytes LE) | uvarint-prefixed sample, allele, gene | uvarint n | n states
func marshalRow(scratch []byte, v interface{}) ([]byte, error) {
	r := v.(*Row)
	n := 8 + 4*binary.MaxVarintLen64 + len(r.Sample) + len(r.Allele) + len(r.Gene) + len(r.States)
	buf := scratch
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	binary.LittleEndian.PutUint64(buf, uint64(r.ID))
	off := 8
	for _, s := range [...]string{r.Sample, r.Allele, r.Gene} {
		off += binary.PutUvarint(buf[off:], uint64(len(s)))
		off += copy(buf[off:], s)
	}
	off += binary.PutUvarint(buf[off:], uint64(len(r.States)))
	for _, s := range r.States {
		buf[off] = byte(s)
		off++
	}
	return buf[:off], nil
}

var errCorruptRow = errors.E("corrupt staged row")

func unmarshalRow(in []byte) (interface{}, error) {
	if len(in) < 8 {
		return nil, errCorruptRow
	}
	r := &Row{ID: int64(binary.LittleEndian.Uint64(in))}
	in = in[8:]
	var fields [3]string
	for i := range fields {
		n, k := binary.Uvarint(in)
		if k <= 0 || uint64(len(in)-k) < n {
			return nil, errCorruptRow
		}
		fields[i] = string(in[k : k+int(n)])
		in = in[k+int(n):]
	}
	r.Sample, r.Allele, r.Gene = fields[0], fields[1], fields[2]
	n, k := binary.Uvarint(in)
	if k <= 0 || uint64(len(in)-k) != n {
		return nil, errCorruptRow
	}
	r.States = make([]State, n)
	for i, b := range in[k:] {
		r.States[i] = State(b)
	}
	return r, nil
}

// shard holds the staged rows of one call file. The rows live in a
// temporary file that is open only while stage writes it or scan reads it.
type shard struct {
	index   int
	path    string
	labels  Labels
	tempDir string
	tmpPath string // set by stage
	stats   AggregateStats
}

// stage aggregates the call file sh.path into a new temporary file. Row IDs
// in the shard are the file-local group numbers.
func (sh *shard) stage(ctx context.Context, panel *amplicon.Panel) (err error) {
	in, err := bismark.Open(ctx, sh.path)
	if err != nil {
		return err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	tmp, err := ioutil.TempFile(sh.tempDir, "implicon_tmp"+strconv.Itoa(sh.index)+"_*.rio")
	if err != nil {
		return err
	}
	sh.tmpPath = tmp.Name()
	defer func() {
		if e := tmp.Close(); e != nil && err == nil {
			err = pkgerrors.Wrapf(e, "stage %s", sh.path)
		}
	}()
	w := recordio.NewWriter(tmp, recordio.WriterOpts{
		Marshal:      marshalRow,
		Transformers: []string{recordiozstd.Name},
	})
	agg := NewAggregator(in, panel, sh.path)
	for agg.Scan() {
		g := agg.Group()
		row, err := NewRow(g, panel, sh.labels)
		if err != nil {
			_ = w.Finish()
			return err
		}
		row.ID = int64(g.Seq)
		w.Append(row)
	}
	sh.stats = agg.Stats()
	if err := agg.Err(); err != nil {
		_ = w.Finish()
		return err
	}
	if err := w.Finish(); err != nil {
		return pkgerrors.Wrapf(err, "stage %s", sh.path)
	}
	log.Printf("%s: %d reads from %d calls (%d on panel sites)", sh.path, sh.stats.Groups, sh.stats.Calls, sh.stats.Kept)
	return nil
}

// scan replays the staged rows of the shard in order.
func (sh *shard) scan(fn func(*Row) error) (err error) {
	in, err := os.Open(sh.tmpPath)
	if err != nil {
		return pkgerrors.Wrapf(err, "read staged rows of %s", sh.path)
	}
	defer func() {
		if e := in.Close(); e != nil && err == nil {
			err = e
		}
	}()
	scanner := recordio.NewScanner(in, recordio.ScannerOpts{
		Unmarshal: unmarshalRow,
	})
	for scanner.Scan() {
		if err := fn(scanner.Get().(*Row)); err != nil {
			_ = scanner.Finish()
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return pkgerrors.Wrapf(err, "read staged rows of %s", sh.path)
	}
	return scanner.Finish()
}

// newShards returns one shard per call file, staged into tempDir.
func newShards(tempDir string, paths []string, labels []Labels) []*shard {
	shards := make([]*shard, len(paths))
	for i, path := range paths {
		shards[i] = &shard{index: i, path: path, labels: labels[i], tempDir: tempDir}
	}
	return shards
}

// removeShards removes the shards' temporary files.
func removeShards(shards []*shard) {
	for _, sh := range shards {
		if sh.tmpPath == "" {
			continue
		}
		if err := os.Remove(sh.tmpPath); err != nil {
			log.Error.Printf("remove %s: %v", sh.tmpPath, err)
		}
	}
}
