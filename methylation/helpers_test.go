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
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/implicon/amplicon"
	"github.com/grailbio/implicon/encoding/bismark"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

const testAnnotation = `name	chrom	pos	strand	gene
cg1	chr7	100	+	Peg3
cg2	chr7	120	+	Peg3
cg3	chr7	140	-	Peg3
cg4	chr11	500	+	H19
cg5	chr11	520	+	H19
`

func testPanel(t *testing.T) *amplicon.Panel {
	p, err := amplicon.Read(strings.NewReader(testAnnotation), "panel.tsv", amplicon.Opts{})
	require.NoError(t, err)
	return p
}

// sliceSource is a CallSource over parsed lines "id state chrom pos".
type sliceSource struct {
	calls []bismark.Call
	err   error
	i     int
}

func newSliceSource(t *testing.T, lines ...string) *sliceSource {
	s := bismark.NewScanner(strings.NewReader(strings.Join(lines, "\n")), "mem")
	src := &sliceSource{}
	var c bismark.Call
	for s.Scan(&c) {
		src.calls = append(src.calls, bismark.Call{
			ReadID: append([]byte(nil), c.ReadID...),
			State:  append([]byte(nil), c.State...),
			Chrom:  append([]byte(nil), c.Chrom...),
			Pos:    c.Pos,
		})
	}
	require.NoError(t, s.Err())
	return src
}

func (s *sliceSource) Scan(c *bismark.Call) bool {
	if s.i >= len(s.calls) {
		return false
	}
	*c = s.calls[s.i]
	s.i++
	return true
}

func (s *sliceSource) Err() error {
	if s.i >= len(s.calls) {
		return s.err
	}
	return nil
}

// writeCallFile writes a gzip-compressed call file with a Bismark header.
func writeCallFile(t *testing.T, dir, name string, lines ...string) string {
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	w := bismark.NewWriter(gz, "v0.22.3")
	for _, line := range lines {
		c := parseLine(t, line)
		require.NoError(t, w.Write(&c))
	}
	require.NoError(t, w.Flush())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
	return path
}

func parseLine(t *testing.T, line string) bismark.Call {
	src := newSliceSource(t, line)
	require.Equal(t, 1, len(src.calls), line)
	return src.calls[0]
}
