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

package amplicon

import (
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annotation = `name	chrom	pos	strand	gene
cg1	chr7	100	+	Peg3
cg2	chr7	120	+	Peg3
cg3	chr7	140	-	Peg3
cg4	chr11	500	+	H19
cg5	chr11	520	+	H19
`

func readString(t *testing.T, s string, opts Opts) (*Panel, error) {
	t.Helper()
	return Read(strings.NewReader(s), "test.tsv", opts)
}

func TestRead(t *testing.T) {
	p, err := readString(t, annotation, Opts{})
	require.NoError(t, err)
	expect.EQ(t, p.Genes, []string{"Peg3", "H19"})
	expect.EQ(t, p.Positions["Peg3"], []int{100, 120, 140})
	expect.EQ(t, p.Positions["H19"], []int{500, 520})
	expect.EQ(t, p.NumSites, 5)
	expect.EQ(t, p.MaxPositions(), 3)

	gene, ok := p.Sites.Lookup("chr11", 520)
	assert.True(t, ok)
	assert.Equal(t, "H19", gene)
	_, ok = p.Sites.Lookup("chr11", 521)
	assert.False(t, ok)
	_, ok = p.Sites.Lookup("chrX", 100)
	assert.False(t, ok)
}

// Every listed position must map back to its gene.
func checkConsistent(t *testing.T, p *Panel) {
	t.Helper()
	for gene, positions := range p.Positions {
		for _, pos := range positions {
			found := false
			for _, sites := range p.Sites {
				if g, ok := sites[pos]; ok && g == gene {
					found = true
				}
			}
			assert.True(t, found, "gene %s pos %d", gene, pos)
		}
	}
}

func TestReadHeaderOnly(t *testing.T) {
	p, err := readString(t, "anything at all\n", Opts{})
	require.NoError(t, err)
	assert.Equal(t, 0, len(p.Genes))
	p, err = readString(t, "", Opts{})
	require.NoError(t, err)
	assert.Equal(t, 0, p.MaxPositions())
}

func TestReadHeaderIgnored(t *testing.T) {
	// The header may have any shape; only data lines are checked.
	p, err := readString(t, "a\tb\n"+"cg1\tchr1\t10\t.\tG\n", Opts{})
	require.NoError(t, err)
	expect.EQ(t, p.Positions["G"], []int{10})
}

func TestReadLineEndings(t *testing.T) {
	p, err := readString(t, "h\r\ncg1\tchr1\t10\t.\tA\r\ncg2\tchr1\t20\t.\tA", Opts{})
	require.NoError(t, err)
	expect.EQ(t, p.Positions["A"], []int{10, 20})
}

func TestReadQuotedFields(t *testing.T) {
	// Fields are CSV-unquoted.
	p, err := readString(t, "h\ncg1\tchr1\t10\t.\t\"GeneA\"\ncg2\tchr1\t20\t.\tGene\"B\n", Opts{})
	require.NoError(t, err)
	expect.EQ(t, p.Genes, []string{"GeneA", "Gene\"B"})
}

func TestReadDuplicates(t *testing.T) {
	const dup = "header\n" +
		"cg1\tchr1\t10\t.\tA\n" +
		"cg2\tchr1\t20\t.\tA\n" +
		"cg2\tchr1\t20\t.\tA\n" +
		"cg3\tchr1\t30\t.\tB\n" +
		"cg4\tchr1\t30\t.\tC\n"
	p, err := readString(t, dup, Opts{})
	require.NoError(t, err)
	// Same-gene duplicates are kept as repeated columns.
	expect.EQ(t, p.Positions["A"], []int{10, 20, 20})
	// Last write wins for conflicting genes.
	gene, _ := p.Sites.Lookup("chr1", 30)
	assert.Equal(t, "C", gene)
	_, ok := p.Positions["B"]
	assert.False(t, ok)
	expect.EQ(t, p.Genes, []string{"A", "C"})
	checkConsistent(t, p)

	_, err = readString(t, dup, Opts{StrictSites: true})
	require.Error(t, err)
	assert.True(t, errors.Is(errors.Invalid, err))
	assert.Contains(t, err.Error(), "test.tsv:6")
}

func TestReadErrors(t *testing.T) {
	for _, test := range []struct {
		data, want string
	}{
		{"h\ncg1\tchr1\t10\t.\n", "test.tsv:2"},
		{"h\ncg1\tchr1\t10\t.\tA\tB\n", "test.tsv:2"},
		{"h\ncg1\tchr1\t10\t.\tA\ncg2\tchr1\tten\t.\tA\n", "test.tsv:3"},
		{"h\n" + strings.Repeat("cg1\tchr1\t10\t.\tA\n", 3) + "cg2\tchr1\tabc\t.\tA\n", "test.tsv:5: position"},
		// Blank lines are reported where they are, not skipped.
		{"h\n\ncg1\tchr1\t100\tX\tGeneA\n", "test.tsv:2: empty line"},
		{"h\ncg1\tchr1\t10\t.\tA\n\n\ncg2\tchr1\tabc\t.\tA\n", "test.tsv:3: empty line"},
		{"h\ncg1\tchr1\t10\t.\tA\n\ncg2\tchr1\t20\t.\n", "test.tsv:3: empty line"},
		{"h\ncg1\tchr1\t10\t.\tA\n\n", "test.tsv:3: empty line"},
		{"h\n\n", "test.tsv:2: empty line"},
		{"h\ncg1\tchr1\t10\t.\t\"A\nB\"\n", "test.tsv:2: quoted field spans lines"},
	} {
		_, err := readString(t, test.data, Opts{})
		if err == nil {
			t.Errorf("%q: expected an error", test.data)
			continue
		}
		assert.True(t, errors.Is(errors.Invalid, err), "%v", err)
		assert.Contains(t, err.Error(), test.want)
	}
}

func TestLoad(t *testing.T) {
	ctx := vcontext.Background()
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tempDir)

	path := filepath.Join(tempDir, "panel.tsv")
	require.NoError(t, ioutil.WriteFile(path, []byte(annotation), 0644))
	p, err := Load(ctx, path, Opts{})
	require.NoError(t, err)
	checkConsistent(t, p)
	expect.EQ(t, p.Genes, []string{"Peg3", "H19"})

	_, err = Load(ctx, filepath.Join(tempDir, "missing.tsv"), Opts{})
	assert.Error(t, err)
}
