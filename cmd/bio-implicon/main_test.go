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

package main

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"v.io/x/lib/cmdline"
)

func writeGzip(t *testing.T, path, data string) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write([]byte(data))
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	assert.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0644))
}

func runCmd(t *testing.T, env envConfig, args ...string) error {
	var out bytes.Buffer
	cenv := &cmdline.Env{Stdout: &out, Stderr: &out, Vars: map[string]string{}}
	runner, rest, err := cmdline.Parse(newRootCmd(env), cenv, args)
	if err != nil {
		return err
	}
	return runner.Run(cenv, rest)
}

func TestLoadEnv(t *testing.T) {
	for _, k := range []string{"IMPLICON_DIR", "IMPLICON_OUTPUT", "IMPLICON_PARALLELISM"} {
		old, ok := os.LookupEnv(k)
		if ok {
			defer os.Setenv(k, old) // nolint: errcheck
		} else {
			defer os.Unsetenv(k) // nolint: errcheck
		}
	}
	assert.NoError(t, os.Unsetenv("IMPLICON_DIR"))
	assert.NoError(t, os.Unsetenv("IMPLICON_OUTPUT"))
	assert.NoError(t, os.Setenv("IMPLICON_PARALLELISM", "3"))
	env, err := loadEnv()
	assert.NoError(t, err)
	expect.EQ(t, env.Dir, ".")
	expect.EQ(t, env.Output, "methylation_state_consistency.txt")
	expect.EQ(t, env.Parallelism, 3)

	assert.NoError(t, os.Setenv("IMPLICON_PARALLELISM", "many"))
	_, err = loadEnv()
	expect.True(t, err != nil)
}

func TestSampleCommand(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tempDir)

	annotation := filepath.Join(tempDir, "panel.tsv")
	assert.NoError(t, ioutil.WriteFile(annotation, []byte("name\tchrom\tpos\tx\tgene\n"+
		"cg1\tchr7\t100\t+\tPeg3\n"+
		"cg2\tchr7\t120\t+\tPeg3\n"), 0644))
	writeGzip(t, filepath.Join(tempDir, "CpG_OT_lane1_s1_ACGTACGT_L001.txt.gz"),
		"Bismark methylation extractor version v0.22.3\n"+
			"r1/1\t+\tchr7\t120\tZ\n"+
			"r2/1\t-\tchr7\t100\tZ\n")

	out := filepath.Join(tempDir, "out.txt")
	env := envConfig{Dir: tempDir, Output: out, TempDir: tempDir}
	assert.NoError(t, runCmd(t, env, "sample", "-max-cols=3", annotation))
	data, err := ioutil.ReadFile(out)
	assert.NoError(t, err)
	expect.EQ(t, string(data), "readID\tsample\timplicon\t1\t2\t3\n"+
		"1\ts1\tPeg3\tNA\t1\n"+
		"2\ts1\tPeg3\t0\tNA\n")

	// The allele command rejects names without a genome tag.
	expect.True(t, runCmd(t, env, "allele", annotation) != nil)
	// Exactly one argument.
	expect.True(t, runCmd(t, env, "sample") != nil)
}
