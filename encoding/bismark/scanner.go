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

// Package bismark reads Bismark methylation extractor call files
// ("CpG context" files).
//
// Each line describes one methylation call made on one read:
//
//   readID  state  chromosome  position  context
//
// where state is "+" (methylated) or "-" (unmethylated). Bismark starts
// every file with a version line beginning with "Bismark", which is skipped.
// Calls made on the same read are written consecutively.
package bismark

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/errors"
)

// HeaderPrefix marks the optional header line of a call file.
const HeaderPrefix = "Bismark"

const maxLineLen = 1 << 20

// A Call is a single methylation call. Its byte slices alias the scanner's
// buffer and are valid only until the next call to Scan.
type Call struct {
	ReadID []byte
	State  []byte
	Chrom  []byte
	Pos    int
}

var errEOF = errors.New("eof")

// Scanner reads calls from a decompressed call file. Scanners are not
// threadsafe.
type Scanner struct {
	b    *bufio.Scanner
	name string
	line int
	err  error
}

// NewScanner creates a Scanner reading from r. Name identifies the stream in
// error messages.
func NewScanner(r io.Reader, name string) *Scanner {
	b := bufio.NewScanner(r)
	b.Buffer(make([]byte, 64<<10), maxLineLen)
	return &Scanner{b: b, name: name}
}

// Scan reads the next call into c. Scan returns false at the end of the
// stream or on error. Once Scan returns false, it never returns true again;
// the caller should check Err to tell the two apart.
//
// A line with fewer than four fields, or whose position is not an integer,
// stops the scan with an error of kind errors.Invalid naming the line.
func (s *Scanner) Scan(c *Call) bool {
	if s.err != nil {
		return false
	}
	for {
		if !s.b.Scan() {
			if s.err = s.b.Err(); s.err == nil {
				s.err = errEOF
			}
			return false
		}
		s.line++
		line := bytes.TrimSpace(s.b.Bytes())
		if len(line) == 0 || bytes.HasPrefix(line, []byte(HeaderPrefix)) {
			continue
		}
		return s.parse(line, c)
	}
}

func (s *Scanner) parse(line []byte, c *Call) bool {
	var fields [4][]byte
	for i := range fields {
		if i == len(fields)-1 {
			if j := bytes.IndexByte(line, '\t'); j >= 0 {
				line = line[:j]
			}
			fields[i] = line
			break
		}
		j := bytes.IndexByte(line, '\t')
		if j < 0 {
			s.err = errors.E(errors.Invalid, fmt.Sprintf("%s:%d: expected at least 4 tab-separated fields, found %d", s.name, s.line, i+1))
			return false
		}
		fields[i] = line[:j]
		line = line[j+1:]
	}
	pos, err := strconv.Atoi(string(fields[3]))
	if err != nil {
		s.err = errors.E(errors.Invalid, fmt.Sprintf("%s:%d: position %q is not an integer", s.name, s.line, fields[3]))
		return false
	}
	c.ReadID = fields[0]
	c.State = fields[1]
	c.Chrom = fields[2]
	c.Pos = pos
	return true
}

// Name returns the stream name given to NewScanner.
func (s *Scanner) Name() string { return s.name }

// Err returns the scanning error, if any.
func (s *Scanner) Err() error {
	if s.err == errEOF {
		return nil
	}
	if s.err == bufio.ErrTooLong {
		return errors.E(errors.Invalid, fmt.Sprintf("%s:%d: line too long", s.name, s.line+1))
	}
	return s.err
}
