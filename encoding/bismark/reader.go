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
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/klauspost/compress/gzip"
)

// Reader scans a gzip-compressed call file.
type Reader struct {
	*Scanner
	in file.File
	gz *gzip.Reader
}

// Open opens the gzip-compressed call file at path.
func Open(ctx context.Context, path string) (*Reader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	gz, err := gzip.NewReader(in.Reader(ctx))
	if err != nil {
		_ = in.Close(ctx)
		return nil, errors.E(errors.Invalid, path+": not a gzip file", err)
	}
	return &Reader{Scanner: NewScanner(gz, path), in: in, gz: gz}, nil
}

// Close releases the underlying file.
func (r *Reader) Close(ctx context.Context) error {
	err := r.gz.Close()
	if e := r.in.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}
