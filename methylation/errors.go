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

import "github.com/grailbio/base/errors"

// IsFormatError reports whether err is due to a malformed annotation or call
// file line.
func IsFormatError(err error) bool { return errors.Is(errors.Invalid, err) }

// IsLookupError reports whether err is due to a call file name that yields
// no labels.
func IsLookupError(err error) bool { return errors.Is(errors.NotExist, err) }

// IsUnmappedSymbolError reports whether err is due to a call symbol other
// than "+" or "-".
func IsUnmappedSymbolError(err error) bool { return errors.Is(errors.Integrity, err) }
