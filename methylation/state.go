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
	"fmt"

	"github.com/grailbio/base/errors"
)

// State is the methylation state of one CpG site on one read.
type State uint8

const (
	// Unmethylated is reported by Bismark as "-".
	Unmethylated State = iota
	// Methylated is reported by Bismark as "+".
	Methylated
	// NotCovered marks a site of the read's gene that the read does not span.
	NotCovered
)

// NotCoveredText is how NotCovered is rendered in the output table.
const NotCoveredText = "NA"

func (s State) String() string {
	switch s {
	case Unmethylated:
		return "0"
	case Methylated:
		return "1"
	case NotCovered:
		return NotCoveredText
	}
	return fmt.Sprintf("State(%d)", s)
}

// ParseState maps a Bismark call symbol to a State. Symbols other than "+"
// and "-" yield an error of kind errors.Integrity.
func ParseState(symbol string) (State, error) {
	switch symbol {
	case "-":
		return Unmethylated, nil
	case "+":
		return Methylated, nil
	}
	return NotCovered, errors.E(errors.Integrity, fmt.Sprintf("no sensible methylation state for call symbol %q", symbol))
}
