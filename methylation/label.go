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
	"fmt"
	"path/filepath"
	"regexp"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"gopkg.in/yaml.v2"
)

// Labels are the sample and allele names of a call file.
type Labels struct {
	Sample string
	// Allele is empty unless the Labeler derives alleles.
	Allele string
}

// Labeler derives Labels from a call file's name. Failures are errors of kind
// errors.NotExist.
type Labeler interface {
	Labels(path string) (Labels, error)
	// HasAllele reports whether the labels carry an allele, and thus whether
	// the output has an allele column.
	HasAllele() bool
}

const (
	// SamplePattern matches Bismark file names of the form
	// CpG_<strand>_lane<N>_<sample>_<8-base index>_L00<...>.
	SamplePattern = `CpG_.+_lane\d+_(.*)_[TACG]{8}_L00.*`
	// AllelePattern matches file names of SNPsplit genome-specific files,
	// CpG_O<T|B>_lane<N>_<8-base index>_<sample>_L00<...>.genome<1|2>...
	AllelePattern = `CpG_O._lane\d+_[TACG]{8}_(.*)_L00.*\.(genome[12])`
)

// DefaultAlleles maps SNPsplit genome tags to strain names.
var DefaultAlleles = map[string]string{
	"genome1": "B6",
	"genome2": "CAST",
}

// LabelConfig configures a pattern-based Labeler. It is usually read from a
// YAML file:
//
//   pattern: 'CpG_O._lane\d+_[TACG]{8}_(.*)_L00.*\.(genome[12])'
//   alleles:
//     genome1: B6
//     genome2: CAST
//
// The pattern's first group captures the sample. If Alleles is nonempty, the
// second group captures a genome tag that must be a key of Alleles.
type LabelConfig struct {
	Pattern string            `yaml:"pattern"`
	Alleles map[string]string `yaml:"alleles,omitempty"`
}

// SampleConfig is the configuration of the sample-only labeler.
func SampleConfig() LabelConfig {
	return LabelConfig{Pattern: SamplePattern}
}

// AlleleConfig is the configuration of the allele-aware labeler.
func AlleleConfig() LabelConfig {
	alleles := make(map[string]string, len(DefaultAlleles))
	for k, v := range DefaultAlleles {
		alleles[k] = v
	}
	return LabelConfig{Pattern: AllelePattern, Alleles: alleles}
}

// ReadLabelConfig reads a YAML label configuration from path. Fields missing
// from the file keep their values in base.
func ReadLabelConfig(ctx context.Context, path string, base LabelConfig) (LabelConfig, error) {
	data, err := file.ReadFile(ctx, path)
	if err != nil {
		return base, err
	}
	cfg := LabelConfig{Pattern: base.Pattern}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return base, errors.E(errors.Invalid, fmt.Sprintf("%s: bad label configuration", path), err)
	}
	if cfg.Alleles == nil {
		cfg.Alleles = base.Alleles
	}
	return cfg, nil
}

// PatternLabeler extracts labels with a regular expression applied to the
// base name of a file.
type PatternLabeler struct {
	re      *regexp.Regexp
	alleles map[string]string
}

// NewLabeler builds a PatternLabeler from cfg.
func NewLabeler(cfg LabelConfig) (*PatternLabeler, error) {
	re, err := regexp.Compile(cfg.Pattern)
	if err != nil {
		return nil, errors.E(errors.Invalid, "label pattern", err)
	}
	want := 1
	if len(cfg.Alleles) > 0 {
		want = 2
	}
	if re.NumSubexp() < want {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("label pattern %q has %d groups, need %d", cfg.Pattern, re.NumSubexp(), want))
	}
	return &PatternLabeler{re: re, alleles: cfg.Alleles}, nil
}

// NewSampleLabeler returns the sample-only labeler.
func NewSampleLabeler() *PatternLabeler {
	l, err := NewLabeler(SampleConfig())
	if err != nil {
		panic(err)
	}
	return l
}

// NewAlleleLabeler returns the allele-aware labeler.
func NewAlleleLabeler() *PatternLabeler {
	l, err := NewLabeler(AlleleConfig())
	if err != nil {
		panic(err)
	}
	return l
}

// HasAllele implements Labeler.
func (l *PatternLabeler) HasAllele() bool { return len(l.alleles) > 0 }

// Labels implements Labeler.
func (l *PatternLabeler) Labels(path string) (Labels, error) {
	name := filepath.Base(path)
	m := l.re.FindStringSubmatch(name)
	if m == nil {
		return Labels{}, errors.E(errors.NotExist, fmt.Sprintf("%s: file name does not match %q", path, l.re))
	}
	labels := Labels{Sample: m[1]}
	if !l.HasAllele() {
		return labels, nil
	}
	allele, ok := l.alleles[m[2]]
	if !ok {
		return Labels{}, errors.E(errors.NotExist, fmt.Sprintf("%s: failed to extract allele: unknown genome tag %q", path, m[2]))
	}
	labels.Allele = allele
	return labels, nil
}
