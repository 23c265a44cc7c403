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

// bio-implicon reduces Bismark CpG context files of an amplicon experiment
// to a table with one row per read and one column per CpG site of the read's
// amplicon.
//
// Usage:
//
//   bio-implicon sample [flags] annotation.tsv
//   bio-implicon allele [flags] annotation.tsv
//
// The sample command labels reads with the sample name taken from file names
// such as
//
//   CpG_OT_lane6808_9C_A8_miPSC_TCTGCTGT_L001_R1_val_1_bismark_bt2_pe.deduplicated.txt.gz
//
// The allele command handles SNPsplit genome-specific files such as
//
//   CpG_OB_lane6808_TCTGCTGT_9C_A8_miPSC_L001_R1...deduplicated.genome1.txt.gz
//
// and adds an allele column (genome1 is B6, genome2 is CAST).
package main

import (
	"fmt"
	golog "log"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/implicon/methylation"
	"v.io/x/lib/cmdline"
)

type variant struct {
	name, short string
	labels      func() methylation.LabelConfig
	maxCols     int
}

var variants = []variant{
	{"sample", "Per-read methylation states labelled by sample", methylation.SampleConfig, methylation.SampleMaxColumns},
	{"allele", "Per-read methylation states labelled by sample and allele", methylation.AlleleConfig, methylation.AlleleMaxColumns},
}

func newCmd(v variant, env envConfig) *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     v.name,
		Short:    v.short,
		ArgsName: "annotation",
		ArgsLong: "annotation is a tab-separated table with a header line and columns name, chromosome, position, (unused), gene.",
	}
	opts := methylation.DefaultOpts
	cmd.Flags.StringVar(&opts.InputDir, "dir", env.Dir, "Directory searched for call files")
	cmd.Flags.StringVar(&opts.Pattern, "pattern", methylation.DefaultPattern, "Glob selecting call files by name")
	cmd.Flags.StringVar(&opts.OutputPath, "out", env.Output, "Output table. Written gzip-compressed if the name ends in .gz")
	cmd.Flags.StringVar(&opts.SQLitePath, "sqlite", env.SQLite, "If set, also write rows to this SQLite database")
	cmd.Flags.IntVar(&opts.MaxColumns, "max-cols", v.maxCols, "Number of positional header columns. 0 sizes the header to the widest amplicon")
	cmd.Flags.IntVar(&opts.Parallelism, "parallelism", env.Parallelism, "Maximum number of call files read at once. 0 uses all CPUs")
	cmd.Flags.StringVar(&opts.TempDir, "temp-dir", env.TempDir, "Directory for staged rows")
	cmd.Flags.BoolVar(&opts.Panel.StrictSites, "strict-sites", false, "Fail if the annotation lists a site under two genes, instead of keeping the last")
	labelsFlag := cmd.Flags.String("labels", "", "YAML file overriding the file name pattern and allele names")
	cmd.Runner = cmdutil.RunnerFunc(func(_ *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("%s takes one annotation path, but got %v", v.name, argv)
		}
		ctx := vcontext.Background()
		cfg := v.labels()
		if *labelsFlag != "" {
			var err error
			if cfg, err = methylation.ReadLabelConfig(ctx, *labelsFlag, cfg); err != nil {
				return err
			}
		}
		labeler, err := methylation.NewLabeler(cfg)
		if err != nil {
			return err
		}
		opts.AnnotationPath = argv[0]
		opts.Labeler = labeler
		log.Printf("reading amplicons from %s", opts.AnnotationPath)
		stats, err := methylation.Run(ctx, opts)
		if err != nil {
			return err
		}
		log.Printf("%d files, %d calls, %d on panel sites, %d reads written to %s",
			stats.Files, stats.Calls, stats.Kept, stats.Reads, opts.OutputPath)
		return nil
	})
	return cmd
}

func newRootCmd(env envConfig) *cmdline.Command {
	root := &cmdline.Command{
		Name:     "bio-implicon",
		Short:    "Per-read CpG methylation tables for amplicon panels",
		LookPath: false,
	}
	for _, v := range variants {
		root.Children = append(root.Children, newCmd(v, env))
	}
	return root
}

func main() {
	golog.SetFlags(golog.Ldate | golog.Ltime | golog.Lmicroseconds | golog.Lshortfile)
	env, err := loadEnv()
	if err != nil {
		log.Fatalf("environment: %v", err)
	}
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newRootCmd(env))
}
