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

// Package methylation turns Bismark CpG call files into per-read
// methylation state tables for amplicon ("implicon") panels.
//
// A call file lists one methylation call per line, and Bismark writes all
// calls of a read consecutively. Aggregator reads such a stream once,
// discards calls outside the panel, and groups the remaining calls into one
// ReadGroup per read. NewRow renders a ReadGroup as a Row: a run-wide read
// number, labels derived from the file name by a Labeler, the gene, and one
// State per CpG site of that gene (1 methylated, 0 unmethylated, NA not
// covered by the read).
//
// Run drives a whole directory of call files: files are aggregated in
// parallel into temporary recordio shards and committed to the output table
// in sorted file order, so read numbers do not depend on the degree of
// parallelism.
package methylation
