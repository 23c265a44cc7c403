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
	"github.com/grailbio/implicon/methylation"
	"github.com/kelseyhightower/envconfig"
)

// envConfig holds flag defaults that can be set in the environment.
type envConfig struct {
	Dir         string `envconfig:"IMPLICON_DIR" default:"."`
	Output      string `envconfig:"IMPLICON_OUTPUT"`
	Parallelism int    `envconfig:"IMPLICON_PARALLELISM"`
	TempDir     string `envconfig:"IMPLICON_TEMP_DIR"`
	SQLite      string `envconfig:"IMPLICON_SQLITE"`
}

// loadEnv reads envConfig from the environment. An empty Output falls back
// to methylation.DefaultOutput.
func loadEnv() (envConfig, error) {
	var cfg envConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	if cfg.Output == "" {
		cfg.Output = methylation.DefaultOutput
	}
	return cfg, nil
}
