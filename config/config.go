// Copyright 2018 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the build-time tunables of the kernel core: which
// scheduling discipline is compiled in, and the sizing constants that
// discipline operates over.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Discipline selects one of the five interchangeable scheduling
// disciplines described in spec.md §4.6. Exactly one is active per boot;
// dynamic switching at runtime is a declared Non-goal.
type Discipline string

// The five build-time disciplines.
const (
	RoundRobin Discipline = "round_robin"
	FCFS       Discipline = "fcfs"
	Lottery    Discipline = "lbs"
	PBS        Discipline = "pbs"
	MLFQ       Discipline = "mlfq"
)

// Valid reports whether d names one of the five disciplines.
func (d Discipline) Valid() bool {
	switch d {
	case RoundRobin, FCFS, Lottery, PBS, MLFQ:
		return true
	default:
		return false
	}
}

// Config is the set of build-time constants, suggested as defaults in
// spec.md §6 and overridable from a TOML boot file.
type Config struct {
	// Discipline is the active scheduling discipline.
	Discipline Discipline `toml:"discipline"`

	// NPROC is the fixed size of the process table.
	NPROC int `toml:"nproc"`
	// NCPU is the number of harts, each running an independent
	// scheduler loop.
	NCPU int `toml:"ncpu"`
	// NOFILE is the number of open-file slots per process.
	NOFILE int `toml:"nofile"`
	// NMLFQ is the number of MLFQ priority levels (0 is highest).
	NMLFQ int `toml:"nmlfq"`
	// AGETICKS is the number of ticks a RUNNABLE process may wait in
	// its MLFQ queue before it is aged up one level.
	AGETICKS int `toml:"ageticks"`
}

// Default returns the suggested defaults of spec.md §6.
func Default() Config {
	return Config{
		Discipline: RoundRobin,
		NPROC:      64,
		NCPU:       8,
		NOFILE:     16,
		NMLFQ:      5,
		AGETICKS:   30,
	}
}

// Load reads a boot configuration from a TOML file, starting from
// Default and overriding only the fields present in the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if !cfg.Discipline.Valid() {
		return Config{}, fmt.Errorf("config: unknown discipline %q", cfg.Discipline)
	}
	if cfg.NPROC <= 0 || cfg.NCPU <= 0 || cfg.NOFILE <= 0 || cfg.NMLFQ <= 0 || cfg.AGETICKS <= 0 {
		return Config{}, fmt.Errorf("config: all sizing constants must be positive, got %+v", cfg)
	}
	return cfg, nil
}
