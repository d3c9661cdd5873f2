// Copyright (C) 2008-2018 by Nicolas Piganeau and the TS2 TEAM
// (See AUTHORS file)
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program; if not, write to the
// Free Software Foundation, Inc.,
// 59 Temple Place - Suite 330, Boston, MA  02111-1307, USA.

// Package config holds urojd's process-wide settings: the listen address
// and the engine timing knobs, parsed once from flags in cmd/urojd.
package config

import (
	"flag"
	"time"
)

// Config is urojd's process-wide configuration.
type Config struct {
	Addr string
	Port string

	BroadcastBufferSize    int
	SequentialReleaseSweep time.Duration
	ThreePointCheckDelay   time.Duration
}

// Default returns the configuration used when no flags are given.
func Default() Config {
	return Config{
		Addr:                   "0.0.0.0",
		Port:                   "22222",
		BroadcastBufferSize:    32,
		SequentialReleaseSweep: 500 * time.Millisecond,
		ThreePointCheckDelay:   3 * time.Second,
	}
}

// ParseFlags populates a Config from the process's command-line flags,
// starting from Default() for anything not given.
func ParseFlags(args []string) (Config, error) {
	cfg := Default()

	fs := flag.NewFlagSet("urojd", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "address to listen on")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	fs.IntVar(&cfg.BroadcastBufferSize, "broadcast-buffer", cfg.BroadcastBufferSize, "per-instance broadcast channel capacity")
	fs.DurationVar(&cfg.SequentialReleaseSweep, "sequential-release-sweep", cfg.SequentialReleaseSweep, "sequential-release sweep interval")
	fs.DurationVar(&cfg.ThreePointCheckDelay, "three-point-check-delay", cfg.ThreePointCheckDelay, "three-point check delay on train moves")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
