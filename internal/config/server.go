// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package config

import (
	"fmt"
	"runtime"
)

// ServerConfig is the validated configuration for the `server` subcommand.
type ServerConfig struct {
	// Strategy is the raw load-balancing strategy string (-p), parsed
	// separately by internal/registry.ParseStrategy.
	Strategy string
	// ListenPort is the control port clients dial in on (-l).
	ListenPort uint32
	// KeyPath is the pre-shared key file path (-k).
	KeyPath string
	// Threads bounds the worker pool size, 0 means runtime.NumCPU() (-t).
	Threads int

	LogLevel  string
	LogFormat string
}

func (c *ServerConfig) validate() error {
	if c.Strategy == "" {
		return fmt.Errorf("server: -p (strategy) is required")
	}
	if c.ListenPort == 0 {
		return fmt.Errorf("server: -l (listen port) is required")
	}
	if c.KeyPath == "" {
		c.KeyPath = DefaultKeyPath()
	}
	if c.Threads <= 0 {
		c.Threads = runtime.NumCPU()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "json"
	}
	return nil
}

// NewServerConfig validates raw and fills in defaults, returning an error
// naming the first missing required field.
func NewServerConfig(raw ServerConfig) (*ServerConfig, error) {
	cfg := raw
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
