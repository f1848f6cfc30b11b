// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

// Package config holds the validated configuration structs for the client
// and server subcommands. Flags are parsed by cobra/pflag in cmd/tunneler;
// this package only validates the result and fills in defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DefaultKeyPath is "$HOME/.tunneler/key", the default key file location
// for both client and server.
func DefaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".tunneler", "key")
}

// ClientConfig is the validated configuration for the `client` subcommand.
type ClientConfig struct {
	// ExternalPort is the public port this client is reached on (-p). It is
	// required and is attached to the client's log entries; it is not sent
	// to the server, whose own strategy decides which public ports it opens.
	ExternalPort uint16
	// ListenPort is the server's control port this client dials out to
	// (-l). Despite the flag name, the client never listens on anything
	// itself, it only ever dials out.
	ListenPort uint32
	// ServerIP is the tunneler server's address (--ip).
	ServerIP string
	// TargetPort is the local service's port the tunnel forwards to
	// (--target-port).
	TargetPort uint32
	// TargetIP is the local service's address, default "localhost"
	// (--target-ip).
	TargetIP string
	// KeyPath is the pre-shared key file path (-k).
	KeyPath string
	// Threads bounds the worker pool size, 0 means runtime.NumCPU() (-t).
	Threads int

	LogLevel  string
	LogFormat string
}

func (c *ClientConfig) validate() error {
	if c.ExternalPort == 0 {
		return fmt.Errorf("client: -p (external port) is required")
	}
	if c.ListenPort == 0 {
		return fmt.Errorf("client: -l (listen port) is required")
	}
	if c.ServerIP == "" {
		return fmt.Errorf("client: --ip (server address) is required")
	}
	if c.TargetPort == 0 {
		return fmt.Errorf("client: --target-port is required")
	}
	if c.TargetIP == "" {
		c.TargetIP = "localhost"
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

// NewClientConfig validates raw and fills in defaults, returning an error
// naming the first missing required field.
func NewClientConfig(raw ClientConfig) (*ClientConfig, error) {
	cfg := raw
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
