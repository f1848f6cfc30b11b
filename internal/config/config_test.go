// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestNewClientConfig_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		cfg  ClientConfig
	}{
		{"missing external port", ClientConfig{ListenPort: 1, ServerIP: "1.2.3.4", TargetPort: 80}},
		{"missing listen port", ClientConfig{ExternalPort: 80, ServerIP: "1.2.3.4", TargetPort: 80}},
		{"missing server ip", ClientConfig{ExternalPort: 80, ListenPort: 1, TargetPort: 80}},
		{"missing target port", ClientConfig{ExternalPort: 80, ListenPort: 1, ServerIP: "1.2.3.4"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewClientConfig(tc.cfg); err == nil {
				t.Fatalf("expected a validation error")
			}
		})
	}
}

func TestNewClientConfig_Defaults(t *testing.T) {
	cfg, err := NewClientConfig(ClientConfig{
		ExternalPort: 8080,
		ListenPort:   9000,
		ServerIP:     "203.0.113.5",
		TargetPort:   3000,
	})
	if err != nil {
		t.Fatalf("NewClientConfig: %v", err)
	}
	if cfg.TargetIP != "localhost" {
		t.Errorf("expected default target IP localhost, got %q", cfg.TargetIP)
	}
	if cfg.KeyPath == "" {
		t.Errorf("expected a default key path to be filled in")
	}
	if cfg.Threads <= 0 {
		t.Errorf("expected a positive default thread count, got %d", cfg.Threads)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("expected default log level/format, got %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestNewClientConfig_ExplicitValuesPreserved(t *testing.T) {
	cfg, err := NewClientConfig(ClientConfig{
		ExternalPort: 8080,
		ListenPort:   9000,
		ServerIP:     "203.0.113.5",
		TargetPort:   3000,
		TargetIP:     "10.0.0.5",
		KeyPath:      "/etc/tunneler/key",
		Threads:      4,
		LogLevel:     "debug",
		LogFormat:    "text",
	})
	if err != nil {
		t.Fatalf("NewClientConfig: %v", err)
	}
	if cfg.TargetIP != "10.0.0.5" || cfg.KeyPath != "/etc/tunneler/key" || cfg.Threads != 4 {
		t.Errorf("explicit values were overwritten: %+v", cfg)
	}
}

func TestNewServerConfig_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name string
		cfg  ServerConfig
	}{
		{"missing strategy", ServerConfig{ListenPort: 9000}},
		{"missing listen port", ServerConfig{Strategy: "8080"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewServerConfig(tc.cfg); err == nil {
				t.Fatalf("expected a validation error")
			}
		})
	}
}

func TestNewServerConfig_Defaults(t *testing.T) {
	cfg, err := NewServerConfig(ServerConfig{Strategy: "8080..8090", ListenPort: 9000})
	if err != nil {
		t.Fatalf("NewServerConfig: %v", err)
	}
	if cfg.KeyPath == "" {
		t.Errorf("expected a default key path to be filled in")
	}
	if cfg.Threads <= 0 {
		t.Errorf("expected a positive default thread count, got %d", cfg.Threads)
	}
}

func TestDefaultKeyPath_EndsInTunnelerKey(t *testing.T) {
	path := DefaultKeyPath()
	if path == "" {
		t.Fatalf("expected a non-empty default key path")
	}
	if !strings.HasSuffix(path, filepath.Join(".tunneler", "key")) {
		t.Fatalf("expected default key path to end in .tunneler/key, got %q", path)
	}
}
