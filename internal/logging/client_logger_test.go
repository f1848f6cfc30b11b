// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewClientLogger_NoOpWhenDirEmpty(t *testing.T) {
	base, closer := NewLogger("info", "json", "")
	defer closer.Close()

	entry, fileCloser, path, err := NewClientLogger(base, "", "client-1")
	if err != nil {
		t.Fatalf("NewClientLogger: %v", err)
	}
	if path != "" {
		t.Fatalf("expected empty path, got %q", path)
	}
	entry.Info("no dedicated file")
	fileCloser.Close()
}

func TestNewClientLogger_WritesDedicatedFile(t *testing.T) {
	base, baseCloser := NewLogger("info", "json", "")
	defer baseCloser.Close()

	dir := t.TempDir()
	entry, fileCloser, path, err := NewClientLogger(base, dir, "client-42")
	if err != nil {
		t.Fatalf("NewClientLogger: %v", err)
	}
	if path != filepath.Join(dir, "client-42.log") {
		t.Fatalf("unexpected log path: %q", path)
	}

	entry.WithField("event", "connect").Debug("client authenticated")
	fileCloser.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading client log file: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "client authenticated") {
		t.Errorf("expected log file to contain message, got: %s", content)
	}
	if !strings.Contains(content, "client_id") {
		t.Errorf("expected log file to contain client_id field, got: %s", content)
	}
}
