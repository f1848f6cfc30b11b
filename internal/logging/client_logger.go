// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// NewClientLogger builds a logger that writes both to the server's base
// logger and to a dedicated file for one connected client's whole control
// link lifetime:
//
//	{clientLogDir}/{clientID}.log
//
// Returns a *logrus.Entry scoped with a "client_id" field, an io.Closer for
// the dedicated file (must be called once the client disconnects), and the
// file's path (clientLogDir joined with the file name). If clientLogDir is empty, returns an entry on the
// base logger with no dedicated file (no-op Closer).
func NewClientLogger(base *logrus.Logger, clientLogDir, clientID string) (*logrus.Entry, io.Closer, string, error) {
	if clientLogDir == "" {
		return base.WithField("client_id", clientID), io.NopCloser(nil), "", nil
	}

	if err := os.MkdirAll(clientLogDir, 0755); err != nil {
		return nil, nil, "", fmt.Errorf("creating client log directory %s: %w", clientLogDir, err)
	}

	logPath := filepath.Join(clientLogDir, clientID+".log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, "", fmt.Errorf("opening client log file %s: %w", logPath, err)
	}

	// The dedicated file always captures at debug level, regardless of the
	// base logger's level, for maximum detail when diagnosing one client.
	fanout := logrus.New()
	fanout.SetOutput(io.MultiWriter(base.Out, f))
	fanout.SetLevel(logrus.DebugLevel)
	fanout.SetFormatter(&logrus.JSONFormatter{})

	return fanout.WithField("client_id", clientID), f, logPath, nil
}
