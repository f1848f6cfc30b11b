// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

// Package logging builds the structured logger shared by the long-lived
// components: the client and server commands each scope a *logrus.Entry
// with a "component" field and hand it to their dispatchers. The registry
// and the pool do no logging of their own.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a *logrus.Logger configured with the given level and
// format. Supported formats: "json" (default) and "text". Supported
// levels: "debug", "info" (default), "warn", "error". If filePath is not
// empty, logs go to stdout and the file (io.MultiWriter). Returns the
// logger and an io.Closer that must be called on shutdown to close the
// file; if filePath is empty, the returned Closer is a no-op.
func NewLogger(level, format, filePath string) (*logrus.Logger, io.Closer) {
	logger := logrus.New()
	logger.SetLevel(parseLevel(level))

	var w io.Writer = os.Stdout
	var closer io.Closer = io.NopCloser(strings.NewReader(""))

	if filePath != "" {
		f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: could not open log file %q: %v (logging to stdout only)\n", filePath, err)
		} else {
			w = io.MultiWriter(os.Stdout, f)
			closer = f
		}
	}
	logger.SetOutput(w)

	switch strings.ToLower(format) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	return logger, closer
}

// LevelFromEnv reads TUNNELER_LOG_LEVEL, falling back to LOG_LEVEL, then to
// "info" if neither is set.
func LevelFromEnv() string {
	if v := os.Getenv("TUNNELER_LOG_LEVEL"); v != "" {
		return v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		return v
	}
	return "info"
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
