// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Lol3rrr/tunneler/internal/config"
	"github.com/Lol3rrr/tunneler/internal/keyfile"
	"github.com/Lol3rrr/tunneler/internal/logging"
	"github.com/Lol3rrr/tunneler/internal/server"
)

func newServerCommand() *cobra.Command {
	var raw config.ServerConfig
	var clientLogDir string

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Accept tunneler clients and expose their streams on public ports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), raw, clientLogDir)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&raw.Strategy, "strategy", "p", "", "load-balancing strategy: N, N,M,..., .., or N..M")
	flags.Uint32VarP(&raw.ListenPort, "listen-port", "l", 0, "control port clients dial in on")
	flags.StringVarP(&raw.KeyPath, "key", "k", "", "path to the pre-shared key file (default $HOME/.tunneler/key)")
	flags.IntVarP(&raw.Threads, "threads", "t", 0, "worker pool size (default runtime.NumCPU())")
	flags.StringVar(&clientLogDir, "client-log-dir", "", "directory for one dedicated log file per connected client (default: none)")

	return cmd
}

func runServer(parentCtx context.Context, raw config.ServerConfig, clientLogDir string) error {
	cfg, err := config.NewServerConfig(raw)
	if err != nil {
		return err
	}

	runtime.GOMAXPROCS(cfg.Threads)

	logger, closer := logging.NewLogger(logging.LevelFromEnv(), cfg.LogFormat, "")
	defer closer.Close()
	entry := logger.WithField("component", "server")

	secret, err := keyfile.Load(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("server: loading key file %s: %w", cfg.KeyPath, err)
	}

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		entry.WithField("signal", sig).Info("received signal, shutting down")
		cancel()
	}()

	return server.Run(ctx, cfg, secret, clientLogDir, logger)
}
