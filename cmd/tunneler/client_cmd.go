// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Lol3rrr/tunneler/internal/client"
	"github.com/Lol3rrr/tunneler/internal/config"
	"github.com/Lol3rrr/tunneler/internal/keyfile"
	"github.com/Lol3rrr/tunneler/internal/logging"
	"github.com/Lol3rrr/tunneler/internal/pool"
)

func newClientCommand() *cobra.Command {
	var raw config.ClientConfig
	var poolSize int

	cmd := &cobra.Command{
		Use:   "client",
		Short: "Dial out to a tunneler server and forward streams to a local target",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context(), raw, poolSize)
		},
	}

	flags := cmd.Flags()
	flags.Uint16VarP(&raw.ExternalPort, "external-port", "p", 0, "public port this client is reached on (required; used in log entries only, not sent to the server)")
	flags.Uint32VarP(&raw.ListenPort, "listen-port", "l", 0, "control port this client connects to on the server")
	flags.StringVar(&raw.ServerIP, "ip", "", "IP of the tunneler server")
	flags.Uint32Var(&raw.TargetPort, "target-port", 0, "port of the forwarding target")
	flags.StringVar(&raw.TargetIP, "target-ip", "", "IP of the forwarding target (default localhost)")
	flags.StringVarP(&raw.KeyPath, "key", "k", "", "path to the pre-shared key file (default $HOME/.tunneler/key)")
	flags.IntVarP(&raw.Threads, "threads", "t", 0, "worker pool size (default runtime.NumCPU())")
	flags.IntVar(&poolSize, "pool-size", 0, "number of pre-dialed target connections to keep pooled (default: no pooling)")

	return cmd
}

func runClient(parentCtx context.Context, raw config.ClientConfig, poolSize int) error {
	cfg, err := config.NewClientConfig(raw)
	if err != nil {
		return err
	}

	runtime.GOMAXPROCS(cfg.Threads)

	logger, closer := logging.NewLogger(logging.LevelFromEnv(), cfg.LogFormat, "")
	defer closer.Close()
	entry := logger.WithField("component", "client").WithField("external_port", cfg.ExternalPort)

	secret, err := keyfile.Load(cfg.KeyPath)
	if err != nil {
		return fmt.Errorf("client: loading key file %s: %w", cfg.KeyPath, err)
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

	serverAddr := fmt.Sprintf("%s:%d", cfg.ServerIP, cfg.ListenPort)
	targetAddr := fmt.Sprintf("%s:%d", cfg.TargetIP, cfg.TargetPort)

	var dialer client.TargetDialer
	if poolSize > 0 {
		p := pool.New(func() (net.Conn, error) {
			return net.Dial("tcp", targetAddr)
		}, poolSize)
		if err := p.Fill(); err != nil {
			entry.WithError(err).Warn("pre-dialing target pool failed, pairs will be dialed on demand")
		}
		dialer = client.NewPooledDialer(p)
	} else {
		dialer = client.NewDirectDialer(targetAddr)
	}

	err = client.Supervisor(ctx, serverAddr, secret, dialer, entry)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
