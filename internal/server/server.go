// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

// Package server implements the tunneler server: the control acceptor that
// authenticates clients, the per-client receiver/sender dispatcher, and the
// public-port acceptors that forward user connections to a registered
// client under the configured load-balancing Strategy.
package server

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Lol3rrr/tunneler/internal/config"
	"github.com/Lol3rrr/tunneler/internal/handshake"
	"github.com/Lol3rrr/tunneler/internal/logging"
	"github.com/Lol3rrr/tunneler/internal/protocol"
	"github.com/Lol3rrr/tunneler/internal/registry"
)

// Run starts the control acceptor and every public-port acceptor implied by
// strategy, and blocks until ctx is canceled. A goroutine closes every
// listener when ctx is done, and the accept loops return nil on a clean
// shutdown.
func Run(ctx context.Context, cfg *config.ServerConfig, secret []byte, clientLogDir string, log *logrus.Logger) error {
	strategy, err := registry.ParseStrategy(cfg.Strategy)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}

	reg := registry.New[*client]()
	entry := log.WithField("component", "server")

	controlLn, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.ListenPort))
	if err != nil {
		return fmt.Errorf("server: listen on control port %d: %w", cfg.ListenPort, err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return acceptControl(gctx, controlLn, reg, strategy, secret, log, clientLogDir)
	})

	var publicLns []net.Listener
	switch strategy.Kind {
	case registry.Single:
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", strategy.Ports[0]))
		if err != nil {
			controlLn.Close()
			return fmt.Errorf("server: listen on public port %d: %w", strategy.Ports[0], err)
		}
		publicLns = append(publicLns, ln)
		g.Go(func() error { return acceptPublic(gctx, ln, reg, entry) })

	case registry.Multiple:
		for _, port := range strategy.Ports {
			port := port
			ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
			if err != nil {
				closeAll(publicLns)
				controlLn.Close()
				return fmt.Errorf("server: listen on public port %d: %w", port, err)
			}
			publicLns = append(publicLns, ln)
			g.Go(func() error { return acceptPublic(gctx, ln, reg, entry) })
		}

	case registry.Dynamic:
		// Public listeners are opened per-client at registration time
		// (acceptControl -> handleControl), not here.
	}

	entry.WithField("strategy", strategy.Kind.String()).Info("server listening")

	err = g.Wait()

	var result *multierror.Error
	if err != nil {
		result = multierror.Append(result, err)
	}
	if closeErr := controlLn.Close(); closeErr != nil {
		result = multierror.Append(result, closeErr)
	}
	for _, ln := range publicLns {
		if closeErr := ln.Close(); closeErr != nil {
			result = multierror.Append(result, closeErr)
		}
	}
	if result == nil {
		return nil
	}
	return result.ErrorOrNil()
}

func closeAll(lns []net.Listener) {
	for _, ln := range lns {
		ln.Close()
	}
}

// acceptControl accepts control connections, runs the handshake, and on
// success registers the client and drives its dispatcher until the link
// dies. Rejected or malformed handshakes just close the connection without
// ever touching the registry.
func acceptControl(ctx context.Context, ln net.Listener, reg *registry.Registry[*client], strategy registry.Strategy, secret []byte, log *logrus.Logger, clientLogDir string) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("server: accept control connection: %w", err)
			}
		}

		go handleControl(ctx, conn, reg, strategy, secret, log, clientLogDir)
	}
}

func handleControl(ctx context.Context, conn net.Conn, reg *registry.Registry[*client], strategy registry.Strategy, secret []byte, log *logrus.Logger, clientLogDir string) {
	framed := protocol.NewFramedConn(conn)
	if err := handshake.Server(framed, secret); err != nil {
		conn.Close()
		return
	}

	id, err := randomClientID()
	if err != nil {
		conn.Close()
		return
	}

	clientEntry, closer, _, err := logging.NewClientLogger(log, clientLogDir, id)
	if err != nil {
		clientEntry = log.WithField("client_id", id)
		closer = io.NopCloser(nil)
	}
	defer closer.Close()

	cs := newClient(id, framed)
	reg.Register(id, cs)
	clientEntry.Info("client registered")

	if strategy.Kind == registry.Dynamic {
		ln, port, err := dialDynamicListener(strategy)
		if err != nil {
			clientEntry.WithError(err).Warn("allocating dynamic port failed, deregistering client")
			reg.Deregister(id)
			conn.Close()
			return
		}
		cs.dynamicListener = ln
		cs.dynamicPort = port
		clientEntry.WithField("port", port).Info("dynamic port assigned")

		acceptorCtx, cancelAcceptor := context.WithCancel(ctx)
		defer cancelAcceptor()
		go acceptPublic(acceptorCtx, ln, singleClientRegistry(cs), clientEntry)
	}

	runErr := cs.run(ctx, clientEntry)

	reg.Deregister(id)
	if cs.dynamicListener != nil {
		cs.dynamicListener.Close()
		clientEntry.WithField("freed_port", cs.dynamicPort).Info("dynamic port released")
	}
	conn.Close()

	if runErr != nil {
		clientEntry.WithError(runErr).Info("client disconnected")
	}
}

// singleClientRegistry wraps one client in its own one-entry registry so a
// Dynamic client's dedicated acceptor can reuse acceptPublic's
// reg.Select()-based dispatch unchanged.
func singleClientRegistry(cs *client) *registry.Registry[*client] {
	r := registry.New[*client]()
	r.Register(cs.id, cs)
	return r
}

// dialDynamicListener opens the per-client ephemeral listener a Dynamic
// strategy assigns at registration time, from the OS ephemeral range when
// strategy carries no bounds, or from [lo, hi) otherwise.
func dialDynamicListener(strategy registry.Strategy) (net.Listener, uint16, error) {
	if strategy.Range == nil {
		ln, err := net.Listen("tcp", ":0")
		if err != nil {
			return nil, 0, fmt.Errorf("server: listen on ephemeral port: %w", err)
		}
		return ln, uint16(ln.Addr().(*net.TCPAddr).Port), nil
	}

	for port := strategy.Range.Lo; port < strategy.Range.Hi; port++ {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return ln, port, nil
		}
	}
	return nil, 0, fmt.Errorf("server: no free port in range [%d, %d)", strategy.Range.Lo, strategy.Range.Hi)
}

func randomClientID() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("server: generate client id: %w", err)
	}
	return fmt.Sprintf("%x", b), nil
}
