// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package client

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Lol3rrr/tunneler/internal/handshake"
	"github.com/Lol3rrr/tunneler/internal/protocol"
)

// maxBackoff caps the exponential reconnect delay: an unbounded doubling
// eventually overflows time.Duration and serves no one waiting on a tunnel
// that's been down for hours.
const maxBackoff = 2 * time.Minute

// Supervisor dials serverAddr, authenticates, and runs a Dispatcher for as
// long as the link survives, reconnecting with exponential backoff plus
// jitter after every failure. It only returns when ctx is canceled.
func Supervisor(ctx context.Context, serverAddr string, secret []byte, target TargetDialer, log *logrus.Entry) error {
	attempts := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn, err := dialAndAuthenticate(serverAddr, secret)
		if err != nil {
			log.WithError(err).WithField("attempt", attempts+1).Warn("connect failed, backing off")
			if !sleepBackoff(ctx, attempts) {
				return ctx.Err()
			}
			attempts++
			continue
		}

		log.Info("control link established")
		attempts = 0

		dispatcher := NewDispatcher(conn.FramedConn, conn.raw, target, log)
		runErr := dispatcher.Run(ctx)
		conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(runErr).Warn("control link lost, reconnecting")
	}
}

// connWithRaw pairs a protocol.FramedConn with the net.Conn it wraps, so
// the supervisor can close the transport once a dispatch attempt ends.
type connWithRaw struct {
	*protocol.FramedConn
	raw net.Conn
}

func (c *connWithRaw) Close() error { return c.raw.Close() }

func dialAndAuthenticate(serverAddr string, secret []byte) (*connWithRaw, error) {
	raw, err := net.Dial("tcp", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("client: dial server %s: %w", serverAddr, err)
	}

	framed := protocol.NewFramedConn(raw)
	if err := handshake.Client(framed, secret); err != nil {
		raw.Close()
		return nil, fmt.Errorf("client: handshake: %w", err)
	}

	return &connWithRaw{FramedConn: framed, raw: raw}, nil
}

// sleepBackoff waits 2^attempts seconds plus [0, 1000)ms of jitter, or
// returns false early if ctx is canceled first. The exponent is clamped so
// the doubling can never overflow time.Duration into a negative delay.
func sleepBackoff(ctx context.Context, attempts int) bool {
	if attempts > 10 {
		attempts = 10
	}
	delay := time.Duration(math.Pow(2, float64(attempts))) * time.Second
	if delay > maxBackoff {
		delay = maxBackoff
	}
	delay += time.Duration(rand.Intn(1000)) * time.Millisecond

	select {
	case <-ctx.Done():
		return false
	case <-time.After(delay):
		return true
	}
}
