// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package client

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Lol3rrr/tunneler/internal/protocol"
	"github.com/Lol3rrr/tunneler/internal/queue"
	"github.com/Lol3rrr/tunneler/internal/streamtable"
)

// heartbeatInterval is how often the heartbeat producer enqueues a
// Heartbeat frame.
const heartbeatInterval = 15 * time.Second

// Dispatcher runs the three cooperating tasks for one control link: the
// receiver, the sender, and the heartbeat producer. One Dispatcher serves
// exactly one connection attempt; a new one is built for every reconnect.
type Dispatcher struct {
	conn   *protocol.FramedConn
	closer io.Closer
	target TargetDialer
	log    *logrus.Entry

	send    *queue.Queue[protocol.Message]
	streams *streamtable.Table[io.ReadWriteCloser]
}

// NewDispatcher builds a Dispatcher for one already-handshaken control
// link. closer is the raw transport backing conn; Run closes it as soon as
// any of the three cooperating tasks fails, so a receiver blocked on a read
// is never left waiting for a network-level event once its siblings have
// already given up.
func NewDispatcher(conn *protocol.FramedConn, closer io.Closer, target TargetDialer, log *logrus.Entry) *Dispatcher {
	return &Dispatcher{
		conn:    conn,
		closer:  closer,
		target:  target,
		log:     log,
		send:    queue.New[protocol.Message](),
		streams: streamtable.New[io.ReadWriteCloser](),
	}
}

// Run blocks until the control link dies (any task returns an error) or
// ctx is canceled. It always returns a non-nil error on a dead link so the
// caller's supervisor loop knows to reconnect. A canceled ctx also ends it
// with a non-nil error: whichever task stopped first, which is either
// context.Canceled or the receiver's or sender's error from the teardown.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.receive(gctx) })
	g.Go(func() error { return d.sendLoop(gctx) })
	g.Go(func() error { return d.heartbeatLoop(gctx) })

	// The receiver/sender block on I/O, not on ctx; unblock them as soon as
	// any task in the group fails (or the caller cancels) by tearing down
	// the shared connection and queue. Closing the transport is what
	// actually unblocks a receiver parked in a blocking read.
	go func() {
		<-gctx.Done()
		d.send.Close()
		d.closer.Close()
	}()

	return g.Wait()
}

func (d *Dispatcher) receive(ctx context.Context) error {
	for {
		hdr, err := d.conn.ReadHeader()
		if err != nil {
			return fmt.Errorf("client: receive: %w", err)
		}

		switch hdr.Kind {
		case protocol.Heartbeat:
			if err := d.conn.Drain(hdr.Length); err != nil {
				return fmt.Errorf("client: receive: drain heartbeat: %w", err)
			}

		case protocol.Close:
			if err := d.conn.Drain(hdr.Length); err != nil {
				return fmt.Errorf("client: receive: drain close: %w", err)
			}
			if handle, ok := d.streams.Remove(hdr.ID); ok {
				handle.Close()
			}

		case protocol.Data:
			body, err := d.conn.ReadBody(hdr)
			if err != nil {
				return fmt.Errorf("client: receive: read data body: %w", err)
			}
			d.handleData(hdr.ID, body)

		default:
			d.log.WithField("kind", hdr.Kind.String()).Warn("unknown frame kind, draining body")
			if err := d.conn.Drain(hdr.Length); err != nil {
				return fmt.Errorf("client: receive: drain unknown kind: %w", err)
			}
		}
	}
}

// handleData routes a Data frame's body: an existing stream gets the body
// written straight through; a new stream-id dials the target and spawns a
// responder before writing the first body.
func (d *Dispatcher) handleData(id uint32, body []byte) {
	if handle, ok := d.streams.Get(id); ok {
		if _, err := handle.Write(body); err != nil {
			d.log.WithError(err).WithField("stream_id", id).Warn("writing to target, dropping stream")
			d.dropStream(id)
		}
		return
	}

	conn, err := d.target()
	if err != nil {
		// The stream is silently dropped; a later Close from the peer for
		// this id is a no-op.
		d.log.WithError(err).WithField("stream_id", id).Warn("dialing target failed, dropping stream")
		return
	}

	d.streams.Set(id, conn)
	go respond(id, conn, d.streams, d.send, d.log)

	if _, err := conn.Write(body); err != nil {
		d.log.WithError(err).WithField("stream_id", id).Warn("writing first frame to target, dropping stream")
		d.dropStream(id)
	}
}

// dropStream tears a stream down after a local write failure and tells the
// server, so the user socket on the other side doesn't linger until the
// user gives up on it.
func (d *Dispatcher) dropStream(id uint32) {
	if removed, ok := d.streams.Remove(id); ok {
		removed.Close()
		_ = d.send.Send(protocol.Message{Header: protocol.Header{ID: id, Kind: protocol.Close}})
	}
}

func (d *Dispatcher) sendLoop(ctx context.Context) error {
	for {
		msg, err := d.send.Recv()
		if err != nil {
			return fmt.Errorf("client: send queue closed: %w", err)
		}
		if err := d.conn.WriteMessage(msg.Header, msg.Body); err != nil {
			return fmt.Errorf("client: send: %w", err)
		}
	}
}

func (d *Dispatcher) heartbeatLoop(ctx context.Context) error {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := d.send.Send(protocol.Message{Header: protocol.Header{
				ID:   protocol.ControlStreamID,
				Kind: protocol.Heartbeat,
			}})
			if err != nil {
				return fmt.Errorf("client: heartbeat producer: %w", err)
			}
		}
	}
}
