// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package server

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Lol3rrr/tunneler/internal/protocol"
	"github.com/Lol3rrr/tunneler/internal/queue"
	"github.com/Lol3rrr/tunneler/internal/streamtable"
)

// client holds the per-authenticated-client state the server dispatcher and
// every public-port acceptor share: the framed control link, the outbound
// send queue draining to it, and the stream table mapping a user
// connection's stream-id to the writer side of that user socket. The
// server owns every user socket in this table; the client owns the
// corresponding target socket on its own side of the tunnel.
type client struct {
	id   string
	conn *protocol.FramedConn

	send    *queue.Queue[protocol.Message]
	streams *streamtable.Table[io.WriteCloser]

	// dynamicListener is non-nil only when this client was registered under
	// a Dynamic strategy; it is torn down on deregistration.
	dynamicListener io.Closer
	dynamicPort     uint16
}

func newClient(id string, conn *protocol.FramedConn) *client {
	return &client{
		id:      id,
		conn:    conn,
		send:    queue.New[protocol.Message](),
		streams: streamtable.New[io.WriteCloser](),
	}
}

// run drives this client's receiver and sender tasks until the link dies or
// ctx is canceled. The server side never produces heartbeats itself, it
// only consumes the client's as no-ops.
func (c *client) run(ctx context.Context, log *logrus.Entry) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return c.receive(gctx, log) })
	g.Go(func() error { return c.sendLoop(gctx) })

	go func() {
		<-gctx.Done()
		c.send.Close()
	}()

	return g.Wait()
}

func (c *client) receive(ctx context.Context, log *logrus.Entry) error {
	for {
		hdr, err := c.conn.ReadHeader()
		if err != nil {
			return fmt.Errorf("server: receive: %w", err)
		}

		switch hdr.Kind {
		case protocol.Heartbeat:
			if err := c.conn.Drain(hdr.Length); err != nil {
				return fmt.Errorf("server: receive: drain heartbeat: %w", err)
			}

		case protocol.Close:
			if err := c.conn.Drain(hdr.Length); err != nil {
				return fmt.Errorf("server: receive: drain close: %w", err)
			}
			if handle, ok := c.streams.Remove(hdr.ID); ok {
				handle.Close()
			}

		case protocol.Data:
			// ReadBody consumes exactly hdr.Length bytes whether or not a
			// writer exists for this id, so a missing writer (an
			// out-of-order Data racing ahead of a Close) still leaves the
			// framed connection in sync for the next header.
			body, err := c.conn.ReadBody(hdr)
			if err != nil {
				return fmt.Errorf("server: receive: read data body: %w", err)
			}
			if handle, ok := c.streams.Get(hdr.ID); ok {
				if _, err := handle.Write(body); err != nil {
					log.WithError(err).WithField("stream_id", hdr.ID).Warn("writing to user socket, dropping stream")
					if removed, ok := c.streams.Remove(hdr.ID); ok {
						removed.Close()
						_ = c.send.Send(protocol.Message{Header: protocol.Header{ID: hdr.ID, Kind: protocol.Close}})
					}
				}
			}

		default:
			log.WithField("kind", hdr.Kind.String()).Warn("unknown frame kind, draining body")
			if err := c.conn.Drain(hdr.Length); err != nil {
				return fmt.Errorf("server: receive: drain unknown kind: %w", err)
			}
		}
	}
}

func (c *client) sendLoop(ctx context.Context) error {
	for {
		msg, err := c.send.Recv()
		if err != nil {
			return fmt.Errorf("server: send queue closed: %w", err)
		}
		if err := c.conn.WriteMessage(msg.Header, msg.Body); err != nil {
			return fmt.Errorf("server: send: %w", err)
		}
	}
}
