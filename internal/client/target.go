// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

// Package client implements the tunneler client dispatcher: the receiver,
// sender, and heartbeat producer tasks that run per control link, plus the
// supervisor loop that reconnects with exponential backoff on any fatal
// task error.
package client

import (
	"fmt"
	"io"
	"net"

	"github.com/Lol3rrr/tunneler/internal/pool"
)

// TargetDialer opens one new connection to the forwarding target,
// returned as a full-duplex handle the dispatcher can both read and write
// and eventually close.
type TargetDialer func() (io.ReadWriteCloser, error)

// NewDirectDialer dials addr directly for every new stream, with no
// pooling.
func NewDirectDialer(addr string) TargetDialer {
	return func() (io.ReadWriteCloser, error) {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("client: dial target %s: %w", addr, err)
		}
		return conn, nil
	}
}

// NewPooledDialer draws read/write halves from p for every new stream.
// Read/write errors invalidate the corresponding half so the pool never
// reoffers a half-broken pair.
func NewPooledDialer(p *pool.Pool) TargetDialer {
	return func() (io.ReadWriteCloser, error) {
		read, write, err := p.Get()
		if err != nil {
			return nil, fmt.Errorf("client: get pooled target connection: %w", err)
		}
		return &pooledConn{read: read, write: write}, nil
	}
}

// pooledConn adapts a pool.ReadHalf/pool.WriteHalf pair to io.ReadWriteCloser,
// invalidating the relevant half on any I/O error before releasing it back
// to the pool on Close.
type pooledConn struct {
	read  *pool.ReadHalf
	write *pool.WriteHalf
}

func (c *pooledConn) Read(p []byte) (int, error) {
	n, err := c.read.Read(p)
	if err != nil {
		c.read.Invalidate()
	}
	return n, err
}

func (c *pooledConn) Write(p []byte) (int, error) {
	n, err := c.write.Write(p)
	if err != nil {
		c.write.Invalidate()
	}
	return n, err
}

func (c *pooledConn) Close() error {
	c.read.Release()
	c.write.Release()
	return nil
}
