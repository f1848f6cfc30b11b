// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package protocol

import (
	"errors"
	"fmt"
	"io"
)

// FramedConn wraps a net.Conn-like io.ReadWriter and exposes the exact-byte
// primitives the multiplexed protocol is built on: the wire always knows
// the exact number of bytes that follow a header, so every read or write is
// expressed as "exactly n bytes", never as partial-frame reassembly.
type FramedConn struct {
	rw io.ReadWriter
}

// NewFramedConn wraps rw (typically a net.Conn) for framed I/O.
func NewFramedConn(rw io.ReadWriter) *FramedConn {
	return &FramedConn{rw: rw}
}

// ReadHeader reads the next 13-byte frame header.
func (c *FramedConn) ReadHeader() (Header, error) {
	var buf [HeaderSize]byte
	if err := c.ReadExact(buf[:]); err != nil {
		return Header{}, err
	}
	return DeserializeHeader(buf)
}

// ReadExact reads exactly len(buf) bytes, or fails with ErrConnectionReset on
// EOF (including io.ErrUnexpectedEOF, which means the peer hung up partway
// through a frame) and a wrapped I/O error otherwise.
func (c *FramedConn) ReadExact(buf []byte) error {
	_, err := io.ReadFull(c.rw, buf)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrConnectionReset
		}
		return fmt.Errorf("protocol: read_exact: %w", err)
	}
	return nil
}

// WriteAll writes exactly len(buf) bytes, looping over short writes until
// the whole buffer has been written.
func (c *FramedConn) WriteAll(buf []byte) error {
	written := 0
	for written < len(buf) {
		n, err := c.rw.Write(buf[written:])
		if n > 0 {
			written += n
		}
		if err != nil {
			return fmt.Errorf("protocol: write_all: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("protocol: write_all: zero-length write with no error")
		}
	}
	return nil
}

// Drain discards exactly n bytes. It is used when a header parsed cleanly
// but its body can't be routed (unknown kind, or a stream-id with no
// matching writer), keeping the framed connection in sync for the next
// header instead of leaving n unread bytes in front of it.
func (c *FramedConn) Drain(n uint64) error {
	_, err := io.CopyN(io.Discard, c.rw, int64(n))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return ErrConnectionReset
		}
		return fmt.Errorf("protocol: drain: %w", err)
	}
	return nil
}

// WriteMessage serializes and writes a full frame (header + body).
func (c *FramedConn) WriteMessage(h Header, body []byte) error {
	h.Length = uint64(len(body))
	msg, err := SerializeMessage(Message{Header: h, Body: body})
	if err != nil {
		return err
	}
	return c.WriteAll(msg)
}

// ReadBody reads exactly h.Length bytes following a header already consumed
// by ReadHeader.
func (c *FramedConn) ReadBody(h Header) ([]byte, error) {
	body := make([]byte, h.Length)
	if err := c.ReadExact(body); err != nil {
		return nil, err
	}
	return body, nil
}
