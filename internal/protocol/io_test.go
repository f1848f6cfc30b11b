// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package protocol

import (
	"bytes"
	"testing"
)

func TestFramedConn_WriteMessageReadHeaderReadBody(t *testing.T) {
	var buf bytes.Buffer
	conn := NewFramedConn(&buf)

	body := []byte("payload bytes")
	if err := conn.WriteMessage(Header{ID: 5, Kind: Data}, body); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	h, err := conn.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if h.ID != 5 || h.Kind != Data || h.Length != uint64(len(body)) {
		t.Fatalf("unexpected header: %+v", h)
	}

	got, err := conn.ReadBody(h)
	if err != nil {
		t.Fatalf("ReadBody: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Fatalf("expected %q, got %q", body, got)
	}
}

func TestFramedConn_ReadExact_ConnectionReset(t *testing.T) {
	buf2 := bytes.NewBuffer([]byte{1, 2})
	conn := NewFramedConn(buf2)
	buf := make([]byte, 5)
	err := conn.ReadExact(buf)
	if err != ErrConnectionReset {
		t.Fatalf("expected ErrConnectionReset, got %v", err)
	}
}

func TestFramedConn_Drain(t *testing.T) {
	var buf bytes.Buffer
	conn := NewFramedConn(&buf)

	if err := conn.WriteMessage(Header{ID: 1, Kind: Data}, []byte("0123456789")); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}

	h, err := conn.ReadHeader()
	if err != nil {
		t.Fatalf("ReadHeader: %v", err)
	}
	if err := conn.Drain(h.Length); err != nil {
		t.Fatalf("Drain: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected buffer fully drained, %d bytes remain", buf.Len())
	}
}

func TestFramedConn_WriteAll_ShortWriteLoop(t *testing.T) {
	sw := &shortWriter{max: 3}
	conn := NewFramedConn(sw)
	payload := bytes.Repeat([]byte{0xAB}, 10)

	if err := conn.WriteAll(payload); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}
	if !bytes.Equal(sw.written, payload) {
		t.Fatalf("expected all bytes written despite short writes")
	}
}

// shortWriter writes at most max bytes per call, simulating a socket that
// accepts partial writes under backpressure.
type shortWriter struct {
	max     int
	written []byte
}

func (w *shortWriter) Write(p []byte) (int, error) {
	n := len(p)
	if n > w.max {
		n = w.max
	}
	w.written = append(w.written, p[:n]...)
	return n, nil
}

func (w *shortWriter) Read(p []byte) (int, error) { return 0, bytes.ErrTooLarge }
