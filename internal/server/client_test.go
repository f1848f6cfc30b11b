// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package server

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Lol3rrr/tunneler/internal/protocol"
)

func discardEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// fakeUserConn is a minimal io.WriteCloser standing in for a user socket
// installed as a stream table writer handle.
type fakeUserConn struct {
	written chan []byte
	closed  chan struct{}
}

func newFakeUserConn() *fakeUserConn {
	return &fakeUserConn{written: make(chan []byte, 8), closed: make(chan struct{})}
}

func (f *fakeUserConn) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	f.written <- cp
	return len(p), nil
}

func (f *fakeUserConn) Close() error {
	close(f.closed)
	return nil
}

func TestClient_DataFrameWritesToInstalledStream(t *testing.T) {
	serverSide, peerSide := net.Pipe()
	defer serverSide.Close()
	defer peerSide.Close()

	cs := newClient("c1", protocol.NewFramedConn(serverSide))
	user := newFakeUserConn()
	cs.streams.Set(5, user)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cs.run(ctx, discardEntry())

	peer := protocol.NewFramedConn(peerSide)
	if err := peer.WriteMessage(protocol.Header{ID: 5, Kind: protocol.Data}, []byte("payload")); err != nil {
		t.Fatalf("write data frame: %v", err)
	}

	select {
	case got := <-user.written:
		if string(got) != "payload" {
			t.Fatalf("expected %q, got %q", "payload", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for write to user socket")
	}
}

func TestClient_CloseFrameRemovesAndClosesStream(t *testing.T) {
	serverSide, peerSide := net.Pipe()
	defer serverSide.Close()
	defer peerSide.Close()

	cs := newClient("c1", protocol.NewFramedConn(serverSide))
	user := newFakeUserConn()
	cs.streams.Set(9, user)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cs.run(ctx, discardEntry())

	peer := protocol.NewFramedConn(peerSide)
	if err := peer.WriteMessage(protocol.Header{ID: 9, Kind: protocol.Close}, nil); err != nil {
		t.Fatalf("write close frame: %v", err)
	}

	select {
	case <-user.closed:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for user socket to close")
	}
	if _, ok := cs.streams.Get(9); ok {
		t.Fatal("expected stream to be removed from the table")
	}
}

func TestClient_DataFrameMissingWriterDrainsBody(t *testing.T) {
	serverSide, peerSide := net.Pipe()
	defer serverSide.Close()
	defer peerSide.Close()

	cs := newClient("c1", protocol.NewFramedConn(serverSide))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cs.run(ctx, discardEntry())

	peer := protocol.NewFramedConn(peerSide)
	if err := peer.WriteMessage(protocol.Header{ID: 42, Kind: protocol.Data}, []byte("orphaned")); err != nil {
		t.Fatalf("write data frame: %v", err)
	}

	// A subsequent frame must still be consumed, proving the receiver
	// stayed in sync instead of desynchronizing on the dropped body. On a
	// net.Pipe the write only completes once the receiver has read it.
	done := make(chan error, 1)
	go func() {
		done <- peer.WriteMessage(protocol.Header{ID: 1, Kind: protocol.Heartbeat}, nil)
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("write heartbeat frame: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("dispatcher appears desynchronized after an orphaned data frame")
	}
}

func TestClient_SendLoopWritesQueuedMessages(t *testing.T) {
	serverSide, peerSide := net.Pipe()
	defer serverSide.Close()
	defer peerSide.Close()

	cs := newClient("c1", protocol.NewFramedConn(serverSide))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cs.run(ctx, discardEntry())

	if err := cs.send.Send(protocol.Message{
		Header: protocol.Header{ID: 3, Kind: protocol.Data},
		Body:   []byte("from-server"),
	}); err != nil {
		t.Fatalf("send: %v", err)
	}

	peer := protocol.NewFramedConn(peerSide)
	hdr, err := peer.ReadHeader()
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if hdr.ID != 3 || hdr.Kind != protocol.Data {
		t.Fatalf("unexpected header: %+v", hdr)
	}
	body, err := peer.ReadBody(hdr)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != "from-server" {
		t.Fatalf("expected %q, got %q", "from-server", body)
	}
}
