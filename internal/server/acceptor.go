// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package server

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/Lol3rrr/tunneler/internal/protocol"
	"github.com/Lol3rrr/tunneler/internal/registry"
)

// acceptPublic runs one public-port acceptor loop: for every inbound user
// connection it selects a client via reg round-robin, allocates a
// stream-id, installs the user socket as that stream's writer, and spawns
// a task forwarding the user socket's reads as Data(id) frames into the
// selected client's send queue. If no client is registered, the accepted
// socket is closed immediately. One acceptor serves exactly one listener:
// Single and each port of Multiple get one each; a Dynamic client gets its
// own for the lifetime of its registration.
func acceptPublic(ctx context.Context, ln net.Listener, reg *registry.Registry[*client], log *logrus.Entry) error {
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
				return fmt.Errorf("server: accept on %s: %w", ln.Addr(), err)
			}
		}

		entry, ok := reg.Select()
		if !ok {
			conn.Close()
			continue
		}

		go attachStream(conn, entry.State, log)
	}
}

// attachStream installs conn as the writer for a freshly allocated stream-id
// on cs, then forwards conn's reads as Data(id) frames, chunked at
// protocol.ChunkSize, until EOF or a read error.
func attachStream(conn net.Conn, cs *client, log *logrus.Entry) {
	id, err := allocateStreamID(cs)
	if err != nil {
		log.WithError(err).Warn("allocating stream id, dropping connection")
		conn.Close()
		return
	}
	cs.streams.Set(id, conn)

	buf := make([]byte, protocol.ChunkSize)
	for {
		n, readErr := conn.Read(buf)
		if n > 0 {
			body := make([]byte, n)
			copy(body, buf[:n])
			sendErr := cs.send.Send(protocol.Message{
				Header: protocol.Header{ID: id, Kind: protocol.Data, Length: uint64(n)},
				Body:   body,
			})
			if sendErr != nil {
				return
			}
		}
		if readErr != nil {
			if readErr != io.EOF {
				log.WithError(readErr).WithField("stream_id", id).Debug("reading from user socket")
			}
			// If the entry is already gone, the receiver handled a Close
			// from the client first and the peer already knows.
			if removed, ok := cs.streams.Remove(id); ok {
				removed.Close()
				_ = cs.send.Send(protocol.Message{Header: protocol.Header{ID: id, Kind: protocol.Close}})
			}
			return
		}
	}
}

// allocateStreamID picks a uniformly random u32 stream-id, re-rolling on
// the reserved control id 0 or a collision against cs's stream table.
func allocateStreamID(cs *client) (uint32, error) {
	for {
		var b [4]byte
		if _, err := rand.Read(b[:]); err != nil {
			return 0, fmt.Errorf("server: read random stream id: %w", err)
		}
		id := binary.LittleEndian.Uint32(b[:])
		if id == protocol.ControlStreamID {
			continue
		}
		if _, ok := cs.streams.Get(id); !ok {
			return id, nil
		}
	}
}
