// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package client

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/Lol3rrr/tunneler/internal/protocol"
	"github.com/Lol3rrr/tunneler/internal/queue"
	"github.com/Lol3rrr/tunneler/internal/streamtable"
)

// respond copies conn -> send as Data(id) frames, chunked at
// protocol.ChunkSize bytes. On EOF or a read error it removes the stream's
// writer, emits Close(id), and returns.
func respond(id uint32, conn io.ReadWriteCloser, streams *streamtable.Table[io.ReadWriteCloser], send *queue.Queue[protocol.Message], log *logrus.Entry) {
	buf := make([]byte, protocol.ChunkSize)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			body := make([]byte, n)
			copy(body, buf[:n])
			sendErr := send.Send(protocol.Message{
				Header: protocol.Header{ID: id, Kind: protocol.Data, Length: uint64(n)},
				Body:   body,
			})
			if sendErr != nil {
				// The outbound queue is closed: the control link is already
				// dying, so there's nothing useful left to notify the peer.
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				log.WithError(err).WithField("stream_id", id).Debug("reading from target")
			}
			// A missing entry means the receiver already handled a Close
			// from the server, so the peer needs no notification.
			if removed, ok := streams.Remove(id); ok {
				removed.Close()
				_ = send.Send(protocol.Message{Header: protocol.Header{ID: id, Kind: protocol.Close}})
			}
			return
		}
	}
}
