// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package pool

import "net"

// ReadHalf is the read direction of one pooled connection. It must be
// returned to the pool with Release once the caller is done with it;
// Release is idempotent.
type ReadHalf struct {
	id      uint64
	conn    net.Conn
	pool    *Pool
	invalid bool
	done    bool
}

// Read reads from the underlying connection.
func (r *ReadHalf) Read(p []byte) (int, error) {
	return r.conn.Read(p)
}

// Invalidate marks this half as unusable: an application-level signal (a
// read error, a protocol violation) that means the whole pair must be
// retired rather than reused, even though the socket may still look
// readable.
func (r *ReadHalf) Invalidate() {
	r.invalid = true
}

// Release returns this half to the pool's recovery bookkeeping. Safe to
// call more than once; only the first call has any effect.
func (r *ReadHalf) Release() {
	if r.done {
		return
	}
	r.done = true
	r.pool.returnRead(r.id, r.conn, !r.invalid)
}

// WriteHalf is the write direction of one pooled connection. It must be
// returned to the pool with Release once the caller is done with it;
// Release is idempotent.
type WriteHalf struct {
	id      uint64
	conn    net.Conn
	pool    *Pool
	invalid bool
	done    bool
}

// Write writes to the underlying connection.
func (w *WriteHalf) Write(p []byte) (int, error) {
	return w.conn.Write(p)
}

// Invalidate marks this half as unusable (see ReadHalf.Invalidate).
func (w *WriteHalf) Invalidate() {
	w.invalid = true
}

// Release returns this half to the pool's recovery bookkeeping. Safe to
// call more than once; only the first call has any effect.
func (w *WriteHalf) Release() {
	if w.done {
		return
	}
	w.done = true
	w.pool.returnWrite(w.id, w.conn, !w.invalid)
}
