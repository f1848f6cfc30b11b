// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

// Package queue implements the unbounded message channel backing every
// per-link outbound send queue: Send/Recv with a sticky closed state, safe
// for many producers (the receiver, the heartbeat producer, per-stream
// readers) and the single sender goroutine draining to the wire.
package queue

import (
	"errors"
	"sync"
)

// ErrClosed is returned by Send once the queue has been closed, and by Recv
// after every buffered message has been drained from a closed queue.
var ErrClosed = errors.New("queue: closed")

// Queue is an unbounded multi-producer single-consumer message queue.
// Closure is sticky: once Close has been called, Recv keeps returning
// ErrClosed forever after the backlog (messages sent before Close) has
// drained. Unbounded growth is intentional: a receiver task may need to
// enqueue a reply onto the very link whose sender is the consumer of this
// same queue, so Send must never block on queue capacity.
type Queue[T any] struct {
	mu     sync.Mutex
	cond   sync.Cond
	items  []T
	closed bool
}

// New creates an empty, open Queue.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.cond.L = &q.mu
	return q
}

// Send appends msg to the queue, waking any goroutine blocked in Recv.
// Returns ErrClosed if the queue has already been closed; the message is
// dropped in that case.
func (q *Queue[T]) Send(msg T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, msg)
	q.cond.Signal()
	return nil
}

// Recv blocks until a message is available or the queue is closed and
// drained. Messages sent before Close are always delivered before ErrClosed
// is returned.
func (q *Queue[T]) Recv() (T, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		var zero T
		return zero, ErrClosed
	}
	msg := q.items[0]
	q.items[0] = *new(T) // drop reference so the backing array can be GC'd
	q.items = q.items[1:]
	return msg, nil
}

// Close marks the queue closed. Already-buffered messages are still
// delivered by Recv; after they are drained, Recv returns ErrClosed forever.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	q.cond.Broadcast()
}

// Len reports the number of buffered, undelivered messages. Diagnostic only.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
