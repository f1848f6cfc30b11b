// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

// Package pool implements the client's optional paired connection pool to
// its forwarding target: up to maxCons dialed TCP sockets, handed out as
// independently usable read and write halves that are only recomposed into
// the available set once both halves have been returned and both reported
// themselves valid.
package pool

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
)

// Dialer opens one new connection to the pool's fixed target.
type Dialer func() (net.Conn, error)

// Pool hands out paired ReadHalf/WriteHalf connections to a fixed target,
// recomposing a pair into the available set only when both halves are
// reported back valid.
type Pool struct {
	dial    Dialer
	maxCons int

	mu              sync.Mutex
	available       []pair
	recoveredReads  map[uint64]net.Conn
	recoveredWrites map[uint64]net.Conn
	errored         map[uint64]struct{}
}

type pair struct {
	id   uint64
	conn net.Conn
}

// New creates a Pool that dials via dial, keeping up to maxCons idle
// connections in its available set.
func New(dial Dialer, maxCons int) *Pool {
	return &Pool{
		dial:            dial,
		maxCons:         maxCons,
		recoveredReads:  make(map[uint64]net.Conn),
		recoveredWrites: make(map[uint64]net.Conn),
		errored:         make(map[uint64]struct{}),
	}
}

// Fill dials up to maxCons connections ahead of time, stopping early (and
// returning the dial error) on the first failure. Already-dialed
// connections are kept in the available set regardless.
func (p *Pool) Fill() error {
	for p.AvailableConnections() < p.maxCons {
		conn, err := p.dial()
		if err != nil {
			return fmt.Errorf("pool: fill: %w", err)
		}
		p.mu.Lock()
		p.available = append(p.available, pair{id: randomID(), conn: conn})
		p.mu.Unlock()
	}
	return nil
}

// Get returns a read half and a write half of one connection to the
// target: either a pooled, previously-returned pair, or a freshly dialed
// one if the available set is empty.
func (p *Pool) Get() (*ReadHalf, *WriteHalf, error) {
	p.mu.Lock()
	if len(p.available) > 0 {
		pr := p.available[0]
		p.available = p.available[1:]
		p.mu.Unlock()
		return &ReadHalf{id: pr.id, conn: pr.conn, pool: p}, &WriteHalf{id: pr.id, conn: pr.conn, pool: p}, nil
	}
	p.mu.Unlock()

	conn, err := p.dial()
	if err != nil {
		return nil, nil, fmt.Errorf("pool: dial: %w", err)
	}
	id := randomID()
	return &ReadHalf{id: id, conn: conn, pool: p}, &WriteHalf{id: id, conn: conn, pool: p}, nil
}

// AvailableConnections reports how many idle pairs are ready to be handed
// out without dialing.
func (p *Pool) AvailableConnections() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}

// MaxConnections returns the configured pool size.
func (p *Pool) MaxConnections() int {
	return p.maxCons
}

// returnRead is called by ReadHalf.Release. It implements the same
// recovery state machine as returnWrite, with the read/write roles
// swapped, so the pair is only reoffered once both halves are back and
// both are valid.
func (p *Pool) returnRead(id uint64, conn net.Conn, valid bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recover(id, valid, conn, p.recoveredReads, p.recoveredWrites)
}

func (p *Pool) returnWrite(id uint64, conn net.Conn, valid bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recover(id, valid, conn, p.recoveredWrites, p.recoveredReads)
}

// recover must be called with p.mu held. same is the map the returning
// half's id is recorded in if the other half hasn't reported yet; other is
// the map checked for the other half having already reported.
func (p *Pool) recover(id uint64, valid bool, conn net.Conn, same, other map[uint64]net.Conn) {
	if _, ok := other[id]; ok {
		delete(other, id)
		if !valid {
			// The other half already came back valid and is discarded along
			// with this one.
			return
		}
		if len(p.available) >= p.maxCons {
			// The available set is already full; the surplus pair is closed
			// rather than kept idle.
			conn.Close()
			return
		}
		p.available = append(p.available, pair{id: id, conn: conn})
		return
	}

	if _, ok := p.errored[id]; ok {
		// The other half already came back invalid; this half (valid or
		// not) is discarded and the errored entry is cleared, capping the
		// map at the number of pairs currently mid-return.
		delete(p.errored, id)
		return
	}

	if !valid {
		p.errored[id] = struct{}{}
		return
	}

	same[id] = conn
}

func randomID() uint64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}
