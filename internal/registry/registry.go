// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package registry

import "sync"

// Client is one authenticated control link, tracked by the registry.
// State is opaque to the registry: the server package fills it with
// whatever a dispatcher needs to reach that client again (its send queue,
// its stream table, its assigned dynamic port).
type Client[T any] struct {
	ID    string
	State T
}

// Registry is the ordered list of authenticated clients plus a monotonic
// selection counter. The counter never resets, so Select keeps advancing
// round-robin even as clients register and deregister around it; perfect
// fairness only holds for a fixed client set.
type Registry[T any] struct {
	mu      sync.Mutex
	clients []*Client[T]
	byID    map[string]int // id -> index into clients
	counter uint64
}

// New creates an empty Registry.
func New[T any]() *Registry[T] {
	return &Registry[T]{byID: make(map[string]int)}
}

// Register adds a new client under id, replacing any prior entry with the
// same id. Returns the stored Client record.
func (r *Registry[T]) Register(id string, state T) *Client[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := &Client[T]{ID: id, State: state}
	if idx, ok := r.byID[id]; ok {
		r.clients[idx] = c
		return c
	}
	r.byID[id] = len(r.clients)
	r.clients = append(r.clients, c)
	return c
}

// Deregister removes the client with id, if present. Any frame already in
// flight for that client's stream-ids is the caller's problem to discard.
func (r *Registry[T]) Deregister(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx, ok := r.byID[id]
	if !ok {
		return false
	}
	last := len(r.clients) - 1
	r.clients[idx] = r.clients[last]
	r.byID[r.clients[idx].ID] = idx
	r.clients = r.clients[:last]
	delete(r.byID, id)
	return true
}

// Select picks the next client round-robin (counter mod len). Returns
// false if the registry is empty.
func (r *Registry[T]) Select() (*Client[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.clients) == 0 {
		return nil, false
	}
	idx := int(r.counter % uint64(len(r.clients)))
	r.counter++
	return r.clients[idx], true
}

// Len returns the number of registered clients.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Get returns the client registered under id, if any.
func (r *Registry[T]) Get(id string) (*Client[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return r.clients[idx], true
}
