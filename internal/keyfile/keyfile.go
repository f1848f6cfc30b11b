// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

// Package keyfile loads, saves, and generates the pre-shared secret used by
// the RSA handshake. The on-disk format is a base64-encoded arbitrary byte
// string; key-gen produces a 128-byte pseudo-random secret.
package keyfile

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
)

// DefaultSize is the byte length of a generated secret: two bytes kept per
// iteration, across 64 iterations.
const DefaultSize = 128

const filePerm = 0o600

// Load reads the key file at path and base64-decodes its contents.
func Load(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyfile: read %s: %w", path, err)
	}
	secret, err := base64.StdEncoding.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("keyfile: decode %s: %w", path, err)
	}
	return secret, nil
}

// Save base64-encodes secret and writes it to path, creating parent
// directories as needed. The file is written user-read/write only: it is a
// credential, not ordinary output.
func Save(path string, secret []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("keyfile: create directory for %s: %w", path, err)
	}
	encoded := base64.StdEncoding.EncodeToString(secret)
	if err := os.WriteFile(path, []byte(encoded), filePerm); err != nil {
		return fmt.Errorf("keyfile: write %s: %w", path, err)
	}
	return nil
}

// Generate produces size bytes of pseudo-random output by repeatedly
// hashing an OS-random 64-bit word chained with a fresh OS-random word each
// round, keeping two bytes of the hash per round. Each round's hash seeds
// the next: the chain itself is the generator, the OS RNG re-keys it every
// step.
func Generate(size int) ([]byte, error) {
	rounds := (size + 1) / 2
	out := make([]byte, 0, rounds*2)

	seed, err := randomUint64()
	if err != nil {
		return nil, err
	}

	for i := 0; i < rounds; i++ {
		fresh, err := randomUint64()
		if err != nil {
			return nil, err
		}

		h := fnv.New64a()
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], seed)
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], fresh)
		h.Write(buf[:])
		sum := h.Sum64()

		var sumBuf [8]byte
		binary.LittleEndian.PutUint64(sumBuf[:], sum)
		out = append(out, sumBuf[1], sumBuf[5])

		seed = sum
	}

	return out[:size], nil
}

func randomUint64() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("keyfile: read OS randomness: %w", err)
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
