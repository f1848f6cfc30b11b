// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

// Package handshake implements the RSA challenge-response exchange that
// authenticates a client control link before any Connect/Data frame is
// accepted:
//
//  1. server generates a fresh RSA-2048 keypair and sends n‖e as a Key frame
//  2. client encrypts the shared secret (the pre-shared key file contents)
//     with the server's public key and sends it back as a Verify frame
//  3. server decrypts, compares the result against its own copy of the
//     secret in constant time; on a match it sends an empty Acknowledge
//     frame, on a mismatch it sends nothing and closes the connection
//  4. both sides abort on any mismatch or malformed frame
package handshake

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"fmt"
	"math/big"

	"github.com/Lol3rrr/tunneler/internal/protocol"
)

// ErrRejected is returned by both Server and Client when the shared secret
// did not match: Server returns it after deciding not to send Acknowledge;
// Client returns it when the server closes the connection instead of
// sending Acknowledge.
var ErrRejected = fmt.Errorf("handshake: server rejected shared secret")

// GenerateKeypair creates a fresh RSA-2048 keypair for one handshake. A new
// keypair per connection means a compromised secret can't be replayed
// against a recorded transcript of a different session.
func GenerateKeypair() (*rsa.PrivateKey, error) {
	priv, err := rsa.GenerateKey(rand.Reader, keyBits)
	if err != nil {
		return nil, fmt.Errorf("handshake: generate keypair: %w", err)
	}
	return priv, nil
}

// encodePublicKey serializes pub as n (little-endian, fixed nByteLen bytes)
// followed by e (little-endian, minimal length).
func encodePublicKey(pub *rsa.PublicKey) []byte {
	n := leBytesFixed(pub.N, nByteLen)
	e := leBytes(big.NewInt(int64(pub.E)))
	out := make([]byte, 0, len(n)+len(e))
	out = append(out, n...)
	out = append(out, e...)
	return out
}

// decodePublicKey parses the n‖e payload produced by encodePublicKey.
func decodePublicKey(payload []byte) (*rsa.PublicKey, error) {
	if len(payload) <= nByteLen {
		return nil, fmt.Errorf("handshake: key payload too short (%d bytes)", len(payload))
	}
	n := bigIntFromLE(payload[:nByteLen])
	e := bigIntFromLE(payload[nByteLen:])
	if !e.IsInt64() {
		return nil, fmt.Errorf("handshake: public exponent out of range")
	}
	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// Server runs the server side of the handshake over conn. secret is this
// server's copy of the pre-shared key, loaded by the caller from the key
// file (internal/keyfile). Server returns nil only once the client has
// proven knowledge of secret; any other outcome means the caller must
// close the underlying connection without accepting further frames.
func Server(conn *protocol.FramedConn, secret []byte) error {
	priv, err := GenerateKeypair()
	if err != nil {
		return err
	}

	keyPayload := encodePublicKey(&priv.PublicKey)
	if err := conn.WriteMessage(protocol.Header{
		ID:     protocol.ControlStreamID,
		Kind:   protocol.Key,
		Length: uint64(len(keyPayload)),
	}, keyPayload); err != nil {
		return fmt.Errorf("handshake: send key frame: %w", err)
	}

	hdr, err := conn.ReadHeader()
	if err != nil {
		return fmt.Errorf("handshake: read verify header: %w", err)
	}
	if hdr.Kind != protocol.Verify {
		_ = conn.Drain(hdr.Length)
		return fmt.Errorf("handshake: expected verify frame, got %s", hdr.Kind)
	}
	cipherText, err := conn.ReadBody(hdr)
	if err != nil {
		return fmt.Errorf("handshake: read verify body: %w", err)
	}

	plain, decErr := rsa.DecryptPKCS1v15(rand.Reader, priv, cipherText)

	ok := decErr == nil && subtle.ConstantTimeCompare(plain, secret) == 1
	if !ok {
		// On mismatch the server closes the connection without sending
		// Acknowledge at all; there is nothing to tell an unauthenticated
		// peer.
		return ErrRejected
	}

	if err := conn.WriteMessage(protocol.Header{
		ID:     protocol.ControlStreamID,
		Kind:   protocol.Acknowledge,
		Length: 0,
	}, nil); err != nil {
		return fmt.Errorf("handshake: send acknowledge frame: %w", err)
	}
	return nil
}

// Client runs the client side of the handshake over conn, proving
// knowledge of secret to the server without ever sending it in the clear.
// Client returns nil only once the server has sent a successful
// Acknowledge frame.
func Client(conn *protocol.FramedConn, secret []byte) error {
	hdr, err := conn.ReadHeader()
	if err != nil {
		return fmt.Errorf("handshake: read key header: %w", err)
	}
	if hdr.Kind != protocol.Key {
		_ = conn.Drain(hdr.Length)
		return fmt.Errorf("handshake: expected key frame, got %s", hdr.Kind)
	}
	keyPayload, err := conn.ReadBody(hdr)
	if err != nil {
		return fmt.Errorf("handshake: read key body: %w", err)
	}
	pub, err := decodePublicKey(keyPayload)
	if err != nil {
		return err
	}

	cipherText, err := rsa.EncryptPKCS1v15(rand.Reader, pub, secret)
	if err != nil {
		return fmt.Errorf("handshake: encrypt shared secret: %w", err)
	}

	if err := conn.WriteMessage(protocol.Header{
		ID:     protocol.ControlStreamID,
		Kind:   protocol.Verify,
		Length: uint64(len(cipherText)),
	}, cipherText); err != nil {
		return fmt.Errorf("handshake: send verify frame: %w", err)
	}

	// On mismatch the server never sends Acknowledge, it just closes the
	// connection. A reset here means rejection, not a transport failure
	// worth distinguishing from it.
	ackHdr, err := conn.ReadHeader()
	if err != nil {
		return ErrRejected
	}
	if ackHdr.Kind != protocol.Acknowledge {
		_ = conn.Drain(ackHdr.Length)
		return fmt.Errorf("handshake: expected acknowledge frame, got %s", ackHdr.Kind)
	}
	if _, err := conn.ReadBody(ackHdr); err != nil {
		return fmt.Errorf("handshake: read acknowledge body: %w", err)
	}
	return nil
}
