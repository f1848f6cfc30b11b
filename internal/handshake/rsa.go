// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package handshake

import "math/big"

// keyBits is the RSA modulus size this wire format is defined for. The
// fixed 256-byte n-prefix in the Key frame payload is only correct for
// 2048-bit keys; do not change keyBits without also changing nByteLen and
// every peer's wire format in lockstep.
const keyBits = 2048

// nByteLen is the fixed byte length of the serialized modulus: 2048 bits.
const nByteLen = keyBits / 8

// leBytes returns the little-endian byte representation of n with no
// leading (i.e. trailing, in LE) zero bytes beyond what n actually needs.
func leBytes(n *big.Int) []byte {
	b := n.Bytes() // big-endian, minimal length, no leading zero byte
	reverseBytes(b)
	return b
}

// leBytesFixed returns the little-endian representation of n padded with
// trailing zero bytes up to size. n must fit in size bytes.
func leBytesFixed(n *big.Int, size int) []byte {
	b := leBytes(n)
	if len(b) > size {
		panic("handshake: value does not fit in fixed byte width")
	}
	out := make([]byte, size)
	copy(out, b)
	return out
}

// bigIntFromLE interprets b as a little-endian unsigned integer.
func bigIntFromLE(b []byte) *big.Int {
	be := make([]byte, len(b))
	copy(be, b)
	reverseBytes(be)
	return new(big.Int).SetBytes(be)
}

func reverseBytes(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
