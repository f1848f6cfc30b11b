// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package protocol

import "encoding/binary"

// Header is the fixed 13-byte frame header: a little-endian u32 stream-id, a
// one-byte MessageType, and a little-endian u64 body length.
type Header struct {
	ID     uint32
	Kind   MessageType
	Length uint64
}

// SerializeHeader writes h's wire representation into a fresh 13-byte array.
// No endianness is machine-dependent: every field is little-endian on the
// wire regardless of host byte order.
func SerializeHeader(h Header) [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], h.ID)
	buf[4] = byte(h.Kind)
	binary.LittleEndian.PutUint64(buf[5:13], h.Length)
	return buf
}

// DeserializeHeader parses a 13-byte wire header. It returns ErrInvalidKind
// iff the kind byte does not name one of the eight defined MessageType
// values; deserialization of the fixed header never allocates.
func DeserializeHeader(buf [HeaderSize]byte) (Header, error) {
	kind := MessageType(buf[4])
	if !kind.Valid() {
		return Header{}, ErrInvalidKind
	}
	return Header{
		ID:     binary.LittleEndian.Uint32(buf[0:4]),
		Kind:   kind,
		Length: binary.LittleEndian.Uint64(buf[5:13]),
	}, nil
}

// Message pairs a Header with its body bytes.
type Message struct {
	Header Header
	Body   []byte
}

// SerializeMessage returns the header bytes concatenated with exactly
// header.Length bytes of body. A body longer than the declared length is
// refused with ErrBodyTooLong rather than silently truncated, since emitting
// more than Length bytes would desynchronize the peer's framed reader. A
// shorter body is a programmer error and panics.
func SerializeMessage(m Message) ([]byte, error) {
	if uint64(len(m.Body)) > m.Header.Length {
		return nil, ErrBodyTooLong
	}
	if uint64(len(m.Body)) < m.Header.Length {
		panic("protocol: SerializeMessage: body shorter than header.Length")
	}
	hdr := SerializeHeader(m.Header)
	out := make([]byte, 0, HeaderSize+len(m.Body))
	out = append(out, hdr[:]...)
	out = append(out, m.Body...)
	return out, nil
}
