// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package protocol

import "testing"

func TestHeader_RoundTrip(t *testing.T) {
	tests := []Header{
		{ID: 0, Kind: Heartbeat, Length: 0},
		{ID: 1, Kind: Data, Length: 4092},
		{ID: 0xFFFFFFFF, Kind: Acknowledge, Length: 0},
		{ID: 42, Kind: Close, Length: 0},
	}

	for _, h := range tests {
		buf := SerializeHeader(h)
		if len(buf) != HeaderSize {
			t.Fatalf("expected %d bytes, got %d", HeaderSize, len(buf))
		}
		got, err := DeserializeHeader(buf)
		if err != nil {
			t.Fatalf("DeserializeHeader: %v", err)
		}
		if got != h {
			t.Errorf("round-trip mismatch: want %+v, got %+v", h, got)
		}
	}
}

func TestHeader_UnknownKind(t *testing.T) {
	for b := 8; b <= 255; b++ {
		buf := SerializeHeader(Header{ID: 1, Kind: MessageType(b), Length: 0})
		_, err := DeserializeHeader(buf)
		if err != ErrInvalidKind {
			t.Errorf("byte %d: expected ErrInvalidKind, got %v", b, err)
		}
	}
}

func TestHeader_Endianness(t *testing.T) {
	// id=1, kind=Data(2), length=256: chosen so a big-endian decode would
	// produce different values, catching any accidental host-order dependency.
	h := Header{ID: 1, Kind: Data, Length: 256}
	buf := SerializeHeader(h)

	want := [HeaderSize]byte{1, 0, 0, 0, byte(Data), 0, 1, 0, 0, 0, 0, 0, 0}
	if buf != want {
		t.Fatalf("expected little-endian wire bytes %v, got %v", want, buf)
	}
}

func TestSerializeMessage_ExactFraming(t *testing.T) {
	body := []byte("hello tunnel")
	m := Message{Header: Header{ID: 7, Kind: Data, Length: uint64(len(body))}, Body: body}

	out, err := SerializeMessage(m)
	if err != nil {
		t.Fatalf("SerializeMessage: %v", err)
	}
	if len(out) != HeaderSize+len(body) {
		t.Fatalf("expected %d bytes, got %d", HeaderSize+len(body), len(out))
	}

	var hdrBuf [HeaderSize]byte
	copy(hdrBuf[:], out[:HeaderSize])
	if hdrBuf != SerializeHeader(m.Header) {
		t.Errorf("first 13 bytes do not equal serialize(header)")
	}
}

func TestSerializeMessage_BodyTooLong(t *testing.T) {
	m := Message{Header: Header{ID: 1, Kind: Data, Length: 2}, Body: []byte("abc")}
	if _, err := SerializeMessage(m); err != ErrBodyTooLong {
		t.Fatalf("expected ErrBodyTooLong, got %v", err)
	}
}

func TestMessageType_String(t *testing.T) {
	cases := map[MessageType]string{
		Connect:     "Connect",
		Close:       "Close",
		Data:        "Data",
		Heartbeat:   "Heartbeat",
		Establish:   "Establish",
		Key:         "Key",
		Verify:      "Verify",
		Acknowledge: "Acknowledge",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("MessageType(%d).String() = %q, want %q", byte(k), got, want)
		}
	}
}
