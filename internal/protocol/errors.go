// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package protocol

import "errors"

// Errors returned by the framed connection helpers. ConnectionReset is
// returned specifically on EOF during an exact read, separating "peer hung
// up cleanly" from "some other I/O error".
var (
	// ErrInvalidKind is returned by DeserializeHeader when the kind byte
	// does not name one of the eight defined MessageType values.
	ErrInvalidKind = errors.New("protocol: invalid frame kind")

	// ErrConnectionReset is returned by ReadExact when the peer closes the
	// connection (EOF) before n bytes have been read.
	ErrConnectionReset = errors.New("protocol: connection reset by peer")

	// ErrBodyTooLong is returned by SerializeMessage when the supplied body
	// is longer than the header's declared length; emitting the extra bytes
	// would desynchronize the peer's reader.
	ErrBodyTooLong = errors.New("protocol: body longer than declared length")
)
