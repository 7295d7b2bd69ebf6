// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bureau-foundation/binpickle/lib/digest"
)

// Format constants. These values are protocol constants; changing
// them breaks container format compatibility.
const (
	// Version is the container format version this code reads and
	// writes. Version 1 (Adler32 checksums, single-codec entries) is
	// not supported.
	Version = 2

	// HeaderSize is the fixed file header: 4-byte magic + 2-byte
	// version + 2-byte reserved + 8-byte payload length.
	HeaderSize = 16

	// TrailerSize is the fixed file trailer: 8-byte index offset +
	// 4-byte index length + 32-byte index digest.
	TrailerSize = 44

	// MinFileSize is the smallest possible container: header plus
	// trailer with an empty payload region and empty index.
	MinFileSize = HeaderSize + TrailerSize
)

// magic is the 4-byte container file signature.
var magic = [4]byte{'B', 'P', 'C', 'K'}

// ErrMalformedFrame indicates that fixed-layout bytes (header or
// trailer) are invalid: bad magic, non-zero reserved bytes, or a
// declared length that cannot fit in the file.
var ErrMalformedFrame = errors.New("malformed container frame")

// ErrUnsupportedVersion indicates a recognized container whose format
// version this code does not read.
var ErrUnsupportedVersion = errors.New("unsupported container version")

// FileHeader is the 16-byte header at the start of every container.
// PayloadLength is the total length of the buffer payload region
// (everything between the header and the index). It is redundant with
// the trailer but allows a quick sanity scan from the start of the
// file.
type FileHeader struct {
	Version       uint16
	PayloadLength uint64
}

// Encode returns the 16-byte on-disk form of the header.
func (h FileHeader) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf, magic[:])
	binary.LittleEndian.PutUint16(buf[4:], h.Version)
	// buf[6:8] is the reserved field, zero.
	binary.LittleEndian.PutUint64(buf[8:], h.PayloadLength)
	return buf
}

// DecodeHeader parses and validates a 16-byte file header.
func DecodeHeader(buf []byte) (FileHeader, error) {
	if len(buf) != HeaderSize {
		return FileHeader{}, fmt.Errorf("%w: header is %d bytes, want %d", ErrMalformedFrame, len(buf), HeaderSize)
	}
	if !bytes.Equal(buf[:4], magic[:]) {
		return FileHeader{}, fmt.Errorf("%w: invalid magic %q", ErrMalformedFrame, buf[:4])
	}

	version := binary.LittleEndian.Uint16(buf[4:])
	if version != Version {
		return FileHeader{}, fmt.Errorf("%w: version %d is not supported (this code supports version %d)",
			ErrUnsupportedVersion, version, Version)
	}

	if buf[6] != 0 || buf[7] != 0 {
		return FileHeader{}, fmt.Errorf("%w: non-zero reserved bytes %x", ErrMalformedFrame, buf[6:8])
	}

	return FileHeader{
		Version:       version,
		PayloadLength: binary.LittleEndian.Uint64(buf[8:]),
	}, nil
}

// FileTrailer is the 44-byte trailer at the end of every container.
// It locates the encoded index and carries its SHA256 digest; the
// digest is verified before any index entry is trusted.
type FileTrailer struct {
	IndexOffset uint64
	IndexLength uint32
	IndexHash   [digest.Size]byte
}

// Encode returns the 44-byte on-disk form of the trailer.
func (t FileTrailer) Encode() []byte {
	buf := make([]byte, TrailerSize)
	binary.LittleEndian.PutUint64(buf, t.IndexOffset)
	binary.LittleEndian.PutUint32(buf[8:], t.IndexLength)
	copy(buf[12:], t.IndexHash[:])
	return buf
}

// DecodeTrailer parses a 44-byte file trailer. Consistency of the
// offset and length against the actual file size is the reader's
// responsibility; the trailer alone cannot know the file length.
func DecodeTrailer(buf []byte) (FileTrailer, error) {
	if len(buf) != TrailerSize {
		return FileTrailer{}, fmt.Errorf("%w: trailer is %d bytes, want %d", ErrMalformedFrame, len(buf), TrailerSize)
	}

	var t FileTrailer
	t.IndexOffset = binary.LittleEndian.Uint64(buf)
	t.IndexLength = binary.LittleEndian.Uint32(buf[8:])
	copy(t.IndexHash[:], buf[12:])
	return t, nil
}
