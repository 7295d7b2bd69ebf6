// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bureau-foundation/binpickle/lib/digest"
)

func TestHeaderRoundTrip(t *testing.T) {
	original := FileHeader{Version: Version, PayloadLength: 123456789}
	encoded := original.Encode()
	if len(encoded) != HeaderSize {
		t.Fatalf("encoded header is %d bytes, want %d", len(encoded), HeaderSize)
	}
	if !bytes.Equal(encoded[:4], []byte("BPCK")) {
		t.Fatalf("header magic = %q, want BPCK", encoded[:4])
	}

	decoded, err := DecodeHeader(encoded)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if decoded != original {
		t.Errorf("decoded header %+v, want %+v", decoded, original)
	}
}

func TestHeaderLittleEndian(t *testing.T) {
	encoded := FileHeader{Version: Version, PayloadLength: 0x0102030405060708}.Encode()
	if got := binary.LittleEndian.Uint16(encoded[4:]); got != Version {
		t.Errorf("version field = %d, want %d", got, Version)
	}
	if encoded[8] != 0x08 || encoded[15] != 0x01 {
		t.Errorf("payload length is not little-endian: % x", encoded[8:])
	}
}

func TestDecodeHeaderRejectsBadMagic(t *testing.T) {
	encoded := FileHeader{Version: Version}.Encode()
	encoded[0] = 'X'
	if _, err := DecodeHeader(encoded); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("DecodeHeader with bad magic = %v, want ErrMalformedFrame", err)
	}
}

func TestDecodeHeaderRejectsVersionOne(t *testing.T) {
	encoded := FileHeader{Version: Version}.Encode()
	binary.LittleEndian.PutUint16(encoded[4:], 1)
	_, err := DecodeHeader(encoded)
	if !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("DecodeHeader of version 1 = %v, want ErrUnsupportedVersion", err)
	}
	if errors.Is(err, ErrMalformedFrame) {
		t.Error("version error should not also be a malformed-frame error")
	}
}

func TestDecodeHeaderRejectsFutureVersion(t *testing.T) {
	encoded := FileHeader{Version: Version}.Encode()
	binary.LittleEndian.PutUint16(encoded[4:], Version+1)
	if _, err := DecodeHeader(encoded); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("DecodeHeader of version %d = %v, want ErrUnsupportedVersion", Version+1, err)
	}
}

func TestDecodeHeaderRejectsReservedBytes(t *testing.T) {
	encoded := FileHeader{Version: Version}.Encode()
	encoded[6] = 1
	if _, err := DecodeHeader(encoded); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("DecodeHeader with non-zero reserved bytes = %v, want ErrMalformedFrame", err)
	}
}

func TestDecodeHeaderRejectsShortBuffer(t *testing.T) {
	if _, err := DecodeHeader(make([]byte, HeaderSize-1)); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("DecodeHeader of short buffer = %v, want ErrMalformedFrame", err)
	}
}

func TestTrailerRoundTrip(t *testing.T) {
	original := FileTrailer{
		IndexOffset: 4096,
		IndexLength: 512,
		IndexHash:   digest.Sum([]byte("index bytes")),
	}
	encoded := original.Encode()
	if len(encoded) != TrailerSize {
		t.Fatalf("encoded trailer is %d bytes, want %d", len(encoded), TrailerSize)
	}

	decoded, err := DecodeTrailer(encoded)
	if err != nil {
		t.Fatalf("DecodeTrailer: %v", err)
	}
	if decoded != original {
		t.Errorf("decoded trailer %+v, want %+v", decoded, original)
	}
}

func TestDecodeTrailerRejectsShortBuffer(t *testing.T) {
	if _, err := DecodeTrailer(make([]byte, TrailerSize-1)); !errors.Is(err, ErrMalformedFrame) {
		t.Fatalf("DecodeTrailer of short buffer = %v, want ErrMalformedFrame", err)
	}
}
