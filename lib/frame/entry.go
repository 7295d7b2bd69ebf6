// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/bureau-foundation/binpickle/lib/codec"
	"github.com/bureau-foundation/binpickle/lib/digest"
)

// IndexEntry describes one stored buffer. Entries are immutable once
// written; they appear in the index in the order their buffers were
// written, which is the order a consumer reads them back.
type IndexEntry struct {
	// Offset is the absolute byte position where the buffer's stored
	// (possibly encoded) bytes begin.
	Offset uint64

	// EncLength is the number of stored bytes.
	EncLength uint64

	// DecLength is the decoded size after the codec chain is
	// reversed. Equal to EncLength when Codecs is empty.
	DecLength uint64

	// Hash is the SHA256 digest of the stored (encoded) bytes.
	Hash [digest.Size]byte

	// Codecs is the codec chain applied at write time, in encode
	// order. Decoding reverses the sequence. Empty means the buffer
	// is stored raw.
	Codecs []codec.Config

	// Info is free-form descriptive metadata (for example, element
	// type and shape for a typed array), encoded as CBOR. The
	// container core round-trips it verbatim and never interprets it.
	Info cbor.RawMessage

	// Extra holds index map keys this version does not recognize.
	// They are preserved verbatim so files written by future minor
	// versions survive decoding and re-encoding of the index.
	Extra map[string]cbor.RawMessage
}

// EncodeInfo encodes a metadata value into the canonical form stored
// in an index entry.
func EncodeInfo(value any) (cbor.RawMessage, error) {
	data, err := encMode.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encoding buffer info: %w", err)
	}
	return cbor.RawMessage(data), nil
}

// DecodeInfo decodes the entry's metadata into a map. Returns nil if
// the entry carries no metadata.
func (e IndexEntry) DecodeInfo() (map[string]any, error) {
	if len(e.Info) == 0 {
		return nil, nil
	}
	var info map[string]any
	if err := decMode.Unmarshal(e.Info, &info); err != nil {
		return nil, fmt.Errorf("decoding buffer info: %w", err)
	}
	return info, nil
}

// ValidateEntries checks the decoded index against the container
// layout invariants: every buffer lies between the header and the
// index, buffers do not overlap, and offsets never move backward.
// Zero padding between buffers is permitted. indexOffset is the
// absolute position where the encoded index begins.
func ValidateEntries(entries []IndexEntry, indexOffset uint64) error {
	var previousEnd uint64 = HeaderSize
	for i, entry := range entries {
		if entry.Offset < HeaderSize {
			return fmt.Errorf("%w: entry %d: offset %d is inside the file header", ErrMalformedFrame, i, entry.Offset)
		}
		if entry.Offset < previousEnd {
			return fmt.Errorf("%w: entry %d: offset %d overlaps the preceding buffer ending at %d",
				ErrMalformedFrame, i, entry.Offset, previousEnd)
		}
		if entry.Offset > indexOffset || entry.EncLength > indexOffset-entry.Offset {
			return fmt.Errorf("%w: entry %d: span [%d, %d) extends past the index at %d",
				ErrMalformedFrame, i, entry.Offset, entry.Offset+entry.EncLength, indexOffset)
		}
		if len(entry.Codecs) == 0 && entry.EncLength != entry.DecLength {
			return fmt.Errorf("%w: entry %d: raw buffer has encoded length %d but decoded length %d",
				ErrMalformedFrame, i, entry.EncLength, entry.DecLength)
		}
		previousEnd = entry.Offset + entry.EncLength
	}
	return nil
}
