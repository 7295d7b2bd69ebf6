// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/bureau-foundation/binpickle/lib/codec"
	"github.com/bureau-foundation/binpickle/lib/digest"
)

// encMode is the CBOR encoder configured with Core Deterministic
// Encoding (RFC 8949 §4.2): sorted map keys, smallest integer
// encoding, no indefinite-length items. Identical index content
// always produces identical bytes, which in turn makes identical
// write sequences produce byte-identical container files.
var encMode cbor.EncMode

// decMode is the CBOR decoder configured to accept standard CBOR.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("frame: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Index entries and codec configs only ever use string map
		// keys. When the decode target is any-typed (codec option
		// values, info metadata), pick map[string]any rather than the
		// CBOR default map[any]any.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("frame: CBOR decoder initialization failed: " + err.Error())
	}
}

// Index map keys. The first five keys are mandatory in every entry and
// "info" is optional; any other key round-trips through
// IndexEntry.Extra.
const (
	keyOffset    = "offset"
	keyEncLength = "enc_length"
	keyDecLength = "dec_length"
	keyHash      = "hash"
	keyCodecs    = "codecs"
	keyInfo      = "info"
)

// EncodeIndex serializes the index as a CBOR array with one
// self-describing map per entry. The encoding is deterministic given
// identical inputs.
func EncodeIndex(entries []IndexEntry) ([]byte, error) {
	reprs := make([]map[string]any, len(entries))
	for i, entry := range entries {
		codecs := entry.Codecs
		if codecs == nil {
			codecs = []codec.Config{}
		}
		hash := entry.Hash
		repr := map[string]any{
			keyOffset:    entry.Offset,
			keyEncLength: entry.EncLength,
			keyDecLength: entry.DecLength,
			keyHash:      hash[:],
			keyCodecs:    codecs,
		}
		if len(entry.Info) > 0 {
			repr[keyInfo] = entry.Info
		}
		for key, value := range entry.Extra {
			if _, taken := repr[key]; taken {
				return nil, fmt.Errorf("entry %d: extra key %q collides with a mandatory index key", i, key)
			}
			repr[key] = value
		}
		reprs[i] = repr
	}

	data, err := encMode.Marshal(reprs)
	if err != nil {
		return nil, fmt.Errorf("encoding index: %w", err)
	}
	return data, nil
}

// DecodeIndex parses an encoded index back into entries. Mandatory
// keys must be present with the right types; unrecognized keys are
// preserved in IndexEntry.Extra.
func DecodeIndex(data []byte) ([]IndexEntry, error) {
	var reprs []map[string]cbor.RawMessage
	if err := decMode.Unmarshal(data, &reprs); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}

	entries := make([]IndexEntry, len(reprs))
	for i, repr := range reprs {
		entry, err := decodeEntry(repr)
		if err != nil {
			return nil, fmt.Errorf("decoding index entry %d: %w", i, err)
		}
		entries[i] = entry
	}
	return entries, nil
}

func decodeEntry(repr map[string]cbor.RawMessage) (IndexEntry, error) {
	var entry IndexEntry

	if err := decodeKey(repr, keyOffset, &entry.Offset); err != nil {
		return entry, err
	}
	if err := decodeKey(repr, keyEncLength, &entry.EncLength); err != nil {
		return entry, err
	}
	if err := decodeKey(repr, keyDecLength, &entry.DecLength); err != nil {
		return entry, err
	}

	raw, ok := repr[keyHash]
	if !ok {
		return entry, fmt.Errorf("missing mandatory key %q", keyHash)
	}
	var hash []byte
	if err := decMode.Unmarshal(raw, &hash); err != nil {
		return entry, fmt.Errorf("key %q: %w", keyHash, err)
	}
	if len(hash) != digest.Size {
		return entry, fmt.Errorf("key %q: digest is %d bytes, want %d", keyHash, len(hash), digest.Size)
	}
	copy(entry.Hash[:], hash)

	raw, ok = repr[keyCodecs]
	if !ok {
		return entry, fmt.Errorf("missing mandatory key %q", keyCodecs)
	}
	if err := decMode.Unmarshal(raw, &entry.Codecs); err != nil {
		return entry, fmt.Errorf("key %q: %w", keyCodecs, err)
	}

	if raw, ok := repr[keyInfo]; ok {
		entry.Info = raw
	}

	for key, value := range repr {
		switch key {
		case keyOffset, keyEncLength, keyDecLength, keyHash, keyCodecs, keyInfo:
			continue
		}
		if entry.Extra == nil {
			entry.Extra = make(map[string]cbor.RawMessage)
		}
		entry.Extra[key] = value
	}

	return entry, nil
}

func decodeKey(repr map[string]cbor.RawMessage, key string, out *uint64) error {
	raw, ok := repr[key]
	if !ok {
		return fmt.Errorf("missing mandatory key %q", key)
	}
	if err := decMode.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	return nil
}
