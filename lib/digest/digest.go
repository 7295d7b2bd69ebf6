// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
)

// Size is the byte length of a SHA256 digest.
const Size = sha256.Size

// Engine is a streaming SHA256 hasher. The zero value is not usable;
// construct with [NewEngine]. Engine implements [io.Writer] so it can
// sit behind an io.MultiWriter next to the file being written.
type Engine struct {
	inner hash.Hash
}

// NewEngine returns a fresh streaming hasher.
func NewEngine() *Engine {
	return &Engine{inner: sha256.New()}
}

// Update feeds a span of bytes into the digest.
func (e *Engine) Update(span []byte) {
	// sha256's Write never fails.
	e.inner.Write(span)
}

// Write implements io.Writer; it is Update with the io.Writer
// signature.
func (e *Engine) Write(span []byte) (int, error) {
	e.inner.Write(span)
	return len(span), nil
}

// Finalize returns the digest of everything fed so far. The engine
// remains usable: further Update calls continue the same stream.
func (e *Engine) Finalize() [Size]byte {
	var digest [Size]byte
	copy(digest[:], e.inner.Sum(nil))
	return digest
}

// Sum computes the SHA256 digest of a byte span in one shot.
func Sum(span []byte) [Size]byte {
	return sha256.Sum256(span)
}

// Format returns the hex-encoded string representation of a digest.
// This is the canonical format used in logs and CLI output.
func Format(digest [Size]byte) string {
	return hex.EncodeToString(digest[:])
}

// Parse parses a hex-encoded SHA256 digest string into a 32-byte
// array. Returns an error if the string is not a valid 64-character
// hex encoding of 32 bytes.
func Parse(hexString string) ([Size]byte, error) {
	var digest [Size]byte
	decoded, err := hex.DecodeString(hexString)
	if err != nil {
		return digest, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != Size {
		return digest, fmt.Errorf("digest is %d bytes, want %d", len(decoded), Size)
	}
	copy(digest[:], decoded)
	return digest, nil
}
