// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package frame defines the on-disk layout of BinPickle containers.
//
// A container file has four regions, in increasing offset order:
//
//  1. A fixed 16-byte [FileHeader]: the "BPCK" magic, the format
//     version, two reserved zero bytes, and the payload region length.
//  2. The buffer payload region: the stored bytes of every buffer, in
//     index order, with optional zero padding between them (buffers
//     destined for memory-mapping are page-aligned).
//  3. The encoded index: a CBOR array with one map per buffer (see
//     [EncodeIndex]).
//  4. A fixed 44-byte [FileTrailer]: the index offset and length plus
//     the SHA256 digest of the encoded index.
//
// All fixed-width integers are little-endian. The index uses Core
// Deterministic Encoding (RFC 8949 §4.2) so identical logical content
// always produces identical bytes; [IndexEntry] preserves map keys it
// does not recognize, so files written by future minor versions still
// round-trip through this code.
package frame
