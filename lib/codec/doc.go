// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the buffer transformation pipeline for
// BinPickle containers.
//
// A codec is a reversible byte transformation (compression, byte
// shuffling, and so on) identified by a short string id plus a
// configuration map. Buffers are written through an ordered chain of
// codecs and read back by inverting the chain in reverse order. The
// codec chain used for each buffer is stored in the container index,
// so a reader can reconstruct the exact inverse pipeline without any
// out-of-band information.
//
// The package ships four built-in codecs:
//
//   - "zstd" -- zstd compression (github.com/klauspost/compress/zstd),
//     with an optional integer "level" option (zstd levels 1-22)
//   - "gzip" -- gzip compression (github.com/klauspost/compress/gzip),
//     with an optional integer "level" option
//   - "lz4" -- LZ4 block compression (github.com/pierrec/lz4/v4)
//   - "null" -- the identity transformation
//
// Additional codecs can be registered on a [StdRegistry]. The container
// reader and writer never hard-code codec implementations; they
// resolve ids through the registry they were configured with.
package codec
