// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package digest provides streaming SHA256 hashing for BinPickle
// containers.
//
// Every buffer stored in a container is digested over its encoded
// (on-disk) bytes, and the encoded index is digested as a whole; the
// digests live in the container index and trailer and are checked on
// read. The writer streams each buffer through an [Engine] while the
// bytes go to disk, so hashing never requires a second pass over the
// data.
//
// [Format] and [Parse] convert digests to and from the canonical
// hex-encoded string representation used in logs and CLI output.
package digest
