// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binpickle

import "errors"

// ErrCorruptIndex indicates that the encoded index failed its digest
// check or could not be decoded. Nothing in such a file can be
// trusted.
var ErrCorruptIndex = errors.New("corrupt container index")

// ErrCorruptBuffer indicates that a stored buffer's bytes do not
// match the digest recorded in the index. Other buffers in the same
// file may still verify; the reader is not poisoned.
var ErrCorruptBuffer = errors.New("corrupt buffer")

// ErrBuffersLive is returned by Reader.Close in mapped mode while
// vended views are still outstanding. The mapping stays intact;
// release every view and close again.
var ErrBuffersLive = errors.New("mapped buffers still live")

// ErrWriterFailed is returned by writer operations after a codec or
// I/O failure. The failed state is sticky: the partial file is not
// self-consistent and must be discarded by the caller.
var ErrWriterFailed = errors.New("writer is in failed state")

// ErrClosed is returned by operations on a closed reader or writer.
var ErrClosed = errors.New("already closed")
