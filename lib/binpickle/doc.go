// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binpickle reads and writes BinPickle container files.
//
// A BinPickle container persists a sequence of binary buffers (in
// practice the out-of-band payloads of a serialized object, with the
// primary object bytes as the final buffer) in a single append-only
// artifact. Each buffer is optionally run through a codec chain
// (compression for storage and transfer) or stored raw on a
// page-aligned offset (for zero-copy memory-mapped sharing between
// processes). Every buffer and the index itself carry SHA256 digests
// that are verified on read.
//
// Writing:
//
//	writer, err := binpickle.Create("model.bpk", binpickle.WriterConfig{})
//	err = writer.WriteBuffer(weights, binpickle.BufferOptions{
//		Codecs: []codec.Config{codec.Zstd(3)},
//	})
//	err = writer.WriteBuffer(objectBytes, binpickle.BufferOptions{})
//	length, err := writer.Finalize()
//	err = writer.Close()
//
// Reading back with eager copies:
//
//	reader, err := binpickle.Open("model.bpk", binpickle.ReaderConfig{})
//	view, err := reader.GetBuffer(0)
//	data := view.Bytes()
//	err = reader.Close()
//
// In mapped mode (ReaderConfig.Direct) raw buffers come back as
// zero-copy views into a shared read-only memory map. Each view holds
// a mapping token; Close refuses with [ErrBuffersLive] until every
// view has been released, converting the silent memory corruption of
// a premature unmap into a deterministic error.
package binpickle
