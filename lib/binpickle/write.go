// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binpickle

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fxamacker/cbor/v2"

	"github.com/bureau-foundation/binpickle/lib/codec"
	"github.com/bureau-foundation/binpickle/lib/digest"
	"github.com/bureau-foundation/binpickle/lib/frame"
)

// writerState tracks the writer's position in its lifecycle. The
// failed state is terminal and sticky: a partial container is not
// self-consistent, so there is no recovery path.
type writerState int

const (
	writerOpen writerState = iota
	writerWriting
	writerFinalized
	writerClosed
	writerFailed
)

// WriterConfig configures a container writer. The zero value writes
// raw, unaligned buffers with the built-in codec registry and no
// logging.
type WriterConfig struct {
	// Align pads every raw buffer to a page-size boundary so the
	// resulting file can be memory-mapped for zero-copy reads.
	// Buffers with a codec chain are never aligned (mapping them
	// zero-copy is impossible anyway).
	Align bool

	// Codecs is the default codec chain applied to buffers whose
	// BufferOptions do not specify one.
	Codecs []codec.Config

	// Registry resolves codec configurations. Nil uses the built-in
	// registry.
	Registry codec.Registry

	// Logger receives debug-level write traces. Nil discards them.
	Logger *slog.Logger
}

// BufferOptions control how a single buffer is stored.
type BufferOptions struct {
	// Codecs overrides the writer's default codec chain for this
	// buffer. A non-nil empty slice forces raw storage even when the
	// writer has a default chain; nil inherits the default.
	Codecs []codec.Config

	// Info is free-form descriptive metadata stored alongside the
	// buffer and round-tripped verbatim (for example, element type
	// and shape of a typed array).
	Info map[string]any

	// InfoRaw stores pre-encoded metadata verbatim, bypassing Info.
	// Used when copying entries from another container.
	InfoRaw cbor.RawMessage

	// AlignForMapping pads this buffer to a page-size boundary when
	// its codec chain is empty. Ignored (alignment is advisory) when
	// codecs are applied.
	AlignForMapping bool
}

// Writer streams buffers into a new container file. A Writer owns its
// file exclusively: create it, write buffers, call Finalize exactly
// once, then Close. Writer is not safe for concurrent use.
//
// Bytes reach the file in strictly increasing offset order; the only
// backward seek is the header length back-patch during Finalize.
type Writer struct {
	file     *os.File
	path     string
	position int64
	entries  []frame.IndexEntry
	state    writerState

	registry      codec.Registry
	logger        *slog.Logger
	defaultAlign  bool
	defaultCodecs []codec.Config

	pageSize int64
	padding  int64
}

// Create opens path for writing and emits a placeholder header. The
// header's payload length is back-patched during Finalize.
func Create(path string, cfg WriterConfig) (*Writer, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	registry := cfg.Registry
	if registry == nil {
		registry = codec.Default
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating container %s: %w", path, err)
	}

	header := frame.FileHeader{Version: frame.Version}
	if _, err := file.Write(header.Encode()); err != nil {
		file.Close()
		return nil, fmt.Errorf("writing container header: %w", err)
	}

	logger.Debug("created container", "path", path, "align", cfg.Align)

	return &Writer{
		file:          file,
		path:          path,
		position:      frame.HeaderSize,
		state:         writerOpen,
		registry:      registry,
		logger:        logger,
		defaultAlign:  cfg.Align,
		defaultCodecs: cfg.Codecs,
		pageSize:      int64(os.Getpagesize()),
	}, nil
}

// CreateMappable creates a writer whose raw buffers are page-aligned
// for memory-mapped use.
func CreateMappable(path string) (*Writer, error) {
	return Create(path, WriterConfig{Align: true})
}

// CreateCompressed creates a writer that compresses every buffer with
// the given codec chain, defaulting to gzip when none is given.
func CreateCompressed(path string, codecs ...codec.Config) (*Writer, error) {
	if len(codecs) == 0 {
		codecs = []codec.Config{codec.Gzip(9)}
	}
	return Create(path, WriterConfig{Codecs: codecs})
}

// WriteBuffer appends one buffer to the container. The buffer is run
// through its codec chain, digested, and streamed to the file; a new
// index entry records where and how it was stored.
//
// A codec or I/O failure moves the writer into a terminal failed
// state; subsequent calls other than Close return [ErrWriterFailed].
func (w *Writer) WriteBuffer(data []byte, opts BufferOptions) error {
	switch w.state {
	case writerOpen, writerWriting:
	case writerFailed:
		return ErrWriterFailed
	case writerFinalized:
		return fmt.Errorf("writer for %s is already finalized", w.path)
	case writerClosed:
		return fmt.Errorf("writer for %s: %w", w.path, ErrClosed)
	}

	codecs := opts.Codecs
	if codecs == nil {
		codecs = w.defaultCodecs
	}
	// Empty buffers are stored raw: there is nothing to compress and
	// a codec chain would only add framing overhead.
	if len(data) == 0 {
		codecs = nil
	}

	align := opts.AlignForMapping || w.defaultAlign
	if align && len(codecs) == 0 {
		if err := w.padToPage(); err != nil {
			w.state = writerFailed
			return err
		}
	}

	chain, err := codec.NewChain(w.registry, codecs)
	if err != nil {
		w.state = writerFailed
		return fmt.Errorf("buffer %d: %w", len(w.entries), err)
	}
	encoded, err := chain.Encode(data)
	if err != nil {
		w.state = writerFailed
		return fmt.Errorf("buffer %d: %w", len(w.entries), err)
	}

	info := opts.InfoRaw
	if info == nil && opts.Info != nil {
		info, err = frame.EncodeInfo(opts.Info)
		if err != nil {
			w.state = writerFailed
			return fmt.Errorf("buffer %d: %w", len(w.entries), err)
		}
	}

	offset := w.position
	engine := digest.NewEngine()
	engine.Update(encoded)
	if _, err := w.file.Write(encoded); err != nil {
		w.state = writerFailed
		return fmt.Errorf("writing buffer %d at offset %d: %w", len(w.entries), offset, err)
	}
	w.position += int64(len(encoded))

	w.logger.Debug("wrote buffer",
		"index", len(w.entries),
		"offset", offset,
		"decoded", len(data),
		"encoded", len(encoded),
		"codecs", len(chain.Configs()))

	w.entries = append(w.entries, frame.IndexEntry{
		Offset:    uint64(offset),
		EncLength: uint64(len(encoded)),
		DecLength: uint64(len(data)),
		Hash:      engine.Finalize(),
		Codecs:    chain.Configs(),
		Info:      info,
	})
	w.state = writerWriting
	return nil
}

// padToPage advances the write position to the next page boundary by
// writing zero bytes. The padding is not recorded in the file; only
// the running total is kept for inspection.
func (w *Writer) padToPage() error {
	remainder := w.position % w.pageSize
	if remainder == 0 {
		return nil
	}
	pad := w.pageSize - remainder
	if _, err := w.file.Write(make([]byte, pad)); err != nil {
		return fmt.Errorf("writing %d alignment bytes at offset %d: %w", pad, w.position, err)
	}
	w.position += pad
	w.padding += pad
	return nil
}

// PaddingWritten returns the total number of alignment bytes emitted
// so far.
func (w *Writer) PaddingWritten() int64 {
	return w.padding
}

// Finalize emits the index and trailer, back-patches the header's
// payload length, and flushes the file. Returns the total file
// length. The writer accepts no further buffers afterwards.
func (w *Writer) Finalize() (int64, error) {
	switch w.state {
	case writerOpen, writerWriting:
	case writerFailed:
		return 0, ErrWriterFailed
	case writerFinalized:
		return 0, fmt.Errorf("writer for %s is already finalized", w.path)
	case writerClosed:
		return 0, fmt.Errorf("writer for %s: %w", w.path, ErrClosed)
	}

	indexOffset := w.position
	blob, err := frame.EncodeIndex(w.entries)
	if err != nil {
		w.state = writerFailed
		return 0, fmt.Errorf("finalizing %s: %w", w.path, err)
	}
	if len(blob) > math.MaxUint32 {
		w.state = writerFailed
		return 0, fmt.Errorf("finalizing %s: index of %d bytes exceeds the format's 4 GiB limit", w.path, len(blob))
	}

	if _, err := w.file.Write(blob); err != nil {
		w.state = writerFailed
		return 0, fmt.Errorf("writing index at offset %d: %w", indexOffset, err)
	}

	trailer := frame.FileTrailer{
		IndexOffset: uint64(indexOffset),
		IndexLength: uint32(len(blob)),
		IndexHash:   digest.Sum(blob),
	}
	if _, err := w.file.Write(trailer.Encode()); err != nil {
		w.state = writerFailed
		return 0, fmt.Errorf("writing trailer: %w", err)
	}

	header := frame.FileHeader{
		Version:       frame.Version,
		PayloadLength: uint64(indexOffset - frame.HeaderSize),
	}
	if _, err := w.file.WriteAt(header.Encode(), 0); err != nil {
		w.state = writerFailed
		return 0, fmt.Errorf("back-patching header: %w", err)
	}

	if err := w.file.Sync(); err != nil {
		w.state = writerFailed
		return 0, fmt.Errorf("flushing %s: %w", w.path, err)
	}

	total := indexOffset + int64(len(blob)) + frame.TrailerSize
	w.position = total
	w.state = writerFinalized

	var totalDecoded, totalEncoded uint64
	for _, entry := range w.entries {
		totalDecoded += entry.DecLength
		totalEncoded += entry.EncLength
	}
	w.logger.Info("finalized container",
		"path", w.path,
		"buffers", len(w.entries),
		"decoded", humanize.IBytes(totalDecoded),
		"encoded", humanize.IBytes(totalEncoded),
		"file", humanize.IBytes(uint64(total)))

	return total, nil
}

// Close closes the underlying file. Closing before Finalize leaves an
// invalid partial file on disk; the caller is expected to discard it.
func (w *Writer) Close() error {
	if w.state == writerClosed {
		return nil
	}
	state := w.state
	w.state = writerClosed
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", w.path, err)
	}
	if state != writerFinalized && state != writerFailed {
		w.logger.Debug("closed unfinalized container", "path", w.path)
	}
	return nil
}

// Entries returns the index accumulated so far. The returned slice is
// a copy; entries themselves are immutable once written.
func (w *Writer) Entries() []frame.IndexEntry {
	entries := make([]frame.IndexEntry, len(w.entries))
	copy(entries, w.entries)
	return entries
}
