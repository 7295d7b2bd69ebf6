// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binpickle

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/bureau-foundation/binpickle/lib/codec"
	"github.com/bureau-foundation/binpickle/lib/digest"
	"github.com/bureau-foundation/binpickle/lib/frame"
)

// ReaderConfig configures a container reader. The zero value reads
// eagerly with the built-in codec registry, verifies every buffer on
// first access, and discards log output.
type ReaderConfig struct {
	// Direct memory-maps the payload region and vends zero-copy
	// views of raw buffers. Buffers with a codec chain are decoded
	// into fresh memory regardless. Open fails on platforms without
	// mmap support when Direct is set.
	Direct bool

	// SkipVerify disables the per-buffer digest check on access. The
	// index digest is always checked during Open.
	SkipVerify bool

	// Registry resolves codec configurations. Nil uses the built-in
	// registry.
	Registry codec.Registry

	// Logger receives debug-level read traces. Nil discards them.
	Logger *slog.Logger
}

// Reader provides access to the buffers of an existing container
// file. The index is loaded and digest-checked during Open; buffer
// bytes are fetched on demand. Reader is safe for concurrent use.
type Reader struct {
	file    *os.File
	path    string
	entries []frame.IndexEntry
	header  frame.FileHeader
	trailer frame.FileTrailer
	length  int64

	registry   codec.Registry
	logger     *slog.Logger
	skipVerify bool

	// mapping is non-nil in direct mode and covers the payload
	// region [0, trailer.IndexOffset).
	mapping []byte
	gov     governor

	mu       sync.Mutex
	verified []bool
	closed   bool
}

// Open opens the container at path. The file's frame is validated and
// its index loaded and digest-checked before Open returns; a file
// whose index does not verify is rejected outright with
// [ErrCorruptIndex].
func Open(path string, cfg ReaderConfig) (*Reader, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	registry := cfg.Registry
	if registry == nil {
		registry = codec.Default
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening container %s: %w", path, err)
	}
	reader, err := newReader(file, path, cfg, registry, logger)
	if err != nil {
		file.Close()
		return nil, err
	}
	return reader, nil
}

func newReader(file *os.File, path string, cfg ReaderConfig, registry codec.Registry, logger *slog.Logger) (*Reader, error) {
	stat, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	length := stat.Size()
	if length < frame.MinFileSize {
		return nil, fmt.Errorf("%s: %d bytes is below the %d-byte minimum for a container: %w",
			path, length, frame.MinFileSize, frame.ErrMalformedFrame)
	}

	headerBytes := make([]byte, frame.HeaderSize)
	if _, err := file.ReadAt(headerBytes, 0); err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	header, err := frame.DecodeHeader(headerBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	trailerBytes := make([]byte, frame.TrailerSize)
	if _, err := file.ReadAt(trailerBytes, length-frame.TrailerSize); err != nil {
		return nil, fmt.Errorf("reading trailer of %s: %w", path, err)
	}
	trailer, err := frame.DecodeTrailer(trailerBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	indexOffset := int64(trailer.IndexOffset)
	indexEnd := indexOffset + int64(trailer.IndexLength)
	if indexOffset < frame.HeaderSize || indexEnd+frame.TrailerSize != length {
		return nil, fmt.Errorf("%s: trailer places the index at [%d, %d) in a %d-byte file: %w",
			path, indexOffset, indexEnd, length, frame.ErrMalformedFrame)
	}
	if payload := uint64(indexOffset) - frame.HeaderSize; header.PayloadLength != payload {
		return nil, fmt.Errorf("%s: header claims a %d-byte payload but the trailer implies %d: %w",
			path, header.PayloadLength, payload, frame.ErrMalformedFrame)
	}

	blob := make([]byte, trailer.IndexLength)
	if _, err := file.ReadAt(blob, indexOffset); err != nil {
		return nil, fmt.Errorf("reading index of %s: %w", path, err)
	}
	if digest.Sum(blob) != trailer.IndexHash {
		return nil, fmt.Errorf("%s: index digest mismatch: %w", path, ErrCorruptIndex)
	}
	entries, err := frame.DecodeIndex(blob)
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, ErrCorruptIndex)
	}
	if err := frame.ValidateEntries(entries, uint64(indexOffset)); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", path, err, frame.ErrMalformedFrame)
	}

	reader := &Reader{
		file:       file,
		path:       path,
		entries:    entries,
		header:     header,
		trailer:    trailer,
		length:     length,
		registry:   registry,
		logger:     logger,
		skipVerify: cfg.SkipVerify,
		verified:   make([]bool, len(entries)),
	}

	if cfg.Direct {
		mapping, err := mapFile(file, int(indexOffset))
		if err != nil {
			return nil, err
		}
		reader.mapping = mapping
	}

	logger.Debug("opened container",
		"path", path,
		"buffers", len(entries),
		"file", length,
		"direct", cfg.Direct)

	return reader, nil
}

// OpenMapped opens the container in direct (memory-mapped) mode.
func OpenMapped(path string) (*Reader, error) {
	return Open(path, ReaderConfig{Direct: true})
}

// Len returns the number of buffers in the container.
func (r *Reader) Len() int {
	return len(r.entries)
}

// Entries returns a copy of the container's index.
func (r *Reader) Entries() []frame.IndexEntry {
	entries := make([]frame.IndexEntry, len(r.entries))
	copy(entries, r.entries)
	return entries
}

// IsMappable reports whether every buffer in the container is stored
// raw, so that direct mode can vend every buffer zero-copy.
func (r *Reader) IsMappable() bool {
	for _, entry := range r.entries {
		if len(entry.Codecs) > 0 {
			return false
		}
	}
	return true
}

// BufferView holds the bytes of one buffer. In direct mode a view of
// a raw buffer aliases the reader's memory mapping and pins it until
// Release is called; all other views own their bytes and Release is a
// no-op.
type BufferView struct {
	data  []byte
	token *MappingToken
}

// Bytes returns the buffer contents. For mapped views the slice
// aliases read-only mapped memory; writing to it faults.
func (v *BufferView) Bytes() []byte {
	return v.data
}

// Mapped reports whether the view aliases the reader's mapping.
func (v *BufferView) Mapped() bool {
	return v.token != nil
}

// Release drops the view's pin on the reader's mapping, if any. Safe
// to call more than once.
func (v *BufferView) Release() {
	v.token.Release()
}

// GetBuffer fetches buffer i. In eager mode (and for any buffer with
// a codec chain) the returned view owns freshly allocated bytes. In
// direct mode a raw buffer's view aliases the mapping zero-copy and
// must be released before the reader can close.
//
// Unless SkipVerify was set, the stored bytes are checked against the
// index digest on first access; a mismatch returns [ErrCorruptBuffer]
// without poisoning the reader.
func (r *Reader) GetBuffer(i int) (*BufferView, error) {
	if i < 0 || i >= len(r.entries) {
		return nil, fmt.Errorf("buffer %d out of range [0, %d)", i, len(r.entries))
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, fmt.Errorf("reader for %s: %w", r.path, ErrClosed)
	}
	r.mu.Unlock()

	entry := r.entries[i]

	if r.mapping != nil {
		return r.getMapped(i, entry)
	}
	return r.getEager(i, entry)
}

func (r *Reader) getEager(i int, entry frame.IndexEntry) (*BufferView, error) {
	encoded := make([]byte, entry.EncLength)
	if _, err := r.file.ReadAt(encoded, int64(entry.Offset)); err != nil {
		return nil, fmt.Errorf("reading buffer %d at offset %d: %w", i, entry.Offset, err)
	}
	if err := r.verifyBuffer(i, entry, encoded); err != nil {
		return nil, err
	}
	data, err := r.decodeBuffer(i, entry, encoded)
	if err != nil {
		return nil, err
	}
	return &BufferView{data: data}, nil
}

func (r *Reader) getMapped(i int, entry frame.IndexEntry) (*BufferView, error) {
	span := r.mapping[entry.Offset : entry.Offset+entry.EncLength]
	if err := r.verifyBuffer(i, entry, span); err != nil {
		return nil, err
	}
	if len(entry.Codecs) == 0 {
		return &BufferView{data: span, token: r.gov.acquire()}, nil
	}
	// Encoded buffers cannot be vended zero-copy; decode into owned
	// memory and let the view float free of the mapping.
	data, err := r.decodeBuffer(i, entry, span)
	if err != nil {
		return nil, err
	}
	return &BufferView{data: data}, nil
}

// verifyBuffer checks the stored bytes against the index digest. The
// check runs at most once per buffer; a clean result is cached.
func (r *Reader) verifyBuffer(i int, entry frame.IndexEntry, encoded []byte) error {
	if r.skipVerify {
		return nil
	}
	r.mu.Lock()
	done := r.verified[i]
	r.mu.Unlock()
	if done {
		return nil
	}
	if digest.Sum(encoded) != entry.Hash {
		return fmt.Errorf("buffer %d at offset %d: %w", i, entry.Offset, ErrCorruptBuffer)
	}
	r.mu.Lock()
	r.verified[i] = true
	r.mu.Unlock()
	return nil
}

func (r *Reader) decodeBuffer(i int, entry frame.IndexEntry, encoded []byte) ([]byte, error) {
	chain, err := codec.NewChain(r.registry, entry.Codecs)
	if err != nil {
		return nil, fmt.Errorf("buffer %d: %w", i, err)
	}
	data, err := chain.Decode(encoded, int(entry.DecLength))
	if err != nil {
		return nil, fmt.Errorf("buffer %d: %w", i, err)
	}
	return data, nil
}

// Verify checks every buffer's stored bytes against the index. It
// returns one error per failing buffer; a nil slice means the whole
// container verifies. Verification reads through the file directly
// and does not consult or update the first-access cache.
func (r *Reader) Verify() []error {
	var errs []error
	for i, entry := range r.entries {
		encoded := make([]byte, entry.EncLength)
		if _, err := r.file.ReadAt(encoded, int64(entry.Offset)); err != nil {
			errs = append(errs, fmt.Errorf("reading buffer %d at offset %d: %w", i, entry.Offset, err))
			continue
		}
		if digest.Sum(encoded) != entry.Hash {
			errs = append(errs, fmt.Errorf("buffer %d at offset %d: %w", i, entry.Offset, ErrCorruptBuffer))
			continue
		}
		if _, err := r.decodeBuffer(i, entry, encoded); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// LiveBuffers returns the number of vended mapped views that have not
// been released. Always zero in eager mode.
func (r *Reader) LiveBuffers() int64 {
	return r.gov.Live()
}

// Close releases the reader's resources. In direct mode Close refuses
// with [ErrBuffersLive] while vended mapped views are outstanding;
// the mapping and file stay intact so the views remain valid.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	if r.mapping != nil {
		if live := r.gov.Live(); live > 0 {
			return fmt.Errorf("%s: %d mapped buffers outstanding: %w", r.path, live, ErrBuffersLive)
		}
		if err := unmapFile(r.mapping); err != nil {
			return fmt.Errorf("%s: %w", r.path, err)
		}
		r.mapping = nil
	}
	r.closed = true
	if err := r.file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", r.path, err)
	}
	return nil
}
