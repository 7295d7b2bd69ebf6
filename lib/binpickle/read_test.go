// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binpickle

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/bureau-foundation/binpickle/lib/codec"
	"github.com/bureau-foundation/binpickle/lib/frame"
)

func mmapSupported() bool {
	return runtime.GOOS == "linux" || runtime.GOOS == "darwin"
}

func TestRoundTripEager(t *testing.T) {
	buffers := [][]byte{
		[]byte("hello"),
		[]byte("world"),
		nil,
		bytes.Repeat([]byte{0xCE}, 10000),
	}
	configs := map[string]WriterConfig{
		"raw":     {},
		"aligned": {Align: true},
		"zstd":    {Codecs: []codec.Config{codec.Zstd(3)}},
		"stacked": {Codecs: []codec.Config{codec.LZ4(), codec.Gzip(1)}},
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			path := writeContainer(t, cfg, buffers...)
			reader, err := Open(path, ReaderConfig{})
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer reader.Close()

			if reader.Len() != len(buffers) {
				t.Fatalf("Len = %d, want %d", reader.Len(), len(buffers))
			}
			for i, want := range buffers {
				view, err := reader.GetBuffer(i)
				if err != nil {
					t.Fatalf("GetBuffer(%d): %v", i, err)
				}
				if !bytes.Equal(view.Bytes(), want) {
					t.Errorf("buffer %d: got %d bytes, want %d", i, len(view.Bytes()), len(want))
				}
				if view.Mapped() {
					t.Errorf("buffer %d: eager view reports mapped", i)
				}
				view.Release()
			}
		})
	}
}

func TestRoundTripMapped(t *testing.T) {
	if !mmapSupported() {
		t.Skipf("no mmap support on %s", runtime.GOOS)
	}
	buffers := [][]byte{
		bytes.Repeat([]byte{0x11}, 100),
		bytes.Repeat([]byte{0x22}, 9000),
	}
	path := writeContainer(t, WriterConfig{Align: true}, buffers...)

	reader, err := Open(path, ReaderConfig{Direct: true})
	if err != nil {
		t.Fatalf("Open direct: %v", err)
	}
	defer reader.Close()

	if !reader.IsMappable() {
		t.Error("IsMappable = false for an all-raw container")
	}
	for i, want := range buffers {
		view, err := reader.GetBuffer(i)
		if err != nil {
			t.Fatalf("GetBuffer(%d): %v", i, err)
		}
		if !view.Mapped() {
			t.Errorf("buffer %d: raw view in direct mode is not mapped", i)
		}
		if !bytes.Equal(view.Bytes(), want) {
			t.Errorf("buffer %d: contents differ", i)
		}
		view.Release()
	}
}

func TestMappedCompressedBufferIsCopied(t *testing.T) {
	if !mmapSupported() {
		t.Skipf("no mmap support on %s", runtime.GOOS)
	}
	payload := bytes.Repeat([]byte{3, 1, 4}, 2000)
	path := writeContainer(t, WriterConfig{Codecs: []codec.Config{codec.Zstd(3)}}, payload)

	reader, err := Open(path, ReaderConfig{Direct: true})
	if err != nil {
		t.Fatalf("Open direct: %v", err)
	}
	defer reader.Close()

	if reader.IsMappable() {
		t.Error("IsMappable = true for a compressed container")
	}
	view, err := reader.GetBuffer(0)
	if err != nil {
		t.Fatalf("GetBuffer: %v", err)
	}
	if view.Mapped() {
		t.Error("compressed view reports mapped, want owned copy")
	}
	if !bytes.Equal(view.Bytes(), payload) {
		t.Error("decoded contents differ from the written payload")
	}
	if reader.LiveBuffers() != 0 {
		t.Errorf("LiveBuffers = %d after vending an owned view, want 0", reader.LiveBuffers())
	}
}

func TestCloseRefusesWhileViewsLive(t *testing.T) {
	if !mmapSupported() {
		t.Skipf("no mmap support on %s", runtime.GOOS)
	}
	path := writeContainer(t, WriterConfig{Align: true}, bytes.Repeat([]byte{9}, 500))

	reader, err := Open(path, ReaderConfig{Direct: true})
	if err != nil {
		t.Fatalf("Open direct: %v", err)
	}
	view, err := reader.GetBuffer(0)
	if err != nil {
		t.Fatalf("GetBuffer: %v", err)
	}
	if reader.LiveBuffers() != 1 {
		t.Fatalf("LiveBuffers = %d, want 1", reader.LiveBuffers())
	}

	if err := reader.Close(); !errors.Is(err, ErrBuffersLive) {
		t.Fatalf("Close with a live view = %v, want ErrBuffersLive", err)
	}

	// The refused Close must leave the mapping usable.
	if view.Bytes()[0] != 9 {
		t.Error("view unreadable after refused Close")
	}

	view.Release()
	view.Release() // idempotent
	if reader.LiveBuffers() != 0 {
		t.Fatalf("LiveBuffers = %d after release, want 0", reader.LiveBuffers())
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("Close after release: %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Errorf("second Close: %v, want nil", err)
	}
}

func TestGetBufferOutOfRange(t *testing.T) {
	path := writeContainer(t, WriterConfig{}, []byte("only"))
	reader, err := Open(path, ReaderConfig{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	for _, i := range []int{-1, 1, 100} {
		if _, err := reader.GetBuffer(i); err == nil {
			t.Errorf("GetBuffer(%d) succeeded, want error", i)
		}
	}
}

func TestGetBufferAfterClose(t *testing.T) {
	path := writeContainer(t, WriterConfig{}, []byte("x"))
	reader, err := Open(path, ReaderConfig{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := reader.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := reader.GetBuffer(0); !errors.Is(err, ErrClosed) {
		t.Errorf("GetBuffer after Close = %v, want ErrClosed", err)
	}
}

func TestOpenRejectsTruncatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bpk")
	if err := os.WriteFile(path, []byte("BPCK"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path, ReaderConfig{}); !errors.Is(err, frame.ErrMalformedFrame) {
		t.Fatalf("Open of truncated file = %v, want ErrMalformedFrame", err)
	}
}

func TestOpenRejectsUnsupportedVersion(t *testing.T) {
	path := writeContainer(t, WriterConfig{}, []byte("x"))
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	raw[4] = 1 // version field, little-endian low byte
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path, ReaderConfig{}); !errors.Is(err, frame.ErrUnsupportedVersion) {
		t.Fatalf("Open of version-1 file = %v, want ErrUnsupportedVersion", err)
	}
}

func TestOpenRejectsCorruptIndex(t *testing.T) {
	path := writeContainer(t, WriterConfig{}, []byte("hello"), []byte("world"))
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	trailer, err := frame.DecodeTrailer(raw[len(raw)-frame.TrailerSize:])
	if err != nil {
		t.Fatalf("DecodeTrailer: %v", err)
	}
	raw[trailer.IndexOffset] ^= 0xFF
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Open(path, ReaderConfig{}); !errors.Is(err, ErrCorruptIndex) {
		t.Fatalf("Open with bit-flipped index = %v, want ErrCorruptIndex", err)
	}
}

func TestOpenRejectsInconsistentTrailer(t *testing.T) {
	path := writeContainer(t, WriterConfig{}, []byte("hello"))
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// Move the declared index offset back by one byte by flipping its
	// lowest bit (21 becomes 20).
	raw[len(raw)-frame.TrailerSize] ^= 0x01
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Open(path, ReaderConfig{}); !errors.Is(err, frame.ErrMalformedFrame) {
		t.Fatalf("Open with inconsistent trailer = %v, want ErrMalformedFrame", err)
	}
}

func TestCorruptBufferDetectedOnAccess(t *testing.T) {
	first := []byte("pristine first buffer")
	second := bytes.Repeat([]byte{0x5A}, 300)
	path := writeContainer(t, WriterConfig{}, first, second)

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	// Flip a byte in the middle of the second buffer's span.
	raw[frame.HeaderSize+len(first)+150] ^= 0xFF
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	reader, err := Open(path, ReaderConfig{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	view, err := reader.GetBuffer(0)
	if err != nil {
		t.Fatalf("GetBuffer(0) on the intact buffer: %v", err)
	}
	if !bytes.Equal(view.Bytes(), first) {
		t.Error("intact buffer contents differ")
	}

	if _, err := reader.GetBuffer(1); !errors.Is(err, ErrCorruptBuffer) {
		t.Fatalf("GetBuffer(1) on the corrupted buffer = %v, want ErrCorruptBuffer", err)
	}
	// The reader is not poisoned by a corrupt buffer.
	if _, err := reader.GetBuffer(0); err != nil {
		t.Errorf("GetBuffer(0) after a corruption error: %v", err)
	}

	t.Run("skip verify", func(t *testing.T) {
		unchecked, err := Open(path, ReaderConfig{SkipVerify: true})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer unchecked.Close()
		view, err := unchecked.GetBuffer(1)
		if err != nil {
			t.Fatalf("GetBuffer with SkipVerify: %v", err)
		}
		if bytes.Equal(view.Bytes(), second) {
			t.Error("corrupted buffer read back unchanged")
		}
	})

	t.Run("verify scan", func(t *testing.T) {
		errs := reader.Verify()
		if len(errs) != 1 {
			t.Fatalf("Verify returned %d errors, want 1: %v", len(errs), errs)
		}
		if !errors.Is(errs[0], ErrCorruptBuffer) {
			t.Errorf("Verify error = %v, want ErrCorruptBuffer", errs[0])
		}
	})
}

func TestVerifyCleanContainer(t *testing.T) {
	path := writeContainer(t, WriterConfig{Codecs: []codec.Config{codec.Gzip(6)}},
		[]byte("hello"), []byte("world"), nil)
	reader, err := Open(path, ReaderConfig{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()
	if errs := reader.Verify(); len(errs) != 0 {
		t.Errorf("Verify on a clean container returned %v", errs)
	}
}

func TestReaderEntriesMatchWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bpk")
	writer, err := Create(path, WriterConfig{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := writer.WriteBuffer([]byte("payload"), BufferOptions{
		Info: map[string]any{"kind": "greeting"},
	}); err != nil {
		t.Fatalf("WriteBuffer: %v", err)
	}
	if _, err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	written := writer.Entries()
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader, err := Open(path, ReaderConfig{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	read := reader.Entries()
	if len(read) != 1 {
		t.Fatalf("reader has %d entries, want 1", len(read))
	}
	if read[0].Offset != written[0].Offset || read[0].Hash != written[0].Hash {
		t.Error("reader entry differs from writer entry")
	}
	info, err := read[0].DecodeInfo()
	if err != nil {
		t.Fatalf("DecodeInfo: %v", err)
	}
	if info["kind"] != "greeting" {
		t.Errorf("info = %v, want kind=greeting", info)
	}
}
