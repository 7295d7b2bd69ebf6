// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binpickle

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/binpickle/lib/frame"
)

func TestStatMissing(t *testing.T) {
	info, err := Stat(filepath.Join(t.TempDir(), "nope.bpk"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Status != StatusMissing {
		t.Errorf("Status = %v, want missing", info.Status)
	}
}

func TestStatInvalid(t *testing.T) {
	cases := map[string][]byte{
		"empty":      {},
		"short":      []byte("BPCK"),
		"wrong type": make([]byte, frame.MinFileSize),
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "file.bin")
			if err := os.WriteFile(path, contents, 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			info, err := Stat(path)
			if err != nil {
				t.Fatalf("Stat: %v", err)
			}
			if info.Status != StatusInvalid {
				t.Errorf("Status = %v, want invalid", info.Status)
			}
			if info.Length != int64(len(contents)) {
				t.Errorf("Length = %d, want %d", info.Length, len(contents))
			}
		})
	}
}

func TestStatContainer(t *testing.T) {
	path := writeContainer(t, WriterConfig{}, []byte("probe me"))
	info, err := Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Status != StatusContainer {
		t.Fatalf("Status = %v, want container", info.Status)
	}
	if info.Version != frame.Version {
		t.Errorf("Version = %d, want %d", info.Version, frame.Version)
	}
	if info.Length < frame.MinFileSize {
		t.Errorf("Length = %d, want at least %d", info.Length, frame.MinFileSize)
	}
}

func TestStatUnsupportedVersionIsInvalid(t *testing.T) {
	path := writeContainer(t, WriterConfig{}, []byte("x"))
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	raw[4] = 1
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	info, err := Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Status != StatusInvalid {
		t.Errorf("Status = %v for a version-1 file, want invalid", info.Status)
	}
}
