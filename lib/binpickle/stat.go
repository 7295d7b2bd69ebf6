// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binpickle

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/bureau-foundation/binpickle/lib/frame"
)

// FileStatus classifies the result of a cheap container probe.
type FileStatus int

const (
	// StatusMissing means the path does not exist.
	StatusMissing FileStatus = iota
	// StatusInvalid means the path exists but is not a container
	// (wrong magic, truncated, or an unsupported version).
	StatusInvalid
	// StatusContainer means the file carries a valid header of a
	// supported version. The index is not checked; the file may
	// still fail a full Open.
	StatusContainer
)

// String returns a short label for the status.
func (s FileStatus) String() string {
	switch s {
	case StatusMissing:
		return "missing"
	case StatusInvalid:
		return "invalid"
	case StatusContainer:
		return "container"
	default:
		return fmt.Sprintf("FileStatus(%d)", int(s))
	}
}

// FileInfo is the result of a Stat probe.
type FileInfo struct {
	Status FileStatus
	// Length is the file size in bytes. Zero when Status is
	// StatusMissing.
	Length int64
	// Version is the container format version from the header. Only
	// meaningful when Status is StatusContainer.
	Version uint16
}

// Stat probes path with a single header read and reports whether it
// looks like a container. It never reads the index, so it is cheap
// enough to run against candidate files in bulk.
func Stat(path string) (FileInfo, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return FileInfo{Status: StatusMissing}, nil
	}
	if err != nil {
		return FileInfo{}, fmt.Errorf("probing %s: %w", path, err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	info := FileInfo{Status: StatusInvalid, Length: stat.Size()}
	if stat.Size() < frame.MinFileSize {
		return info, nil
	}

	headerBytes := make([]byte, frame.HeaderSize)
	if _, err := file.ReadAt(headerBytes, 0); err != nil {
		return FileInfo{}, fmt.Errorf("reading header of %s: %w", path, err)
	}
	header, err := frame.DecodeHeader(headerBytes)
	if err != nil {
		return info, nil
	}
	info.Status = StatusContainer
	info.Version = header.Version
	return info, nil
}
