// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package binpickle

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// mapFile establishes a read-only shared mapping of the first length
// bytes of the file. The mapping is strictly read-only at the OS
// level; the OS page cache provides sharing across processes mapping
// the same file.
func mapFile(file *os.File, length int) ([]byte, error) {
	data, err := unix.Mmap(int(file.Fd()), 0, length, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("memory-mapping %s: %w", file.Name(), err)
	}
	return data, nil
}

// unmapFile releases a mapping established by mapFile.
func unmapFile(data []byte) error {
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("unmapping: %w", err)
	}
	return nil
}
