// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !darwin && !linux

package binpickle

import (
	"fmt"
	"os"
	"runtime"
)

// Mapped (direct) mode relies on POSIX mmap semantics; on other
// platforms Open with Direct set fails and callers fall back to eager
// mode.

func mapFile(file *os.File, length int) ([]byte, error) {
	return nil, fmt.Errorf("memory-mapped mode is not supported on %s", runtime.GOOS)
}

func unmapFile(data []byte) error {
	return nil
}
