// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package binpickle

import "sync/atomic"

// governor counts the mapped views derived from a reader that are
// still in use. The reader's Close consults the count and refuses to
// unmap while it is non-zero.
//
// Acquire happens on the goroutine that vends the view; Release may
// come from any goroutine the host runtime uses to drop views, so the
// count is atomic.
type governor struct {
	live atomic.Int64
}

func (g *governor) acquire() *MappingToken {
	g.live.Add(1)
	return &MappingToken{governor: g}
}

// Live returns the number of outstanding mapped views.
func (g *governor) Live() int64 {
	return g.live.Load()
}

// MappingToken pins a reader's memory mapping on behalf of one vended
// view. The reader cannot unmap until every token has been released.
type MappingToken struct {
	governor *governor
	released atomic.Bool
}

// Release drops the token. Safe to call from any goroutine and safe
// to call more than once; only the first call decrements the live
// count.
func (t *MappingToken) Release() {
	if t == nil {
		return
	}
	if t.released.CompareAndSwap(false, true) {
		t.governor.live.Add(-1)
	}
}
