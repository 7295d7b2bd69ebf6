// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
)

// Chain is an ordered codec pipeline. Encoding applies the codecs
// first-to-last; decoding applies their inverses last-to-first. An
// empty chain is the identity transformation.
type Chain struct {
	codecs []Codec
}

// NewChain resolves a sequence of codec configurations against the
// registry and returns the composed chain. The configurations are
// kept in encode order. A nil registry uses [Default].
func NewChain(registry Registry, configs []Config) (*Chain, error) {
	if registry == nil {
		registry = Default
	}

	codecs := make([]Codec, len(configs))
	for i, cfg := range configs {
		codec, err := registry.Resolve(cfg)
		if err != nil {
			return nil, fmt.Errorf("resolving codec %d: %w", i, err)
		}
		codecs[i] = codec
	}
	return &Chain{codecs: codecs}, nil
}

// Len returns the number of codecs in the chain.
func (c *Chain) Len() int {
	return len(c.codecs)
}

// Configs returns the configuration of each codec in encode order.
// This is the sequence stored in the container index.
func (c *Chain) Configs() []Config {
	if len(c.codecs) == 0 {
		return nil
	}
	configs := make([]Config, len(c.codecs))
	for i, codec := range c.codecs {
		configs[i] = codec.Config()
	}
	return configs
}

// Encode runs src through every codec in order and returns the final
// encoded bytes. The returned length is authoritative: codecs are
// free to produce output whose size is not predictable from the
// input. For an empty chain, src is returned unchanged (no copy).
func (c *Chain) Encode(src []byte) ([]byte, error) {
	data := src
	for i, codec := range c.codecs {
		encoded, err := codec.Encode(data)
		if err != nil {
			return nil, fmt.Errorf("codec %q (stage %d) encode: %w", codec.Config().ID(), i, err)
		}
		data = encoded
	}
	return data, nil
}

// Decode inverts the chain: codecs are applied in reverse order. The
// decLength is the decoded size declared in the container index; if
// the chain yields a different number of bytes the result is
// discarded and [ErrDecodeMismatch] is returned.
//
// src may be a view into a read-only memory map; the chain never
// writes through it. For an empty chain the result is a fresh copy of
// src so the caller always owns the returned bytes.
func (c *Chain) Decode(src []byte, decLength int) ([]byte, error) {
	var data []byte
	if len(c.codecs) == 0 {
		data = make([]byte, len(src))
		copy(data, src)
	} else {
		data = src
		for i := len(c.codecs) - 1; i >= 0; i-- {
			codec := c.codecs[i]
			decoded, err := codec.Decode(data)
			if err != nil {
				return nil, fmt.Errorf("codec %q (stage %d) decode: %w", codec.Config().ID(), i, err)
			}
			data = decoded
		}
	}

	if len(data) != decLength {
		return nil, fmt.Errorf("%w: got %d bytes, index declares %d", ErrDecodeMismatch, len(data), decLength)
	}
	return data, nil
}
