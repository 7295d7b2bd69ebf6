// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Null returns the configuration for the identity codec. Useful in
// tests and as a placeholder stage in codec chains.
func Null() Config {
	return Config{"id": "null"}
}

// Zstd returns the configuration for zstd compression at the given
// level (zstd levels 1-22; 3 is the usual default).
func Zstd(level int) Config {
	return Config{"id": "zstd", "level": level}
}

// Gzip returns the configuration for gzip compression at the given
// level (gzip levels 1-9).
func Gzip(level int) Config {
	return Config{"id": "gzip", "level": level}
}

// LZ4 returns the configuration for LZ4 block compression.
func LZ4() Config {
	return Config{"id": "lz4"}
}

// Null codec: identity.

type nullCodec struct{}

func newNull(cfg Config) (Codec, error) {
	return nullCodec{}, nil
}

func (nullCodec) Encode(src []byte) ([]byte, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func (nullCodec) Decode(src []byte) ([]byte, error) {
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func (nullCodec) Config() Config {
	return Config{"id": "null"}
}

// Zstd codec.

// zstdDecoder is shared across all zstd codec instances: decoding is
// level-independent and zstd.Decoder is safe for concurrent use.
var zstdDecoder *zstd.Decoder

func init() {
	var err error
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

type zstdCodec struct {
	level   int
	encoder *zstd.Encoder
}

func newZstd(cfg Config) (Codec, error) {
	level, err := intOption(cfg, "level", 3)
	if err != nil {
		return nil, err
	}
	if level < 1 || level > 22 {
		return nil, fmt.Errorf("zstd level %d out of range [1, 22]", level)
	}

	// Encoders are per-instance because the level is baked in at
	// construction. zstd.Encoder is safe for concurrent EncodeAll.
	encoder, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder initialization: %w", err)
	}
	return &zstdCodec{level: level, encoder: encoder}, nil
}

func (c *zstdCodec) Encode(src []byte) ([]byte, error) {
	return c.encoder.EncodeAll(src, nil), nil
}

func (c *zstdCodec) Decode(src []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}

func (c *zstdCodec) Config() Config {
	return Config{"id": "zstd", "level": c.level}
}

// Gzip codec.

type gzipCodec struct {
	level int
}

func newGzip(cfg Config) (Codec, error) {
	level, err := intOption(cfg, "level", gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if level != gzip.DefaultCompression && (level < gzip.HuffmanOnly || level > gzip.BestCompression) {
		return nil, fmt.Errorf("gzip level %d out of range", level)
	}
	return &gzipCodec{level: level}, nil
}

func (c *gzipCodec) Encode(src []byte) ([]byte, error) {
	var buffer bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buffer, c.level)
	if err != nil {
		return nil, fmt.Errorf("gzip encoder initialization: %w", err)
	}
	if _, err := writer.Write(src); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("gzip compress: %w", err)
	}
	return buffer.Bytes(), nil
}

func (c *gzipCodec) Decode(src []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	if err := reader.Close(); err != nil {
		return nil, fmt.Errorf("gzip decompress: %w", err)
	}
	return out, nil
}

func (c *gzipCodec) Config() Config {
	return Config{"id": "gzip", "level": c.level}
}

// LZ4 codec: block-mode LZ4 with a small self-describing frame. The
// block API needs the decoded size up front and cannot represent
// incompressible data, so the encoded form is:
//
//	u32 little-endian decoded length
//	u8 flag: 0 = raw bytes follow, 1 = LZ4 block follows
//	payload
//
// Raw storage is used when LZ4 cannot shrink the input.

const (
	lz4FrameHeaderSize = 5
	lz4FlagRaw         = 0
	lz4FlagBlock       = 1
)

type lz4Codec struct{}

func newLZ4(cfg Config) (Codec, error) {
	return lz4Codec{}, nil
}

func (lz4Codec) Encode(src []byte) ([]byte, error) {
	if len(src) > int(^uint32(0)) {
		return nil, fmt.Errorf("lz4 compress: input of %d bytes exceeds block limit", len(src))
	}

	header := make([]byte, lz4FrameHeaderSize)
	binary.LittleEndian.PutUint32(header, uint32(len(src)))

	bound := lz4.CompressBlockBound(len(src))
	destination := make([]byte, bound)
	written, err := lz4.CompressBlock(src, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}

	// CompressBlock returns 0 when it determines the data is
	// incompressible; store such buffers raw.
	if written == 0 || written >= len(src) {
		header[4] = lz4FlagRaw
		return append(header, src...), nil
	}

	header[4] = lz4FlagBlock
	return append(header, destination[:written]...), nil
}

func (lz4Codec) Decode(src []byte) ([]byte, error) {
	if len(src) < lz4FrameHeaderSize {
		return nil, fmt.Errorf("lz4 decompress: input of %d bytes is shorter than the frame header", len(src))
	}
	decodedLength := int(binary.LittleEndian.Uint32(src))
	flag := src[4]
	payload := src[lz4FrameHeaderSize:]

	switch flag {
	case lz4FlagRaw:
		if len(payload) != decodedLength {
			return nil, fmt.Errorf("lz4 decompress: raw payload is %d bytes, header declares %d", len(payload), decodedLength)
		}
		out := make([]byte, decodedLength)
		copy(out, payload)
		return out, nil

	case lz4FlagBlock:
		out := make([]byte, decodedLength)
		read, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != decodedLength {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, header declares %d", read, decodedLength)
		}
		return out, nil

	default:
		return nil, fmt.Errorf("lz4 decompress: unknown frame flag %d", flag)
	}
}

func (lz4Codec) Config() Config {
	return Config{"id": "lz4"}
}
