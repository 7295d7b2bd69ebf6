// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/binpickle/lib/binpickle"
	"github.com/bureau-foundation/binpickle/lib/codec"
)

func runRewrite(args []string) error {
	var codecFlags []string
	var mappable bool
	var verbose bool

	flagSet := pflag.NewFlagSet("bpk rewrite", pflag.ContinueOnError)
	flagSet.StringArrayVar(&codecFlags, "codec", nil,
		"codec to apply, as id[:key=value,...] (repeatable; applied in order)")
	flagSet.BoolVar(&mappable, "mappable", false,
		"store buffers raw and page-aligned for memory mapping (excludes --codec)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 2 {
		return fmt.Errorf("usage: bpk rewrite [--codec id[:k=v,...]]... [--mappable] <in> <out>")
	}
	if mappable && len(codecFlags) > 0 {
		return fmt.Errorf("--mappable and --codec are mutually exclusive")
	}
	inPath, outPath := flagSet.Arg(0), flagSet.Arg(1)

	codecs, err := parseCodecFlags(codecFlags)
	if err != nil {
		return err
	}

	logger := newLogger(verbose)
	reader, err := binpickle.Open(inPath, binpickle.ReaderConfig{Logger: logger})
	if err != nil {
		return err
	}
	defer reader.Close()

	writer, err := binpickle.Create(outPath, binpickle.WriterConfig{
		Align:  mappable,
		Codecs: codecs,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer writer.Close()

	for i, entry := range reader.Entries() {
		view, err := reader.GetBuffer(i)
		if err != nil {
			return fmt.Errorf("reading %s: %w", inPath, err)
		}
		err = writer.WriteBuffer(view.Bytes(), binpickle.BufferOptions{
			InfoRaw: entry.Info,
		})
		view.Release()
		if err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
	}

	total, err := writer.Finalize()
	if err != nil {
		return fmt.Errorf("finalizing %s: %w", outPath, err)
	}
	fmt.Printf("%s: %d buffers, %s\n", outPath, reader.Len(), humanize.IBytes(uint64(total)))
	return nil
}

// parseCodecFlags converts --codec values like "zstd:level=9" into
// codec configurations. Option values that parse as integers become
// integers; everything else stays a string.
func parseCodecFlags(flags []string) ([]codec.Config, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	configs := make([]codec.Config, len(flags))
	for i, flag := range flags {
		id, options, _ := strings.Cut(flag, ":")
		if id == "" {
			return nil, fmt.Errorf("--codec %q: missing codec id", flag)
		}
		cfg := codec.Config{"id": id}
		if options != "" {
			for _, pair := range strings.Split(options, ",") {
				key, value, ok := strings.Cut(pair, "=")
				if !ok || key == "" {
					return nil, fmt.Errorf("--codec %q: option %q is not key=value", flag, pair)
				}
				if number, err := strconv.Atoi(value); err == nil {
					cfg[key] = number
				} else {
					cfg[key] = value
				}
			}
		}
		// Fail fast on unknown codecs and bad options before the
		// output file is created.
		if _, err := codec.Default.Resolve(cfg); err != nil {
			return nil, fmt.Errorf("--codec %q: %w", flag, err)
		}
		configs[i] = cfg
	}
	return configs, nil
}
