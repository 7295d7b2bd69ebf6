// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/binpickle/lib/binpickle"
	"github.com/bureau-foundation/binpickle/lib/digest"
	"github.com/bureau-foundation/binpickle/lib/frame"
)

func runInfo(args []string) error {
	var showBuffers bool
	var jsonOutput bool
	var verbose bool

	flagSet := pflag.NewFlagSet("bpk info", pflag.ContinueOnError)
	flagSet.BoolVar(&showBuffers, "buffers", false, "print a per-buffer table")
	flagSet.BoolVar(&jsonOutput, "json", false, "machine-readable output")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: bpk info [--buffers] [--json] <file>")
	}
	path := flagSet.Arg(0)

	probe, err := binpickle.Stat(path)
	if err != nil {
		return err
	}
	if probe.Status != binpickle.StatusContainer {
		return fmt.Errorf("%s: %s (not a container file)", path, probe.Status)
	}

	reader, err := binpickle.Open(path, binpickle.ReaderConfig{
		SkipVerify: true,
		Logger:     newLogger(verbose),
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	entries := reader.Entries()
	var decoded, encoded uint64
	for _, entry := range entries {
		decoded += entry.DecLength
		encoded += entry.EncLength
	}

	if jsonOutput {
		return printInfoJSON(os.Stdout, path, probe, entries, decoded, encoded)
	}

	fmt.Printf("%s: container version %d, %s\n", path, probe.Version, humanize.IBytes(uint64(probe.Length)))
	fmt.Printf("  buffers:  %d\n", len(entries))
	fmt.Printf("  decoded:  %s\n", humanize.IBytes(decoded))
	fmt.Printf("  encoded:  %s\n", humanize.IBytes(encoded))
	fmt.Printf("  mappable: %v\n", reader.IsMappable())

	if showBuffers {
		fmt.Println()
		writer := tabwriter.NewWriter(os.Stdout, 2, 8, 2, ' ', 0)
		fmt.Fprintln(writer, "#\tOFFSET\tENCODED\tDECODED\tCODECS\tDIGEST")
		for i, entry := range entries {
			fmt.Fprintf(writer, "%d\t%d\t%s\t%s\t%s\t%s\n",
				i,
				entry.Offset,
				humanize.IBytes(entry.EncLength),
				humanize.IBytes(entry.DecLength),
				codecSummary(entry),
				digest.Format(entry.Hash)[:12])
		}
		if err := writer.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func codecSummary(entry frame.IndexEntry) string {
	if len(entry.Codecs) == 0 {
		return "-"
	}
	ids := make([]string, len(entry.Codecs))
	for i, cfg := range entry.Codecs {
		ids[i] = cfg.ID()
	}
	return strings.Join(ids, ",")
}

type bufferJSON struct {
	Offset    uint64   `json:"offset"`
	EncLength uint64   `json:"enc_length"`
	DecLength uint64   `json:"dec_length"`
	Codecs    []string `json:"codecs,omitempty"`
	Digest    string   `json:"digest"`
}

type infoJSON struct {
	Path     string       `json:"path"`
	Version  uint16       `json:"version"`
	Length   int64        `json:"length"`
	Decoded  uint64       `json:"decoded"`
	Encoded  uint64       `json:"encoded"`
	Mappable bool         `json:"mappable"`
	Buffers  []bufferJSON `json:"buffers"`
}

func printInfoJSON(out *os.File, path string, probe binpickle.FileInfo, entries []frame.IndexEntry, decoded, encoded uint64) error {
	report := infoJSON{
		Path:    path,
		Version: probe.Version,
		Length:  probe.Length,
		Decoded: decoded,
		Encoded: encoded,
		Buffers: make([]bufferJSON, len(entries)),
	}
	report.Mappable = true
	for i, entry := range entries {
		var ids []string
		for _, cfg := range entry.Codecs {
			ids = append(ids, cfg.ID())
		}
		if len(ids) > 0 {
			report.Mappable = false
		}
		report.Buffers[i] = bufferJSON{
			Offset:    entry.Offset,
			EncLength: entry.EncLength,
			DecLength: entry.DecLength,
			Codecs:    ids,
			Digest:    digest.Format(entry.Hash),
		}
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
