// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// bpk inspects and rewrites container files.
//
// Three subcommands:
//
//	bpk info file.bpk          print container summary (--buffers for a table)
//	bpk verify file.bpk        check every buffer digest
//	bpk rewrite in.bpk out.bpk rewrite with a different codec chain
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bureau-foundation/binpickle/lib/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if coder, ok := err.(interface{ ExitCode() int }); ok {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `bpk - inspect and rewrite container files

USAGE
    bpk info [--buffers] [--json] <file>
    bpk verify <file>
    bpk rewrite [--codec id[:k=v,...]]... [--mappable] <in> <out>

Run "bpk <command> --help" for command-specific flags.
`

func run(args []string) error {
	if len(args) == 0 {
		fmt.Print(usage)
		return nil
	}

	command, rest := args[0], args[1:]
	switch command {
	case "info":
		return runInfo(rest)
	case "verify":
		return runVerify(rest)
	case "rewrite":
		return runRewrite(rest)
	case "--help", "-h", "help":
		fmt.Print(usage)
		return nil
	case "--version", "version":
		fmt.Printf("bpk %s\n", version.Info())
		return nil
	default:
		return fmt.Errorf("unknown command %q (expected info, verify, or rewrite)", command)
	}
}

// newLogger builds the CLI logger. Verbose enables debug traces from
// the container reader and writer.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitError carries a specific process exit code without printing a
// redundant error line; commands that produce their own report (like
// verify) use it.
type exitError int

func (e exitError) Error() string {
	return fmt.Sprintf("exit code %d", int(e))
}

func (e exitError) ExitCode() int {
	return int(e)
}
