// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/binpickle/lib/binpickle"
)

func runVerify(args []string) error {
	var verbose bool

	flagSet := pflag.NewFlagSet("bpk verify", pflag.ContinueOnError)
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: bpk verify <file>")
	}
	path := flagSet.Arg(0)

	// SkipVerify here only disables the redundant per-access check;
	// Verify below reads and checks every buffer regardless. The index
	// digest is always checked during Open.
	reader, err := binpickle.Open(path, binpickle.ReaderConfig{
		SkipVerify: true,
		Logger:     newLogger(verbose),
	})
	if err != nil {
		return err
	}
	defer reader.Close()

	errs := reader.Verify()
	if len(errs) == 0 {
		fmt.Printf("%s: %d buffers, all verified\n", path, reader.Len())
		return nil
	}
	for _, err := range errs {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
	}
	fmt.Printf("%s: %d of %d buffers failed verification\n", path, len(errs), reader.Len())
	return exitError(1)
}
