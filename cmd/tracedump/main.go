// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Command tracedump decodes a trace capture and prints one event per line.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"github.com/tracewire/tracewire/lib/parser"
	"github.com/tracewire/tracewire/lib/trace"
)

type cli struct {
	File   string `arg:"" optional:"" help:"Capture file (default: stdin)"`
	Schema bool   `short:"s" help:"Also print schema and endianness events"`
}

func main() {
	var params cli
	kong.Parse(&params)
	if err := dump(&params); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func dump(params *cli) error {
	var in io.Reader = os.Stdin
	if params.File != "" {
		fd, err := os.Open(params.File)
		if err != nil {
			return err
		}
		defer fd.Close()
		in = fd
	}

	p := parser.New(bufio.NewReader(in))
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for {
		ev, err := p.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !params.Schema && ev.Klass.ID != trace.BaseEventKlassID && parser.IsWellKnown(ev.Klass.ID) {
			continue
		}
		fmt.Fprintln(out, ev)
	}
}
