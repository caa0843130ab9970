// Copyright (C) 2025 The Tracewire Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Command tracecap connects to a running trace server and saves the raw
// stream to a capture file, until interrupted or the emitter goes away.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
)

type cli struct {
	Connect string `short:"c" default:"127.0.0.1:28765" help:"Trace server address"`
	Output  string `arg:"" help:"Capture file to write"`
}

func main() {
	var params cli
	kong.Parse(&params)
	if err := capture(&params); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func capture(params *cli) error {
	conn, err := net.Dial("tcp", params.Connect)
	if err != nil {
		return err
	}
	defer conn.Close()

	fd, err := os.Create(params.Output)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	n, err := io.Copy(fd, conn)
	if cerr := fd.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	fmt.Printf("wrote %d bytes to %s\n", n, params.Output)
	return nil
}
