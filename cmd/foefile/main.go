// go-foe
// Copyright (c) 2025 The go-foe Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-foe.
//
// go-foe is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-foe is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-foe; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// foefile uploads and downloads files on EtherCAT slaves over FoE,
// talking to a mailbox gateway via UDP.
//
//	foefile -gateway 10.0.0.5 -slave 1 -read app.bin -out app.bin
//	foefile -gateway 10.0.0.5 -slave 1 -write firmware.bin -name fw.efw
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	foe "github.com/seantywork/go-foe"
	"github.com/seantywork/go-foe/transport/udp"
)

// maxReadSize bounds the download buffer; FoE carries no size
// negotiation, so the master must allocate up front.
const maxReadSize = 64 << 20

type config struct {
	gateway     *string
	readFile    *string
	writeFile   *string
	remoteName  *string
	outFile     *string
	slave       *uint
	mailboxSize *int
	password    *uint64
	timeout     *time.Duration
	debug       *bool
	quiet       *bool
}

func parseFlags() *config {
	cfg := &config{
		gateway: flag.String("gateway", "",
			"Mailbox gateway address (host or host:port; default port is the EtherCAT UDP port)"),
		slave:       flag.Uint("slave", 0, "Station address of the target slave"),
		mailboxSize: flag.Int("mailbox", 128, "Mailbox size of the target slave in bytes"),
		readFile:    flag.String("read", "", "Remote file to download"),
		writeFile:   flag.String("write", "", "Local file to upload"),
		remoteName: flag.String("name", "",
			"Remote filename for uploads (defaults to the local filename)"),
		outFile: flag.String("out", "",
			"Local destination for downloads (defaults to the remote filename)"),
		password: flag.Uint64("password", 0, "FoE password (0 if the slave requires none)"),
		timeout:  flag.Duration("timeout", 0, "Per-exchange timeout (0 uses the protocol default)"),
		debug:    flag.Bool("debug", false, "Enable debug output"),
		quiet:    flag.Bool("quiet", false, "Suppress per-packet progress output"),
	}
	flag.Parse()

	if *cfg.debug {
		foe.SetDebugEnabled(true)
	}

	return cfg
}

func validateFlags(cfg *config) error {
	if *cfg.gateway == "" {
		return errors.New("missing -gateway address")
	}
	if *cfg.slave == 0 || *cfg.slave > 0xffff {
		return errors.New("-slave must be a station address in 1..65535")
	}
	if *cfg.password > 0xffffffff {
		return errors.New("-password does not fit in 32 bits")
	}
	if (*cfg.readFile == "") == (*cfg.writeFile == "") {
		return errors.New("specify exactly one of -read or -write")
	}
	return nil
}

func connectMaster(cfg *config) (*foe.Master, *udp.Transport, error) {
	tr, err := udp.New(*cfg.gateway)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reach gateway: %w", err)
	}

	opts := []foe.Option{foe.WithRetryConfig(foe.DefaultRetryConfig())}
	if *cfg.timeout > 0 {
		opts = append(opts, foe.WithTimeout(*cfg.timeout))
	}
	if !*cfg.quiet {
		opts = append(opts, foe.WithProgressHook(printProgress))
	}

	master, err := foe.New(tr, opts...)
	if err != nil {
		_ = tr.Close()
		return nil, nil, fmt.Errorf("failed to create master: %w", err)
	}
	if err := master.RegisterSlave(uint16(*cfg.slave), *cfg.mailboxSize); err != nil {
		_ = tr.Close()
		return nil, nil, fmt.Errorf("failed to register slave %d: %w", *cfg.slave, err)
	}
	return master, tr, nil
}

func printProgress(slave uint16, packet uint32, bytes int) {
	_, _ = fmt.Printf("slave %d: packet %d (%d bytes)\n", slave, packet, bytes)
}

func runRead(ctx context.Context, master *foe.Master, cfg *config) error {
	out := *cfg.outFile
	if out == "" {
		out = *cfg.readFile
	}

	buf := make([]byte, maxReadSize)
	n, err := master.ReadContext(ctx, uint16(*cfg.slave), *cfg.readFile,
		uint32(*cfg.password), buf, *cfg.timeout)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.WriteFile(out, buf[:n], 0o600); err != nil {
		return fmt.Errorf("failed to save %q: %w", out, err)
	}
	_, _ = fmt.Printf("downloaded %s -> %s (%d bytes)\n", *cfg.readFile, out, n)
	return nil
}

func runWrite(ctx context.Context, master *foe.Master, cfg *config) error {
	data, err := os.ReadFile(*cfg.writeFile)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", *cfg.writeFile, err)
	}

	name := *cfg.remoteName
	if name == "" {
		name = *cfg.writeFile
	}

	if err := master.WriteContext(ctx, uint16(*cfg.slave), name,
		uint32(*cfg.password), data, *cfg.timeout); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	_, _ = fmt.Printf("uploaded %s -> %s (%d bytes)\n", *cfg.writeFile, name, len(data))
	return nil
}

func run() error {
	cfg := parseFlags()
	if err := validateFlags(cfg); err != nil {
		flag.Usage()
		return err
	}

	master, tr, err := connectMaster(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = tr.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *cfg.readFile != "" {
		return runRead(ctx, master, cfg)
	}
	return runWrite(ctx, master, cfg)
}

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}
