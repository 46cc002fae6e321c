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

/*
Package foe implements the master side of File over EtherCAT (FoE), the
segmented file-transfer service carried over an EtherCAT slave's mailbox.

FoE is a lock-step, stop-and-wait protocol: the master sends a READ or
WRITE request, then exchanges bounded-size DATA segments with the slave,
one at a time, each acknowledged before the next is sent. End of file is
signalled by a DATA segment shorter than the slave's maximum segment size;
when the file length is an exact multiple of that size, a trailing
zero-length segment disambiguates.

The package is transport-agnostic: transfers run over any implementation
of the Mailbox interface. A UDP mailbox-gateway transport is provided in
transport/udp, and an in-memory simulated slave for testing lives in the
simulator package.

Features:
  - Blocking read and write transfers with per-segment acknowledgement
  - BUSY flow-control handling with exact segment replay
  - Distinct error values per protocol failure kind
  - Optional progress hook invoked once per exchanged segment
  - Optional transport-level retry with configurable backoff
  - Debug logging switchable at runtime

Basic Usage:

	import (
	    foe "github.com/seantywork/go-foe"
	    "github.com/seantywork/go-foe/transport/udp"
	)

	// Connect to a mailbox gateway
	mbx, err := udp.New("192.168.2.10:34980")
	if err != nil {
	    log.Fatal(err)
	}
	defer mbx.Close()

	// Create the FoE master and register the slave's mailbox size
	master, err := foe.New(mbx, foe.WithTimeout(700*time.Millisecond))
	if err != nil {
	    log.Fatal(err)
	}
	if err := master.RegisterSlave(1, 256); err != nil {
	    log.Fatal(err)
	}

	// Write a firmware image to slave 1
	img, _ := os.ReadFile("boot.bin")
	if err := master.Write(1, "boot.bin", 0, img, 0); err != nil {
	    log.Fatal(err)
	}

	// Read it back
	buf := make([]byte, len(img))
	n, err := master.Read(1, "boot.bin", 0, buf, 0)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("read %d bytes\n", n)

Transfers to the same slave must be serialized by the caller; the Master
itself adds no locking around the per-slave mailbox session.
*/
package foe
