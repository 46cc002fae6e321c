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

//go:build linux

package udp

import (
	"net"

	"golang.org/x/sys/unix"
)

// socketBufferSize covers a full burst of mailbox-sized datagrams so a
// slow reader does not drop replies mid-transfer.
const socketBufferSize = 64 * (addrPrefixLen + bufferSize)

// iptosLowDelay is the IP_TOS low-delay bit (RFC 791); x/sys/unix does
// not define the IPTOS_* values.
const iptosLowDelay = 0x10

// tuneSocket widens the kernel socket buffers and marks the traffic
// low-delay. Failures are ignored: defaults still work, just slower.
func tuneSocket(conn *net.UDPConn) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, socketBufferSize)
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, socketBufferSize)
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, iptosLowDelay)
	})
}
