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

// Package udp carries mailbox buffers over UDP to a mailbox gateway, so
// FoE transfers can reach slaves without a kernel EtherCAT stack.
//
// Each datagram is a 2-byte little-endian station address followed by
// the raw mailbox frame. The Gateway type implements the server side of
// the same framing on top of any foe.Mailbox.
package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	foe "github.com/seantywork/go-foe"
)

// Port is the IANA-assigned EtherCAT UDP port.
const Port = 0x88a4

// addrPrefixLen is the station-address prefix on each datagram.
const addrPrefixLen = 2

// bufferSize matches the largest mailbox an EtherCAT slave may report.
const bufferSize = 1486

// Transport is a foe.Mailbox over a connected UDP socket.
//
// Receive matches replies by station address and drops datagrams for
// other slaves; interleaving transfers to different slaves over one
// Transport therefore needs external serialization, same as the FoE
// layer above it.
type Transport struct {
	conn *net.UDPConn
	pool *foe.BufferPool
	mu   sync.Mutex
}

// New connects to a mailbox gateway at addr ("host:port"; an empty port
// selects the EtherCAT UDP port).
func New(addr string) (*Transport, error) {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, fmt.Sprintf("%d", Port))
	}
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve gateway address %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("connect to gateway %q: %w", addr, err)
	}
	tuneSocket(conn)
	return &Transport{
		conn: conn,
		pool: foe.NewBufferPool(bufferSize),
	}, nil
}

// Get implements foe.Mailbox.
func (t *Transport) Get() []byte {
	return t.pool.Get()
}

// Put implements foe.Mailbox.
func (t *Transport) Put(b []byte) {
	t.pool.Put(b)
}

// Send implements foe.Mailbox: b is prefixed with the station address
// and written as one datagram.
func (t *Transport) Send(slave uint16, b []byte, timeout time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	datagram := make([]byte, addrPrefixLen+len(b))
	binary.LittleEndian.PutUint16(datagram, slave)
	copy(datagram[addrPrefixLen:], b)

	if timeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return foe.NewMailboxError("send", slave, err, foe.ErrorTypePermanent)
		}
	}
	if _, err := t.conn.Write(datagram); err != nil {
		return foe.NewMailboxError("send", slave,
			fmt.Errorf("%w: %w", foe.ErrMailboxWrite, err), foe.ErrorTypeTransient)
	}
	t.pool.Put(b)
	return nil
}

// Receive implements foe.Mailbox, blocking up to timeout for a datagram
// addressed from the requested slave. Datagrams from other slaves are
// dropped. A zero timeout polls without blocking.
func (t *Transport) Receive(slave uint16, timeout time.Duration) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// A zero timeout is a poll. The deadline still has to sit slightly
	// in the future: an already-expired deadline fails the read before
	// datagrams buffered in the socket are delivered.
	if timeout <= 0 {
		timeout = time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, foe.NewMailboxError("receive", slave, err, foe.ErrorTypePermanent)
	}

	scratch := make([]byte, addrPrefixLen+bufferSize)
	for {
		n, err := t.conn.Read(scratch)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return nil, foe.NewTimeoutError("receive", slave)
			}
			return nil, foe.NewMailboxError("receive", slave,
				fmt.Errorf("%w: %w", foe.ErrMailboxRead, err), foe.ErrorTypeTransient)
		}
		if n < addrPrefixLen {
			continue
		}
		if binary.LittleEndian.Uint16(scratch) != slave {
			continue // reply for a different station
		}
		b := t.pool.Get()
		payload := copy(b, scratch[addrPrefixLen:n])
		return b[:payload], nil
	}
}

// Close releases the socket.
func (t *Transport) Close() error {
	if err := t.conn.Close(); err != nil {
		return fmt.Errorf("close gateway connection: %w", err)
	}
	return nil
}

// LocalAddr returns the local UDP address of the transport socket.
func (t *Transport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}
