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

package udp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"time"
)

// mailbox is the subset of foe.Mailbox the gateway drives.
type mailbox interface {
	Get() []byte
	Put(b []byte)
	Send(slave uint16, b []byte, timeout time.Duration) error
	Receive(slave uint16, timeout time.Duration) ([]byte, error)
}

// Gateway exposes a local mailbox (typically a simulator.Simulator)
// over the datagram framing Transport speaks, so transfers can run
// across a socket instead of in-process.
type Gateway struct {
	conn *net.UDPConn
	mbx  mailbox
}

// NewGateway binds a UDP listener on addr and serves mbx through it.
// Pass "127.0.0.1:0" to bind an ephemeral loopback port for tests.
func NewGateway(addr string, mbx mailbox) (*Gateway, error) {
	laddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve listen address %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %q: %w", addr, err)
	}
	tuneSocket(conn)
	return &Gateway{conn: conn, mbx: mbx}, nil
}

// Addr returns the bound listen address.
func (g *Gateway) Addr() net.Addr {
	return g.conn.LocalAddr()
}

// Run serves datagrams until the listener is closed. Each inbound frame
// is delivered to the mailbox, then any replies the mailbox produced
// are sent back to the same peer with the station-address prefix.
func (g *Gateway) Run() error {
	scratch := make([]byte, addrPrefixLen+bufferSize)
	for {
		n, peer, err := g.conn.ReadFromUDP(scratch)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("gateway read: %w", err)
		}
		if n < addrPrefixLen {
			continue
		}
		slave := binary.LittleEndian.Uint16(scratch)

		in := g.mbx.Get()
		frame := copy(in, scratch[addrPrefixLen:n])
		if err := g.mbx.Send(slave, in[:frame], 0); err != nil {
			g.mbx.Put(in)
			continue // the peer sees it as a receive timeout
		}
		g.flush(slave, peer)
	}
}

// flush relays every queued reply for slave back to peer.
func (g *Gateway) flush(slave uint16, peer *net.UDPAddr) {
	for {
		reply, err := g.mbx.Receive(slave, 0)
		if err != nil {
			return
		}
		out := make([]byte, addrPrefixLen+len(reply))
		binary.LittleEndian.PutUint16(out, slave)
		copy(out[addrPrefixLen:], reply)
		g.mbx.Put(reply)
		if _, err := g.conn.WriteToUDP(out, peer); err != nil {
			return
		}
	}
}

// Close stops the listener; a blocked Run returns nil.
func (g *Gateway) Close() error {
	if err := g.conn.Close(); err != nil {
		return fmt.Errorf("close gateway listener: %w", err)
	}
	return nil
}
