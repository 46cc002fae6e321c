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

package foe

import (
	"sync"
	"time"
)

// Mailbox is the transport that carries raw mailbox buffers between the
// master and a slave. Implementations exist for a UDP mailbox gateway
// (transport/udp) and for an in-memory simulated slave (simulator).
//
// Buffer discipline: every buffer obtained from Get or Receive must be
// returned with Put exactly once. Buffers are invalid after Put and after
// a successful Send.
type Mailbox interface {
	// Get returns a zero-filled outgoing buffer large enough for any
	// slave's mailbox on this transport.
	Get() []byte

	// Put returns a buffer obtained from Get or Receive to the transport.
	Put(b []byte)

	// Send delivers b to the slave's write mailbox, blocking up to
	// timeout for the slave to accept it. On success the transport takes
	// the buffer back; the caller must not Put it again.
	Send(slave uint16, b []byte, timeout time.Duration) error

	// Receive blocks up to timeout for a frame from the slave's read
	// mailbox. A zero timeout polls without blocking, returning
	// ErrMailboxTimeout when nothing is pending. The returned buffer
	// must be released with Put.
	Receive(slave uint16, timeout time.Duration) ([]byte, error)
}

// MailboxCloser is implemented by transports holding OS resources.
type MailboxCloser interface {
	Mailbox
	Close() error
}

// BufferPool recycles mailbox buffers of a fixed size. Transports embed
// it to implement Get and Put.
type BufferPool struct {
	pool sync.Pool
	size int
}

// NewBufferPool creates a pool handing out zero-filled buffers of the
// given size.
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		size: size,
		pool: sync.Pool{
			New: func() any { return make([]byte, size) },
		},
	}
}

// Get returns a zero-filled buffer from the pool.
func (p *BufferPool) Get() []byte {
	b, _ := p.pool.Get().([]byte)
	b = b[:cap(b)]
	for i := range b {
		b[i] = 0
	}
	return b
}

// Put returns a buffer to the pool. Buffers that no longer have the
// pool's capacity are dropped.
func (p *BufferPool) Put(b []byte) {
	if cap(b) < p.size {
		return
	}
	p.pool.Put(b[:p.size]) //nolint:staticcheck // slices are pointer-shaped
}

// Size returns the buffer size handed out by Get.
func (p *BufferPool) Size() int {
	return p.size
}
