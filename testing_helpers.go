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

// MockMailbox is a scripted in-memory Mailbox for tests. Responses are
// either queued up front with Enqueue or produced reactively by OnSend,
// which sees every sent frame and may enqueue the slave's reply.
//
// The mock tracks buffer ownership: Outstanding reports how many
// buffers the code under test currently holds, and must be zero after
// every completed transfer, on success and error paths alike.
type MockMailbox struct {
	// OnSend, when set, is invoked with each sent frame after it has
	// been recorded. Returning an error fails the send.
	OnSend func(slave uint16, b []byte) error
	// SendErr, when set, fails every send.
	SendErr error
	// ReceiveErr, when set, fails every blocking receive.
	ReceiveErr error

	// Sent holds copies of every frame passed to Send, in order.
	Sent [][]byte

	mu          sync.Mutex
	queue       [][]byte
	size        int
	outstanding int
}

// NewMockMailbox creates a mock handing out buffers of the given
// mailbox size.
func NewMockMailbox(size int) *MockMailbox {
	return &MockMailbox{size: size}
}

// Get returns a zero-filled buffer and counts it as outstanding.
func (m *MockMailbox) Get() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outstanding++
	return make([]byte, m.size)
}

// Put releases a buffer obtained from Get or Receive.
func (m *MockMailbox) Put(_ []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outstanding--
}

// Send records the frame and consumes the buffer on success.
func (m *MockMailbox) Send(slave uint16, b []byte, _ time.Duration) error {
	m.mu.Lock()
	sent := append([]byte(nil), b...)
	m.Sent = append(m.Sent, sent)
	sendErr := m.SendErr
	onSend := m.OnSend
	m.mu.Unlock()

	if sendErr != nil {
		return sendErr
	}
	if onSend != nil {
		if err := onSend(slave, sent); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.outstanding--
	m.mu.Unlock()
	return nil
}

// Receive pops the next queued response. An empty queue reports a
// timeout immediately; the mock never blocks.
func (m *MockMailbox) Receive(slave uint16, timeout time.Duration) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		if timeout != 0 && m.ReceiveErr != nil {
			return nil, m.ReceiveErr
		}
		return nil, NewTimeoutError("receive", slave)
	}
	b := m.queue[0]
	m.queue = m.queue[1:]
	m.outstanding++
	return b, nil
}

// Enqueue adds a raw inbound frame to be returned by Receive.
func (m *MockMailbox) Enqueue(b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, append([]byte(nil), b...))
}

// Outstanding reports how many buffers the caller currently holds.
func (m *MockMailbox) Outstanding() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outstanding
}

// Pending reports how many inbound frames remain queued.
func (m *MockMailbox) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}
