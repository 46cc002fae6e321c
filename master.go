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
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/seantywork/go-foe/internal/frame"
)

// Default mailbox cycle timeouts, matching the values EtherCAT masters
// conventionally use for mailbox traffic.
const (
	// DefaultTimeout bounds one receive exchange with the slave.
	DefaultTimeout = 700 * time.Millisecond
	// DefaultSendTimeout bounds placing one frame in the slave mailbox.
	DefaultSendTimeout = 20 * time.Millisecond
)

// ProgressFunc is the optional progress hook, invoked synchronously once
// per exchanged segment. For reads, bytes is the cumulative count read so
// far; for writes, it is the count still to be sent before the segment
// that follows the hook call. The hook runs inline in the stop-and-wait
// loop and must not block significantly.
type ProgressFunc func(slave uint16, packet uint32, bytes int)

// Config contains configuration options for the Master.
type Config struct {
	// RetryConfig configures transport-level retry when the mailbox is
	// wrapped with NewMailboxWithRetry. Nil disables wrapping.
	RetryConfig *RetryConfig
	// Timeout is the default receive timeout per mailbox exchange, used
	// when a transfer is started with a zero timeout.
	Timeout time.Duration
	// SendTimeout bounds each mailbox send.
	SendTimeout time.Duration
}

// DefaultConfig returns the default master configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:     DefaultTimeout,
		SendTimeout: DefaultSendTimeout,
	}
}

// Master drives FoE transfers against slaves reachable through a Mailbox
// transport.
//
// Thread Safety: transfers to the same slave must be serialized by the
// caller; the per-slave mailbox session counter is mutated by the active
// transfer without locking. Transfers to different slaves may run
// concurrently if the underlying Mailbox supports it.
type Master struct {
	mbx      Mailbox
	config   *Config
	slaves   *xsync.MapOf[uint16, *slaveState]
	progress ProgressFunc
}

// slaveState is the per-slave bookkeeping: the negotiated mailbox size
// and the 3-bit mailbox session counter.
type slaveState struct {
	mailboxSize int
	cnt         uint8
}

// maxData returns the largest DATA payload one segment to this slave can
// carry.
func (s *slaveState) maxData() int {
	return frame.MaxData(s.mailboxSize)
}

// nextCount advances and returns the slave's mailbox session counter.
func (s *slaveState) nextCount() uint8 {
	s.cnt = frame.NextCount(s.cnt)
	return s.cnt
}

// New creates a FoE master on top of the given mailbox transport.
func New(mbx Mailbox, opts ...Option) (*Master, error) {
	if mbx == nil {
		return nil, fmt.Errorf("nil mailbox transport: %w", ErrInvalidParameter)
	}
	master := &Master{
		mbx:    mbx,
		config: DefaultConfig(),
		slaves: xsync.NewMapOf[uint16, *slaveState](),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(master); err != nil {
			return nil, err
		}
	}

	if master.config.RetryConfig != nil {
		master.mbx = NewMailboxWithRetry(master.mbx, master.config.RetryConfig)
	}
	return master, nil
}

// RegisterSlave records the negotiated mailbox size for a slave address.
// It must be called before transferring to that slave. Re-registering
// resets the slave's session counter.
func (m *Master) RegisterSlave(slave uint16, mailboxSize int) error {
	if mailboxSize < frame.MinMailboxSize {
		return fmt.Errorf("mailbox size %d below minimum %d: %w",
			mailboxSize, frame.MinMailboxSize, ErrInvalidParameter)
	}
	m.slaves.Store(slave, &slaveState{mailboxSize: mailboxSize})
	debugf("registered slave %d, mailbox size %d, maxdata %d",
		slave, mailboxSize, frame.MaxData(mailboxSize))
	return nil
}

// SetProgressHook installs the progress hook. Passing nil removes it.
// The hook is shared by all transfers on this master.
func (m *Master) SetProgressHook(hook ProgressFunc) {
	m.progress = hook
}

// slave looks up the registered state for a slave address.
func (m *Master) slave(addr uint16) (*slaveState, error) {
	state, ok := m.slaves.Load(addr)
	if !ok {
		return nil, fmt.Errorf("slave %d: %w", addr, ErrSlaveNotRegistered)
	}
	return state, nil
}

// drain discards a stale frame pending in the slave's read mailbox, if
// any. Called before starting a transfer; a negative poll is not an
// error.
func (m *Master) drain(slave uint16) {
	if b, err := m.mbx.Receive(slave, 0); err == nil {
		debugf("slave %d: dropped stale mailbox frame (%d bytes)", slave, len(b))
		m.mbx.Put(b)
	}
}

// receiveTimeout resolves the per-exchange timeout for a transfer.
func (m *Master) receiveTimeout(timeout time.Duration) time.Duration {
	if timeout <= 0 {
		return m.config.Timeout
	}
	return timeout
}

// truncateFileName bounds a request filename to what one mailbox frame
// can carry for this slave.
func truncateFileName(filename string, maxdata int) string {
	if len(filename) > maxdata {
		return filename[:maxdata]
	}
	return filename
}

// sendFrame encodes f into a fresh output buffer and places it in the
// slave's mailbox. The buffer is released on every path.
func (m *Master) sendFrame(slave uint16, f *frame.Frame) error {
	out := m.mbx.Get()
	n, err := f.Encode(out)
	if err != nil {
		m.mbx.Put(out)
		return fmt.Errorf("slave %d: %w", slave, err)
	}
	if err := m.mbx.Send(slave, out[:n], m.config.SendTimeout); err != nil {
		m.mbx.Put(out)
		return err
	}
	return nil
}
