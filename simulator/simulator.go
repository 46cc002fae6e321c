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

// Package simulator provides an in-memory FoE slave behind the
// foe.Mailbox interface. It serves files from a virtual store, speaks
// the full segmented protocol including the zero-length EOF segment,
// and can inject BUSY replies and protocol errors for testing.
package simulator

import (
	"fmt"
	"sync"
	"time"

	foe "github.com/seantywork/go-foe"
	"github.com/seantywork/go-foe/internal/frame"
)

// BufferSize is the transport-wide mailbox buffer size, matching the
// largest mailbox an EtherCAT slave may report.
const BufferSize = 1486

// SlaveConfig configures one simulated slave.
type SlaveConfig struct {
	// MailboxSize is the slave's negotiated mailbox capacity.
	MailboxSize int
	// Password, when non-zero, must match the request password;
	// mismatches are rejected with FoE error 0x800A (no rights).
	Password uint32
	// BusyRuns makes the slave answer that many incoming DATA segments
	// with BUSY before accepting the replay, exercising the master's
	// segment-replay path.
	BusyRuns int
	// FailWithCode, when non-zero, makes the slave reject every request
	// with that FoE error code.
	FailWithCode uint32
}

// slave holds one simulated slave's store and transfer session.
type slave struct {
	cfg   SlaveConfig
	store map[string][]byte
	cnt   uint8

	// active session, nil opcode when idle
	mode        uint8 // 0 idle, frame.OpRead serving, frame.OpWrite accepting
	file        []byte
	name        string
	off         int
	packet      uint32
	busyLeft    int
	doFinalZero bool
}

func (s *slave) maxdata() int {
	return frame.MaxData(s.cfg.MailboxSize)
}

func (s *slave) nextCount() uint8 {
	s.cnt = frame.NextCount(s.cnt)
	return s.cnt
}

// Simulator is a mailbox transport backed by simulated slaves. It
// implements foe.Mailbox: frames sent to a slave are processed
// synchronously and the replies queued for Receive.
type Simulator struct {
	pool    *foe.BufferPool
	slaves  map[uint16]*slave
	pending map[uint16][][]byte
	mu      sync.Mutex
}

// New creates an empty simulator.
func New() *Simulator {
	return &Simulator{
		pool:    foe.NewBufferPool(BufferSize),
		slaves:  make(map[uint16]*slave),
		pending: make(map[uint16][][]byte),
	}
}

// AddSlave creates a simulated slave at the given station address.
func (s *Simulator) AddSlave(addr uint16, cfg SlaveConfig) error {
	if cfg.MailboxSize < frame.MinMailboxSize {
		return fmt.Errorf("simulator: mailbox size %d below minimum %d", cfg.MailboxSize, frame.MinMailboxSize)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slaves[addr] = &slave{
		cfg:   cfg,
		store: make(map[string][]byte),
	}
	return nil
}

// StoreFile places a file in the slave's virtual store.
func (s *Simulator) StoreFile(addr uint16, name string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slaves[addr]
	if !ok {
		return fmt.Errorf("simulator: no slave at address %d", addr)
	}
	sl.store[name] = append([]byte(nil), data...)
	return nil
}

// LoadFile reads a file back from the slave's virtual store.
func (s *Simulator) LoadFile(addr uint16, name string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slaves[addr]
	if !ok {
		return nil, fmt.Errorf("simulator: no slave at address %d", addr)
	}
	data, ok := sl.store[name]
	if !ok {
		return nil, fmt.Errorf("simulator: slave %d has no file %q", addr, name)
	}
	return append([]byte(nil), data...), nil
}

// Get implements foe.Mailbox.
func (s *Simulator) Get() []byte {
	return s.pool.Get()
}

// Put implements foe.Mailbox.
func (s *Simulator) Put(b []byte) {
	s.pool.Put(b)
}

// Send implements foe.Mailbox: the frame is handed to the simulated
// slave, which queues its reply synchronously.
func (s *Simulator) Send(addr uint16, b []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slaves[addr]
	if !ok {
		return foe.NewMailboxError("send", addr, foe.ErrMailboxWrite, foe.ErrorTypePermanent)
	}
	f, err := frame.Decode(b)
	if err != nil {
		return foe.NewMailboxError("send", addr, foe.ErrFrameCorrupted, foe.ErrorTypePermanent)
	}
	s.process(addr, sl, f)
	s.pool.Put(b)
	return nil
}

// Receive implements foe.Mailbox. The simulated slave replies
// synchronously during Send, so Receive never blocks: an empty queue is
// a timeout regardless of the timeout argument.
func (s *Simulator) Receive(addr uint16, _ time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.pending[addr]
	if len(q) == 0 {
		return nil, foe.NewTimeoutError("receive", addr)
	}
	b := q[0]
	s.pending[addr] = q[1:]
	return b, nil
}

// queue encodes f into a pooled buffer on the slave's reply queue.
func (s *Simulator) queue(addr uint16, f *frame.Frame) {
	b := s.pool.Get()
	n, err := f.Encode(b)
	if err != nil {
		// Simulated payloads never exceed the pool size.
		panic(fmt.Sprintf("simulator: encode reply: %v", err))
	}
	s.pending[addr] = append(s.pending[addr], b[:n])
}

// reply builds a response frame carrying the slave's own session
// counter.
func (s *Simulator) reply(addr uint16, sl *slave, opCode uint8, num uint32, data []byte) {
	s.queue(addr, &frame.Frame{
		Counter: sl.nextCount(),
		OpCode:  opCode,
		Num:     num,
		Data:    data,
	})
}

func (s *Simulator) replyError(addr uint16, sl *slave, code uint32, text string) {
	sl.mode = 0
	s.reply(addr, sl, frame.OpError, code, []byte(text))
}

// process runs the slave's half of the FoE state machine for one
// received frame.
func (s *Simulator) process(addr uint16, sl *slave, f *frame.Frame) {
	if sl.cfg.FailWithCode != 0 {
		s.replyError(addr, sl, sl.cfg.FailWithCode, "injected fault")
		return
	}

	switch f.OpCode {
	case frame.OpRead:
		s.startRead(addr, sl, f)
	case frame.OpWrite:
		s.startWrite(addr, sl, f)
	case frame.OpAck:
		s.handleAck(addr, sl, f)
	case frame.OpData:
		s.handleData(addr, sl, f)
	default:
		s.replyError(addr, sl, frame.ErrcodeIllegal, "unexpected opcode")
	}
}

func (s *Simulator) startRead(addr uint16, sl *slave, f *frame.Frame) {
	name, _ := f.FileName()
	pw, _ := f.Password()
	if sl.cfg.Password != 0 && pw != sl.cfg.Password {
		s.replyError(addr, sl, frame.ErrcodeNoRights, "wrong password")
		return
	}
	data, ok := sl.store[name]
	if !ok {
		s.replyError(addr, sl, frame.ErrcodeNotFound, fmt.Sprintf("no such file %q", name))
		return
	}
	sl.mode = frame.OpRead
	sl.file = data
	sl.off = 0
	sl.packet = 0
	sl.doFinalZero = true
	s.sendSegment(addr, sl)
}

// sendSegment emits the next DATA segment of a read session, including
// the zero-length terminator for exact-multiple files.
func (s *Simulator) sendSegment(addr uint16, sl *slave) {
	maxdata := sl.maxdata()
	tsize := len(sl.file) - sl.off
	if tsize > maxdata {
		tsize = maxdata
	}
	if tsize == 0 && !sl.doFinalZero {
		sl.mode = 0
		return
	}
	sl.doFinalZero = false
	seg := sl.file[sl.off : sl.off+tsize]
	sl.off += tsize
	if sl.off == len(sl.file) && tsize == maxdata {
		sl.doFinalZero = true
	}
	sl.packet++
	s.reply(addr, sl, frame.OpData, sl.packet, seg)
}

func (s *Simulator) handleAck(addr uint16, sl *slave, f *frame.Frame) {
	if sl.mode != frame.OpRead {
		s.replyError(addr, sl, frame.ErrcodeIllegal, "ACK outside read session")
		return
	}
	if f.Num != sl.packet {
		s.replyError(addr, sl, frame.ErrcodePacketNumber, "ACK out of sequence")
		return
	}
	if sl.off == len(sl.file) && !sl.doFinalZero {
		// Final segment acknowledged.
		sl.mode = 0
		return
	}
	s.sendSegment(addr, sl)
}

func (s *Simulator) startWrite(addr uint16, sl *slave, f *frame.Frame) {
	name, _ := f.FileName()
	pw, _ := f.Password()
	if sl.cfg.Password != 0 && pw != sl.cfg.Password {
		s.replyError(addr, sl, frame.ErrcodeNoRights, "wrong password")
		return
	}
	sl.mode = frame.OpWrite
	sl.name = name
	// Non-nil so a zero-byte upload stores as an empty file, not a
	// missing one.
	sl.file = []byte{}
	sl.packet = 0
	sl.busyLeft = sl.cfg.BusyRuns
	s.reply(addr, sl, frame.OpAck, 0, nil)
}

func (s *Simulator) handleData(addr uint16, sl *slave, f *frame.Frame) {
	if sl.mode != frame.OpWrite {
		s.replyError(addr, sl, frame.ErrcodeIllegal, "DATA outside write session")
		return
	}
	if sl.busyLeft > 0 {
		sl.busyLeft--
		s.reply(addr, sl, frame.OpBusy, 0, nil)
		return
	}
	if f.Num != sl.packet+1 {
		s.replyError(addr, sl, frame.ErrcodePacketNumber, "DATA out of sequence")
		return
	}
	sl.packet = f.Num
	sl.file = append(sl.file, f.Data...)
	s.reply(addr, sl, frame.OpAck, f.Num, nil)
	if len(f.Data) < sl.maxdata() {
		// Short segment ends the transfer.
		sl.store[sl.name] = sl.file
		sl.mode = 0
	}
}
