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
	"context"
	"fmt"
	"time"

	"github.com/seantywork/go-foe/internal/frame"
)

// Read performs a blocking FoE read of filename from the slave into p.
// It returns the number of bytes read; on error the count of bytes
// transferred before the failure is still returned. The transfer ends
// when the slave sends a DATA segment shorter than its maximum segment
// size. timeout bounds each mailbox exchange, not the whole transfer; a
// zero timeout uses the master default.
func (m *Master) Read(slave uint16, filename string, password uint32, p []byte, timeout time.Duration) (int, error) {
	return m.ReadContext(context.Background(), slave, filename, password, p, timeout)
}

// ReadContext is Read with a context consulted between mailbox
// exchanges. Cancellation cannot interrupt a single blocking receive; it
// takes effect at the next segment boundary.
func (m *Master) ReadContext(
	ctx context.Context, slave uint16, filename string, password uint32, p []byte, timeout time.Duration,
) (int, error) {
	state, err := m.slave(slave)
	if err != nil {
		return 0, err
	}
	maxdata := state.maxData()
	timeout = m.receiveTimeout(timeout)

	// Discard any stale frame left in the slave's read mailbox.
	m.drain(slave)

	req := &frame.Frame{
		Counter: state.nextCount(),
		OpCode:  frame.OpRead,
		Num:     password,
		Data:    []byte(truncateFileName(filename, maxdata)),
	}
	debugf("slave %d: FoE read %q, maxdata %d", slave, req.Data, maxdata)
	if err := m.sendFrame(slave, req); err != nil {
		return 0, err
	}

	var (
		read       int
		prevPacket uint32
	)
	for {
		if err := ctx.Err(); err != nil {
			return read, fmt.Errorf("read from slave %d aborted: %w", slave, err)
		}
		in, err := m.mbx.Receive(slave, timeout)
		if err != nil {
			return read, err
		}
		resp, err := frame.Decode(in)
		if err != nil {
			m.mbx.Put(in)
			return read, fmt.Errorf("slave %d: %s: %w", slave, err, ErrPacket)
		}

		switch resp.OpCode {
		case frame.OpData:
			packet := resp.Num
			if packet != prevPacket+1 {
				m.mbx.Put(in)
				return read, fmt.Errorf("slave %d: got DATA packet %d, expected %d: %w",
					slave, packet, prevPacket+1, ErrPacketNumber)
			}
			if read+len(resp.Data) > len(p) {
				m.mbx.Put(in)
				return read, fmt.Errorf("slave %d: segment of %d bytes at offset %d exceeds %d-byte buffer: %w",
					slave, len(resp.Data), read, len(p), ErrBufferTooSmall)
			}
			copy(p[read:], resp.Data)
			read += len(resp.Data)
			prevPacket = packet
			segment := len(resp.Data)
			m.mbx.Put(in)

			ack := &frame.Frame{
				Counter: state.nextCount(),
				OpCode:  frame.OpAck,
				Num:     packet,
			}
			err := m.sendFrame(slave, ack)
			if m.progress != nil {
				m.progress(slave, packet, read)
			}
			if err != nil {
				return read, err
			}
			// A segment shorter than maxdata is the EOF signal.
			if segment < maxdata {
				debugf("slave %d: read complete, %d bytes in %d packets", slave, read, packet)
				return read, nil
			}

		case frame.OpError:
			foeErr := &Error{Code: resp.Num, Text: string(resp.Data)}
			m.mbx.Put(in)
			return read, fmt.Errorf("slave %d: read %q: %w", slave, filename, foeErr)

		default:
			op := resp.OpCode
			m.mbx.Put(in)
			return read, fmt.Errorf("slave %d: opcode %#02x during read: %w", slave, op, ErrPacket)
		}
	}
}
