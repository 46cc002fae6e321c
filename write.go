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

// writeTransfer is the session state of one write transfer: the cursor
// into the source buffer plus everything needed to replay the last sent
// segment verbatim when the slave answers BUSY.
type writeTransfer struct {
	data        []byte
	off         int
	remaining   int
	segment     int // payload size of the last sent DATA frame
	maxdata     int
	sendPacket  uint32
	doFinalZero bool
}

// rollback rewinds the cursor past the last sent segment so that
// sendNext re-emits it with the same packet number and payload.
func (t *writeTransfer) rollback() {
	t.remaining += t.segment
	t.off -= t.segment
	t.sendPacket--
}

// Write performs a blocking FoE write of data to filename on the slave.
// Data is sent in maxdata-sized DATA segments, each acknowledged by the
// slave before the next is sent. EOF is signalled by a segment shorter
// than maxdata; when len(data) is an exact multiple of maxdata a
// trailing zero-length segment is sent, and the transfer completes only
// on the slave's ACK of that segment. timeout bounds each mailbox
// exchange, not the whole transfer; zero uses the master default.
func (m *Master) Write(slave uint16, filename string, password uint32, data []byte, timeout time.Duration) error {
	return m.WriteContext(context.Background(), slave, filename, password, data, timeout)
}

// WriteContext is Write with a context consulted between mailbox
// exchanges. Cancellation cannot interrupt a single blocking receive; it
// takes effect at the next segment boundary.
func (m *Master) WriteContext(
	ctx context.Context, slave uint16, filename string, password uint32, data []byte, timeout time.Duration,
) error {
	state, err := m.slave(slave)
	if err != nil {
		return err
	}
	timeout = m.receiveTimeout(timeout)

	// Discard any stale frame left in the slave's read mailbox.
	m.drain(slave)

	req := &frame.Frame{
		Counter: state.nextCount(),
		OpCode:  frame.OpWrite,
		Num:     password,
		Data:    []byte(truncateFileName(filename, state.maxData())),
	}
	debugf("slave %d: FoE write %q, %d bytes, maxdata %d", slave, req.Data, len(data), state.maxData())
	if err := m.sendFrame(slave, req); err != nil {
		return err
	}

	t := &writeTransfer{
		data:      data,
		remaining: len(data),
		maxdata:   state.maxData(),
		// The first segment is always due, even for an empty file: a
		// zero-byte write is one zero-length DATA segment.
		doFinalZero: true,
	}
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("write to slave %d aborted: %w", slave, err)
		}
		in, err := m.mbx.Receive(slave, timeout)
		if err != nil {
			return err
		}
		resp, err := frame.Decode(in)
		if err != nil {
			m.mbx.Put(in)
			return fmt.Errorf("slave %d: %s: %w", slave, err, ErrPacket)
		}

		switch resp.OpCode {
		case frame.OpAck:
			packet := resp.Num
			m.mbx.Put(in)
			if packet != t.sendPacket {
				return fmt.Errorf("slave %d: ACK for packet %d, expected %d: %w",
					slave, packet, t.sendPacket, ErrPacketNumber)
			}
			if m.progress != nil {
				m.progress(slave, packet, t.remaining)
			}
			done, err := m.sendNext(slave, state, t)
			if err != nil {
				return err
			}
			if done {
				debugf("slave %d: write complete, %d bytes in %d packets", slave, len(data), t.sendPacket)
				return nil
			}

		case frame.OpBusy:
			m.mbx.Put(in)
			// BUSY before any DATA went out carries nothing to replay;
			// keep waiting for the ACK of the request.
			if t.sendPacket == 0 {
				debugf("slave %d: BUSY before first segment, waiting", slave)
				continue
			}
			debugf("slave %d: BUSY, replaying packet %d", slave, t.sendPacket)
			t.rollback()
			done, err := m.sendNext(slave, state, t)
			if err != nil {
				return err
			}
			if done {
				return nil
			}

		case frame.OpError:
			foeErr := &Error{Code: resp.Num, Text: string(resp.Data)}
			m.mbx.Put(in)
			return fmt.Errorf("slave %d: write %q: %w", slave, filename, foeErr)

		default:
			op := resp.OpCode
			m.mbx.Put(in)
			return fmt.Errorf("slave %d: opcode %#02x during write: %w", slave, op, ErrPacket)
		}
	}
}

// sendNext emits the next DATA segment of the transfer, or reports the
// transfer done when nothing remains and the final (possibly
// zero-length) segment has been acknowledged. Both the ACK and the BUSY
// paths go through here, so a replayed segment is rebuilt from the same
// cursor state and carries the identical payload and packet number.
func (m *Master) sendNext(slave uint16, state *slaveState, t *writeTransfer) (bool, error) {
	tsize := t.remaining
	if tsize > t.maxdata {
		tsize = t.maxdata
	}
	if tsize == 0 && !t.doFinalZero {
		return true, nil
	}
	t.doFinalZero = false
	t.segment = tsize
	t.remaining -= tsize
	// EOF is a segment shorter than maxdata. A file ending on an exact
	// segment boundary needs one more zero-length segment to say so.
	if t.remaining == 0 && tsize == t.maxdata {
		t.doFinalZero = true
	}

	seg := &frame.Frame{
		Counter: state.nextCount(),
		OpCode:  frame.OpData,
		Num:     t.sendPacket + 1,
		Data:    t.data[t.off : t.off+tsize],
	}
	t.sendPacket++
	t.off += tsize
	debugf("slave %d: DATA packet %d, %d bytes, %d remaining", slave, t.sendPacket, tsize, t.remaining)
	if err := m.sendFrame(slave, seg); err != nil {
		return false, err
	}
	return false, nil
}
