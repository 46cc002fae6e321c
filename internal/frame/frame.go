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

package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Codec errors.
var (
	// ErrShortBuffer indicates the destination buffer cannot hold the frame.
	ErrShortBuffer = errors.New("buffer too small for frame")
	// ErrNotFoE indicates the mailbox header type nibble is not FoE.
	ErrNotFoE = errors.New("mailbox frame is not FoE")
	// ErrBadLength indicates an inconsistent mailbox header length field.
	ErrBadLength = errors.New("invalid mailbox header length")
	// ErrFieldMismatch indicates an accessor was used on the wrong opcode.
	ErrFieldMismatch = errors.New("field not valid for opcode")
)

// Frame is a decoded FoE mailbox frame.
//
// Num and Data are unions keyed by OpCode: Num holds the password on
// OpRead/OpWrite, the packet number on OpData/OpAck and the error code on
// OpError; Data holds the filename on OpRead/OpWrite, the segment payload
// on OpData and the error text on OpError. Use the typed accessors rather
// than reading the union fields directly.
type Frame struct {
	Data    []byte
	Num     uint32
	Counter uint8
	OpCode  uint8
}

// Password returns the numeric field of a READ or WRITE request.
func (f *Frame) Password() (uint32, error) {
	if f.OpCode != OpRead && f.OpCode != OpWrite {
		return 0, fmt.Errorf("password on opcode %#02x: %w", f.OpCode, ErrFieldMismatch)
	}
	return f.Num, nil
}

// PacketNumber returns the numeric field of a DATA or ACK frame.
func (f *Frame) PacketNumber() (uint32, error) {
	if f.OpCode != OpData && f.OpCode != OpAck {
		return 0, fmt.Errorf("packet number on opcode %#02x: %w", f.OpCode, ErrFieldMismatch)
	}
	return f.Num, nil
}

// ErrorCode returns the numeric field of an ERROR frame.
func (f *Frame) ErrorCode() (uint32, error) {
	if f.OpCode != OpError {
		return 0, fmt.Errorf("error code on opcode %#02x: %w", f.OpCode, ErrFieldMismatch)
	}
	return f.Num, nil
}

// FileName returns the payload of a READ or WRITE request as text.
func (f *Frame) FileName() (string, error) {
	if f.OpCode != OpRead && f.OpCode != OpWrite {
		return "", fmt.Errorf("filename on opcode %#02x: %w", f.OpCode, ErrFieldMismatch)
	}
	return string(f.Data), nil
}

// ErrorText returns the optional diagnostic text of an ERROR frame.
func (f *Frame) ErrorText() (string, error) {
	if f.OpCode != OpError {
		return "", fmt.Errorf("error text on opcode %#02x: %w", f.OpCode, ErrFieldMismatch)
	}
	return string(f.Data), nil
}

// EncodedLen returns the number of bytes Encode will write.
func (f *Frame) EncodedLen() int {
	return Overhead + len(f.Data)
}

// Encode writes the frame into b in EtherCAT wire order (little endian).
// The mailbox header length field is set to FoEHeaderLen plus the payload
// length, the station address and priority are zero for FoE, and the type
// byte combines the FoE type nibble with the 3-bit sequence counter.
func (f *Frame) Encode(b []byte) (int, error) {
	n := f.EncodedLen()
	if len(b) < n {
		return 0, fmt.Errorf("encode FoE frame (%d bytes into %d): %w", n, len(b), ErrShortBuffer)
	}
	binary.LittleEndian.PutUint16(b[0:2], uint16(FoEHeaderLen+len(f.Data)))
	binary.LittleEndian.PutUint16(b[2:4], 0x0000) // station address
	b[4] = 0x00                                   // channel / priority
	b[5] = TypeFoE | (f.Counter&0x07)<<4
	b[6] = f.OpCode
	b[7] = 0x00 // reserved
	binary.LittleEndian.PutUint32(b[8:12], f.Num)
	copy(b[Overhead:], f.Data)
	return n, nil
}

// Decode parses a mailbox buffer as a FoE frame. The payload slice aliases
// b; callers that outlive the mailbox buffer must copy it. The mailbox
// header length field is trusted to locate the end of the payload, but is
// bounds-checked against the buffer.
func Decode(b []byte) (*Frame, error) {
	if len(b) < Overhead {
		return nil, fmt.Errorf("decode FoE frame from %d bytes: %w", len(b), ErrShortBuffer)
	}
	if b[5]&0x0f != TypeFoE {
		return nil, fmt.Errorf("mailbox type %#02x: %w", b[5]&0x0f, ErrNotFoE)
	}
	length := int(binary.LittleEndian.Uint16(b[0:2]))
	if length < FoEHeaderLen || MailboxHeaderLen+length > len(b) {
		return nil, fmt.Errorf("header length %d in %d-byte buffer: %w", length, len(b), ErrBadLength)
	}
	return &Frame{
		Counter: b[5] >> 4 & 0x07,
		OpCode:  b[6],
		Num:     binary.LittleEndian.Uint32(b[8:12]),
		Data:    b[Overhead : MailboxHeaderLen+length],
	}, nil
}
