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

// Package frame provides the wire-level codec and protocol constants for
// File over EtherCAT (FoE) mailbox frames.
package frame

// FoE operation codes as defined by ETG.1000.5.
const (
	OpRead  = 0x01 // read request, master to slave
	OpWrite = 0x02 // write request, master to slave
	OpData  = 0x03 // file data segment
	OpAck   = 0x04 // segment acknowledge
	OpError = 0x05 // error report, terminates the transfer
	OpBusy  = 0x06 // slave busy, last segment must be replayed
)

// Mailbox protocol type carried in the low nibble of the mailbox header
// type byte. Only FoE is handled here; other values (CoE, EoE, SoE) belong
// to their own mailbox services.
const TypeFoE = 0x04

// Frame layout sizes. A FoE mailbox frame is the 6-byte generic mailbox
// header followed by the 6-byte FoE header (opcode, reserved byte and the
// 4-byte numeric field), then the variable payload.
const (
	MailboxHeaderLen = 6
	FoEHeaderLen     = 6
	Overhead         = MailboxHeaderLen + FoEHeaderLen
)

// MinMailboxSize is the smallest usable mailbox: the fixed overhead plus
// room for at least one payload byte per DATA segment.
const MinMailboxSize = Overhead + 1

// FoE error codes carried in an OpError frame (ETG.1000.5 table 80).
const (
	ErrcodeNotDefined       = 0x8000
	ErrcodeNotFound         = 0x8001
	ErrcodeAccessDenied     = 0x8002
	ErrcodeDiskFull         = 0x8003
	ErrcodeIllegal          = 0x8004
	ErrcodePacketNumber     = 0x8005
	ErrcodeAlreadyExists    = 0x8006
	ErrcodeNoUser           = 0x8007
	ErrcodeBootstrapOnly    = 0x8008
	ErrcodeNotInBootstrap   = 0x8009
	ErrcodeNoRights         = 0x800A
	ErrcodeProgramError     = 0x800B
	ErrcodeChecksum         = 0x800C
	ErrcodeFirmwareMismatch = 0x800D
)

// MaxData returns the largest DATA payload a slave with the given mailbox
// size can carry per segment.
func MaxData(mailboxSize int) int {
	return mailboxSize - Overhead
}

// NextCount advances the 3-bit mailbox sequence counter. The counter wraps
// within 1..7; zero is reserved and never emitted.
func NextCount(cnt uint8) uint8 {
	cnt++
	if cnt > 7 {
		cnt = 1
	}
	return cnt
}
