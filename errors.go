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
	"errors"
	"fmt"

	"github.com/seantywork/go-foe/internal/frame"
)

// Mailbox transport errors. These originate below the FoE layer and are
// generally retryable at the transport level.
var (
	// ErrMailboxTimeout indicates the slave did not respond within the
	// receive timeout of one exchange.
	ErrMailboxTimeout = errors.New("mailbox receive timeout")
	// ErrMailboxRead indicates a transport-level receive failure.
	ErrMailboxRead = errors.New("mailbox read failed")
	// ErrMailboxWrite indicates the slave did not accept a sent frame.
	ErrMailboxWrite = errors.New("mailbox write failed")
	// ErrCommunicationFailed indicates a generic transport failure.
	ErrCommunicationFailed = errors.New("communication with slave failed")
	// ErrFrameCorrupted indicates a mailbox frame failed to parse.
	ErrFrameCorrupted = errors.New("mailbox frame corrupted")
)

// FoE protocol errors. These terminate the transfer and are not retryable
// below the whole-transfer level.
var (
	// ErrPacket indicates a response that is not FoE-typed or carries an
	// operation code that is unexpected in context.
	ErrPacket = errors.New("unexpected mailbox packet")
	// ErrPacketNumber indicates a sequence mismatch: an ACK echoing the
	// wrong packet number, or a DATA segment arriving out of order.
	ErrPacketNumber = errors.New("packet number mismatch")
	// ErrBufferTooSmall indicates the caller's buffer cannot hold the
	// next DATA segment of a read transfer.
	ErrBufferTooSmall = errors.New("receive buffer too small")
	// ErrFileNotFound indicates the slave reported FoE error 0x8001.
	ErrFileNotFound = errors.New("file not found on slave")
	// ErrSlaveNotRegistered indicates a transfer was attempted for a
	// slave address without a registered mailbox size.
	ErrSlaveNotRegistered = errors.New("slave not registered")
	// ErrInvalidParameter indicates a malformed argument.
	ErrInvalidParameter = errors.New("invalid parameter")
)

// Error is an FoE ERROR frame returned by the slave, carrying the
// protocol error code and the optional diagnostic text.
type Error struct {
	Text string
	Code uint32
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("foe error %#04x: %s", e.Code, e.Text)
	}
	return fmt.Sprintf("foe error %#04x", e.Code)
}

// Is reports whether the slave error matches a package sentinel. An ERROR
// frame with code 0x8001 matches ErrFileNotFound so that callers can use
// errors.Is without inspecting the code themselves.
func (e *Error) Is(target error) bool {
	return target == ErrFileNotFound && e.Code == frame.ErrcodeNotFound
}

// ErrorType classifies errors for retry decisions.
type ErrorType int

const (
	// ErrorTypePermanent indicates an error that will not resolve by
	// retrying the same operation.
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeTransient indicates an error that may resolve on retry.
	ErrorTypeTransient
	// ErrorTypeTimeout indicates a timeout, retryable with backoff.
	ErrorTypeTimeout
)

// MailboxError wraps a transport failure with the operation and slave it
// occurred on, plus a retryability classification.
type MailboxError struct {
	Err       error
	Op        string
	Slave     uint16
	Type      ErrorType
	Retryable bool
}

// Error implements the error interface.
func (e *MailboxError) Error() string {
	return fmt.Sprintf("mailbox %s slave %d: %v", e.Op, e.Slave, e.Err)
}

// Unwrap returns the underlying error.
func (e *MailboxError) Unwrap() error {
	return e.Err
}

// NewMailboxError creates a MailboxError with the given classification.
func NewMailboxError(op string, slave uint16, err error, errType ErrorType) *MailboxError {
	return &MailboxError{
		Op:        op,
		Slave:     slave,
		Err:       err,
		Type:      errType,
		Retryable: errType != ErrorTypePermanent,
	}
}

// NewTimeoutError creates a MailboxError for a receive timeout.
func NewTimeoutError(op string, slave uint16) *MailboxError {
	return &MailboxError{
		Op:        op,
		Slave:     slave,
		Err:       ErrMailboxTimeout,
		Type:      ErrorTypeTimeout,
		Retryable: true,
	}
}

// retryableErrors are transport conditions worth retrying below the FoE
// state machine. Protocol errors never appear here: a broken transfer
// sequence can only be recovered by restarting the whole transfer.
var retryableErrors = []error{
	ErrMailboxTimeout,
	ErrMailboxRead,
	ErrMailboxWrite,
	ErrCommunicationFailed,
	ErrFrameCorrupted,
}

// IsRetryable reports whether an error is worth retrying at the
// transport level.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var mbxErr *MailboxError
	if errors.As(err, &mbxErr) {
		return mbxErr.Retryable
	}
	for _, target := range retryableErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// GetErrorType classifies an error for backoff selection.
func GetErrorType(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent
	}
	var mbxErr *MailboxError
	if errors.As(err, &mbxErr) {
		return mbxErr.Type
	}
	if errors.Is(err, ErrMailboxTimeout) {
		return ErrorTypeTimeout
	}
	if IsRetryable(err) {
		return ErrorTypeTransient
	}
	return ErrorTypePermanent
}
