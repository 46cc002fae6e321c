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
	"testing"

	"github.com/seantywork/go-foe/internal/frame"
)

func TestIsRetryable(t *testing.T) {
	t.Parallel()
	tests := getIsRetryableTestCases()

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := IsRetryable(tt.err)
			if got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func getIsRetryableTestCases() []struct {
	err  error
	name string
	want bool
} {
	return []struct {
		err  error
		name string
		want bool
	}{
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
		{
			name: "mailbox timeout retryable",
			err:  ErrMailboxTimeout,
			want: true,
		},
		{
			name: "mailbox read retryable",
			err:  ErrMailboxRead,
			want: true,
		},
		{
			name: "mailbox write retryable",
			err:  ErrMailboxWrite,
			want: true,
		},
		{
			name: "communication failed retryable",
			err:  ErrCommunicationFailed,
			want: true,
		},
		{
			name: "frame corrupted retryable",
			err:  ErrFrameCorrupted,
			want: true,
		},
		{
			name: "wrapped retryable error",
			err:  fmt.Errorf("outer: %w", ErrMailboxTimeout),
			want: true,
		},
		{
			name: "packet error not retryable",
			err:  ErrPacket,
			want: false,
		},
		{
			name: "packet number mismatch not retryable",
			err:  ErrPacketNumber,
			want: false,
		},
		{
			name: "buffer too small not retryable",
			err:  ErrBufferTooSmall,
			want: false,
		},
		{
			name: "file not found not retryable",
			err:  ErrFileNotFound,
			want: false,
		},
		{
			name: "slave not registered not retryable",
			err:  ErrSlaveNotRegistered,
			want: false,
		},
		{
			name: "invalid parameter not retryable",
			err:  ErrInvalidParameter,
			want: false,
		},
		{
			name: "slave FoE error not retryable",
			err:  &Error{Code: frame.ErrcodeAccessDenied},
			want: false,
		},
		{
			name: "opaque error not retryable",
			err:  errors.New("outer: " + ErrMailboxTimeout.Error()),
			want: false,
		},
	}
}

func TestMailboxError(t *testing.T) {
	t.Parallel()

	inner := ErrMailboxRead
	err := NewMailboxError("receive", 4, inner, ErrorTypeTransient)

	if !errors.Is(err, ErrMailboxRead) {
		t.Error("MailboxError should unwrap to its cause")
	}
	if !err.Retryable {
		t.Error("transient errors are retryable")
	}
	if got := err.Error(); got != "mailbox receive slave 4: mailbox read failed" {
		t.Errorf("unexpected message: %q", got)
	}

	perm := NewMailboxError("send", 1, errors.New("bad frame"), ErrorTypePermanent)
	if perm.Retryable {
		t.Error("permanent errors are not retryable")
	}
	if IsRetryable(perm) {
		t.Error("IsRetryable must honor the permanent classification")
	}
}

func TestNewTimeoutError(t *testing.T) {
	t.Parallel()

	err := NewTimeoutError("receive", 2)
	if !errors.Is(err, ErrMailboxTimeout) {
		t.Error("timeout error should match ErrMailboxTimeout")
	}
	if !IsRetryable(err) {
		t.Error("timeouts are retryable")
	}
	if GetErrorType(err) != ErrorTypeTimeout {
		t.Error("timeout errors classify as ErrorTypeTimeout")
	}
}

func TestGetErrorType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		name string
		want ErrorType
	}{
		{name: "nil", err: nil, want: ErrorTypePermanent},
		{name: "timeout sentinel", err: ErrMailboxTimeout, want: ErrorTypeTimeout},
		{name: "wrapped timeout", err: fmt.Errorf("x: %w", ErrMailboxTimeout), want: ErrorTypeTimeout},
		{name: "transient transport", err: ErrMailboxRead, want: ErrorTypeTransient},
		{name: "protocol error", err: ErrPacketNumber, want: ErrorTypePermanent},
		{name: "classified mailbox error", err: NewMailboxError("send", 1, ErrMailboxWrite, ErrorTypeTransient), want: ErrorTypeTransient},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := GetErrorType(tt.err); got != tt.want {
				t.Errorf("GetErrorType() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFoEErrorFormatting(t *testing.T) {
	t.Parallel()

	withText := &Error{Code: frame.ErrcodeDiskFull, Text: "flash full"}
	if got := withText.Error(); got != "foe error 0x8003: flash full" {
		t.Errorf("unexpected message: %q", got)
	}

	bare := &Error{Code: frame.ErrcodeNotFound}
	if got := bare.Error(); got != "foe error 0x8001" {
		t.Errorf("unexpected message: %q", got)
	}
	if !errors.Is(bare, ErrFileNotFound) {
		t.Error("code 0x8001 must match ErrFileNotFound")
	}
	if errors.Is(withText, ErrFileNotFound) {
		t.Error("other codes must not match ErrFileNotFound")
	}
}
