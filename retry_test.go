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
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastRetryConfig keeps test latency negligible.
func fastRetryConfig(attempts int) *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    time.Microsecond,
		MaxBackoff:        10 * time.Microsecond,
		BackoffMultiplier: 2.0,
	}
}

func TestRetryWithConfig(t *testing.T) {
	t.Parallel()

	t.Run("succeeds first try", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := RetryWithConfig(context.Background(), fastRetryConfig(3), func() error {
			calls++
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("retries transient errors", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := RetryWithConfig(context.Background(), fastRetryConfig(3), func() error {
			calls++
			if calls < 3 {
				return ErrMailboxTimeout
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := RetryWithConfig(context.Background(), fastRetryConfig(3), func() error {
			calls++
			return ErrPacketNumber
		})
		require.ErrorIs(t, err, ErrPacketNumber)
		assert.Equal(t, 1, calls)
	})

	t.Run("exhausts attempts", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := RetryWithConfig(context.Background(), fastRetryConfig(3), func() error {
			calls++
			return ErrMailboxRead
		})
		require.ErrorIs(t, err, ErrMailboxRead)
		assert.Equal(t, 3, calls)
	})

	t.Run("honors context cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		cfg := fastRetryConfig(3)
		cfg.InitialBackoff = time.Hour // cancellation must win
		err := RetryWithConfig(ctx, cfg, func() error {
			calls++
			return ErrMailboxTimeout
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})

	t.Run("nil config uses defaults", func(t *testing.T) {
		t.Parallel()
		err := RetryWithConfig(context.Background(), nil, func() error { return nil })
		require.NoError(t, err)
	})
}

func TestBackoffGrowthAndCap(t *testing.T) {
	t.Parallel()

	cfg := &RetryConfig{
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        35 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
	assert.Equal(t, 10*time.Millisecond, cfg.backoffFor(1))
	assert.Equal(t, 20*time.Millisecond, cfg.backoffFor(2))
	assert.Equal(t, 35*time.Millisecond, cfg.backoffFor(3), "capped at MaxBackoff")
}

func TestBackoffJitterStaysInBounds(t *testing.T) {
	t.Parallel()

	cfg := &RetryConfig{
		InitialBackoff:    100 * time.Millisecond,
		BackoffMultiplier: 1.0,
		Jitter:            0.2,
	}
	for i := 0; i < 50; i++ {
		b := cfg.backoffFor(1)
		assert.GreaterOrEqual(t, b, 80*time.Millisecond)
		assert.LessOrEqual(t, b, 120*time.Millisecond)
	}
}

func TestMailboxWithRetrySend(t *testing.T) {
	t.Parallel()

	mbx := NewMockMailbox(64)
	fails := 2
	mbx.OnSend = func(uint16, []byte) error {
		if fails > 0 {
			fails--
			return ErrMailboxWrite
		}
		return nil
	}
	wrapped := NewMailboxWithRetry(mbx, fastRetryConfig(3))

	b := wrapped.Get()
	require.NoError(t, wrapped.Send(1, b, time.Millisecond))
	assert.Len(t, mbx.Sent, 3, "two failures then success")
	assert.Zero(t, mbx.Outstanding())
}

func TestMailboxWithRetryReceive(t *testing.T) {
	t.Parallel()

	mbx := NewMockMailbox(64)
	wrapped := NewMailboxWithRetry(mbx, fastRetryConfig(2))

	// Empty queue: both attempts time out.
	_, err := wrapped.Receive(1, time.Millisecond)
	require.ErrorIs(t, err, ErrMailboxTimeout)

	// A queued frame is delivered untouched.
	mbx.Enqueue(make([]byte, 16))
	b, err := wrapped.Receive(1, time.Millisecond)
	require.NoError(t, err)
	require.NotNil(t, b)
	wrapped.Put(b)
	assert.Zero(t, mbx.Outstanding())
}

func TestMailboxWithRetryDrainPassthrough(t *testing.T) {
	t.Parallel()

	// Zero-timeout polls must not be retried: an empty mailbox during
	// drain is the normal case, not a fault.
	mbx := NewMockMailbox(64)
	wrapped := NewMailboxWithRetry(mbx, fastRetryConfig(5))

	start := time.Now()
	_, err := wrapped.Receive(1, 0)
	require.ErrorIs(t, err, ErrMailboxTimeout)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestMailboxWithRetryStopsOnPermanentSendError(t *testing.T) {
	t.Parallel()

	mbx := NewMockMailbox(64)
	permErr := errors.New("link down for good")
	mbx.OnSend = func(uint16, []byte) error { return permErr }
	wrapped := NewMailboxWithRetry(mbx, fastRetryConfig(4))

	b := wrapped.Get()
	err := wrapped.Send(1, b, time.Millisecond)
	require.ErrorIs(t, err, permErr)
	assert.Len(t, mbx.Sent, 1, "unclassified errors are not retried")
	wrapped.Put(b)
}
