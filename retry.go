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
	"math/rand"
	"time"
)

// RetryConfig configures transport-level retry behavior.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// InitialBackoff is the delay before the first retry.
	InitialBackoff time.Duration
	// MaxBackoff caps the exponential backoff growth.
	MaxBackoff time.Duration
	// BackoffMultiplier scales the backoff after each attempt.
	BackoffMultiplier float64
	// Jitter is the random fraction (0..1) applied to each backoff.
	Jitter float64
	// RetryTimeout bounds the total wall-clock time spent retrying.
	// Zero means no overall bound.
	RetryTimeout time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        500 * time.Millisecond,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
		RetryTimeout:      5 * time.Second,
	}
}

// backoffFor returns the delay before retry attempt n (1-based).
func (c *RetryConfig) backoffFor(attempt int) time.Duration {
	backoff := float64(c.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= c.BackoffMultiplier
	}
	if limit := float64(c.MaxBackoff); c.MaxBackoff > 0 && backoff > limit {
		backoff = limit
	}
	if c.Jitter > 0 {
		backoff += backoff * c.Jitter * (2*rand.Float64() - 1)
	}
	if backoff < 0 {
		backoff = 0
	}
	return time.Duration(backoff)
}

// RetryWithConfig runs operation until it succeeds, fails permanently, or
// the attempt budget is spent. Only errors IsRetryable reports true for
// are retried.
func RetryWithConfig(ctx context.Context, config *RetryConfig, operation func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	var deadline time.Time
	if config.RetryTimeout > 0 {
		deadline = time.Now().Add(config.RetryTimeout)
	}

	var lastErr error
	for attempt := 1; attempt <= config.MaxAttempts; attempt++ {
		lastErr = operation()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == config.MaxAttempts {
			break
		}
		backoff := config.backoffFor(attempt)
		if !deadline.IsZero() && time.Now().Add(backoff).After(deadline) {
			break
		}
		debugf("retrying after %v (attempt %d/%d): %v", backoff, attempt, config.MaxAttempts, lastErr)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// MailboxWithRetry wraps a Mailbox with retry logic on sends and
// receives. The FoE transfer loop above it stays strictly
// stop-and-wait; this wrapper only papers over transient transport
// faults on individual exchanges.
type MailboxWithRetry struct {
	mbx    Mailbox
	config *RetryConfig
}

// NewMailboxWithRetry creates a retrying wrapper around mbx.
func NewMailboxWithRetry(mbx Mailbox, config *RetryConfig) *MailboxWithRetry {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &MailboxWithRetry{mbx: mbx, config: config}
}

// Get returns a zero-filled outgoing buffer from the wrapped transport.
func (t *MailboxWithRetry) Get() []byte {
	return t.mbx.Get()
}

// Put returns a buffer to the wrapped transport.
func (t *MailboxWithRetry) Put(b []byte) {
	t.mbx.Put(b)
}

// Send delivers b with retry. The wrapped transport only consumes the
// buffer on success, so a failed attempt may be replayed as-is.
func (t *MailboxWithRetry) Send(slave uint16, b []byte, timeout time.Duration) error {
	return RetryWithConfig(context.Background(), t.config, func() error {
		return t.mbx.Send(slave, b, timeout)
	})
}

// Receive waits for a frame with retry. Non-blocking polls (zero
// timeout) are passed through untouched: a drained-empty mailbox is an
// expected condition, not a fault.
func (t *MailboxWithRetry) Receive(slave uint16, timeout time.Duration) ([]byte, error) {
	if timeout == 0 {
		return t.mbx.Receive(slave, 0)
	}
	var result []byte
	err := RetryWithConfig(context.Background(), t.config, func() error {
		var err error
		result, err = t.mbx.Receive(slave, timeout)
		return err
	})
	return result, err
}

// SetRetryConfig updates the retry configuration.
func (t *MailboxWithRetry) SetRetryConfig(config *RetryConfig) {
	t.config = config
}
