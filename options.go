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
)

// Option is a functional option for configuring a Master
type Option func(*Master) error

// WithTimeout sets the default receive timeout per mailbox exchange.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Master) error {
		if timeout <= 0 {
			return fmt.Errorf("timeout %v: %w", timeout, ErrInvalidParameter)
		}
		m.config.Timeout = timeout
		return nil
	}
}

// WithSendTimeout sets the timeout for placing a frame in a slave
// mailbox.
func WithSendTimeout(timeout time.Duration) Option {
	return func(m *Master) error {
		if timeout <= 0 {
			return fmt.Errorf("send timeout %v: %w", timeout, ErrInvalidParameter)
		}
		m.config.SendTimeout = timeout
		return nil
	}
}

// WithProgressHook installs the progress hook at construction time.
func WithProgressHook(hook ProgressFunc) Option {
	return func(m *Master) error {
		m.progress = hook
		return nil
	}
}

// WithRetryConfig wraps the mailbox transport with retry logic. The FoE
// transfer loop itself never retries; the wrapper operates strictly
// below it, on individual mailbox sends and receives.
func WithRetryConfig(config *RetryConfig) Option {
	return func(m *Master) error {
		m.config.RetryConfig = config
		return nil
	}
}

// WithMaxRetries sets the maximum number of transport-level retry
// attempts, creating a default retry configuration if none is set.
func WithMaxRetries(maxAttempts int) Option {
	return func(m *Master) error {
		if maxAttempts < 1 {
			return fmt.Errorf("max retries %d: %w", maxAttempts, ErrInvalidParameter)
		}
		if m.config.RetryConfig == nil {
			m.config.RetryConfig = DefaultRetryConfig()
		}
		m.config.RetryConfig.MaxAttempts = maxAttempts
		return nil
	}
}
