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
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/phsym/console-slog"
)

var (
	debugEnabled atomic.Bool
	debugLogger  = slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
		Level: slog.LevelDebug,
	}))
)

// SetDebugEnabled switches debug logging of the transfer loops on or
// off. Output goes to stderr through a console slog handler.
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetDebugLogger replaces the logger used for debug output. Passing nil
// restores the default stderr console handler.
func SetDebugLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	debugLogger = logger
}

func debugf(format string, args ...any) {
	if debugEnabled.Load() {
		debugLogger.Debug(fmt.Sprintf(format, args...))
	}
}
