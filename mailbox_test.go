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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPoolZeroesBuffers(t *testing.T) {
	t.Parallel()

	pool := NewBufferPool(64)
	b := pool.Get()
	require.Len(t, b, 64)

	for i := range b {
		b[i] = 0xff
	}
	pool.Put(b)

	// Regardless of whether the pool recycles or allocates, Get hands
	// out all-zero buffers.
	b2 := pool.Get()
	require.Len(t, b2, 64)
	for i, v := range b2 {
		require.Zero(t, v, "byte %d not cleared", i)
	}
}

func TestBufferPoolRestoresCapacity(t *testing.T) {
	t.Parallel()

	pool := NewBufferPool(32)
	b := pool.Get()

	// Transfers send sliced-down frames; the pool must hand the full
	// buffer back out afterwards.
	pool.Put(b[:7])
	b2 := pool.Get()
	assert.Len(t, b2, 32)
}

func TestBufferPoolDropsForeignBuffers(t *testing.T) {
	t.Parallel()

	pool := NewBufferPool(32)
	pool.Put(make([]byte, 8)) // too small, silently dropped
	b := pool.Get()
	assert.Len(t, b, 32)
	assert.Equal(t, 32, pool.Size())
}
