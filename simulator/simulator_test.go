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

package simulator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	foe "github.com/seantywork/go-foe"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*13 + 7)
	}
	return b
}

// newMaster wires a Master to a fresh simulator with one slave.
func newMaster(t *testing.T, cfg SlaveConfig) (*foe.Master, *Simulator) {
	t.Helper()
	sim := New()
	require.NoError(t, sim.AddSlave(1, cfg))
	m, err := foe.New(sim)
	require.NoError(t, err)
	require.NoError(t, m.RegisterSlave(1, cfg.MailboxSize))
	return m, sim
}

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()

	// Mailbox 32 -> maxdata 20; sizes straddle every segmentation edge
	// including exact multiples of maxdata.
	for _, size := range []int{0, 1, 19, 20, 21, 40, 60, 67, 244} {
		size := size
		t.Run(fmt.Sprintf("%dbytes", size), func(t *testing.T) {
			t.Parallel()

			m, sim := newMaster(t, SlaveConfig{MailboxSize: 32})
			file := pattern(size)

			require.NoError(t, m.Write(1, "image.bin", 0, file, 0))

			stored, err := sim.LoadFile(1, "image.bin")
			require.NoError(t, err)
			assert.Equal(t, file, stored)

			buf := make([]byte, size+8)
			n, err := m.Read(1, "image.bin", 0, buf, 0)
			require.NoError(t, err)
			assert.Equal(t, size, n)
			assert.Equal(t, file, buf[:n])
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	t.Parallel()

	m, _ := newMaster(t, SlaveConfig{MailboxSize: 32})
	_, err := m.Read(1, "nope.bin", 0, make([]byte, 32), 0)
	require.ErrorIs(t, err, foe.ErrFileNotFound)
}

func TestPasswordEnforcement(t *testing.T) {
	t.Parallel()

	m, sim := newMaster(t, SlaveConfig{MailboxSize: 32, Password: 0x1234})
	require.NoError(t, sim.StoreFile(1, "locked.bin", pattern(10)))

	_, err := m.Read(1, "locked.bin", 0, make([]byte, 32), 0)
	var foeErr *foe.Error
	require.ErrorAs(t, err, &foeErr)
	assert.Equal(t, uint32(0x800A), foeErr.Code)

	buf := make([]byte, 32)
	n, err := m.Read(1, "locked.bin", 0x1234, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, pattern(10), buf[:n])
}

func TestBusyInjectionOnWrite(t *testing.T) {
	t.Parallel()

	// The slave BUSYs the first two DATA segments; the master must
	// replay them and the stored file still come out intact.
	m, sim := newMaster(t, SlaveConfig{MailboxSize: 32, BusyRuns: 2})
	file := pattern(50)

	require.NoError(t, m.Write(1, "busy.bin", 0, file, 0))
	stored, err := sim.LoadFile(1, "busy.bin")
	require.NoError(t, err)
	assert.Equal(t, file, stored)
}

func TestInjectedFault(t *testing.T) {
	t.Parallel()

	m, _ := newMaster(t, SlaveConfig{MailboxSize: 32, FailWithCode: 0x8003})
	err := m.Write(1, "full.bin", 0, pattern(10), 0)
	var foeErr *foe.Error
	require.ErrorAs(t, err, &foeErr)
	assert.Equal(t, uint32(0x8003), foeErr.Code)
	assert.Equal(t, "injected fault", foeErr.Text)
}

func TestLargeTransferManySegments(t *testing.T) {
	t.Parallel()

	// 256-byte mailbox, 10000 bytes: 41 full segments and a short tail.
	m, sim := newMaster(t, SlaveConfig{MailboxSize: 256})
	file := pattern(10000)

	require.NoError(t, m.Write(1, "big.bin", 0, file, 0))
	stored, err := sim.LoadFile(1, "big.bin")
	require.NoError(t, err)
	require.Equal(t, file, stored)

	buf := make([]byte, len(file))
	n, err := m.Read(1, "big.bin", 0, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, file, buf[:n])
}

func TestAddSlaveValidatesMailboxSize(t *testing.T) {
	t.Parallel()

	sim := New()
	require.Error(t, sim.AddSlave(1, SlaveConfig{MailboxSize: 4}))
}

func TestStoreAndLoadUnknownSlave(t *testing.T) {
	t.Parallel()

	sim := New()
	require.Error(t, sim.StoreFile(9, "x", nil))
	_, err := sim.LoadFile(9, "x")
	require.Error(t, err)
}

func TestProgressHookThroughSimulator(t *testing.T) {
	t.Parallel()

	m, _ := newMaster(t, SlaveConfig{MailboxSize: 32})
	var packets []uint32
	m.SetProgressHook(func(_ uint16, packet uint32, _ int) {
		packets = append(packets, packet)
	})

	require.NoError(t, m.Write(1, "hooked.bin", 0, pattern(45), 0))
	assert.Equal(t, []uint32{0, 1, 2, 3}, packets)
}
