// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"path/filepath"
	"testing"

	"github.com/ffutop/modbus-tcp/modbus"
)

// A small geometry keeps the snapshot files tiny in tests.
func smallConfig() modbus.TableConfig {
	return modbus.TableConfig{
		Coils:            modbus.BlockGeometry{Start: 0, Capacity: 64},
		DiscreteInputs:   modbus.BlockGeometry{Start: 0, Capacity: 64},
		HoldingRegisters: modbus.BlockGeometry{Start: 0x10, Capacity: 32},
		InputRegisters:   modbus.BlockGeometry{Start: 0, Capacity: 32},
	}
}

func populate(t *testing.T, table *modbus.DataTable) {
	t.Helper()
	if err := table.Coils.SetRange(3, []bool{true, false, true}); err != nil {
		t.Fatal(err)
	}
	if err := table.DiscreteInputs.Set(7, true); err != nil {
		t.Fatal(err)
	}
	if err := table.HoldingRegisters.SetRange(0x12, []modbus.RegValue{0xBEEF, 0x0001}); err != nil {
		t.Fatal(err)
	}
	if err := table.InputRegisters.Set(9, 0x7FFF); err != nil {
		t.Fatal(err)
	}
}

func verify(t *testing.T, table *modbus.DataTable) {
	t.Helper()
	bits, err := table.Coils.GetRange(3, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !bits[0] || bits[1] || !bits[2] {
		t.Errorf("coils = %v", bits)
	}
	on, _ := table.DiscreteInputs.Get(7)
	if !on {
		t.Error("discrete input 7 lost")
	}
	regs, err := table.HoldingRegisters.GetRange(0x12, 2)
	if err != nil {
		t.Fatal(err)
	}
	if regs[0] != 0xBEEF || regs[1] != 0x0001 {
		t.Errorf("holding = %#04x %#04x", uint16(regs[0]), uint16(regs[1]))
	}
	v, _ := table.InputRegisters.Get(9)
	if v != 0x7FFF {
		t.Errorf("input register 9 = %#04x", uint16(v))
	}
}

func TestSnapshotRestore(t *testing.T) {
	src := modbus.NewDataTableWith(smallConfig())
	populate(t, src)

	buf := make([]byte, snapshotSize(src))
	if err := snapshot(src, buf); err != nil {
		t.Fatal(err)
	}

	dst := modbus.NewDataTableWith(smallConfig())
	if err := restore(dst, buf); err != nil {
		t.Fatal(err)
	}
	verify(t, dst)
}

func TestSnapshotSizeMismatch(t *testing.T) {
	table := modbus.NewDataTableWith(smallConfig())
	if err := restore(table, make([]byte, 3)); err == nil {
		t.Error("restore accepted a snapshot of the wrong size")
	}
	if err := snapshot(table, make([]byte, 3)); err == nil {
		t.Error("snapshot accepted a buffer of the wrong size")
	}
}

func TestFileStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.snap")
	store := NewFileStorage(path)

	table, err := store.Load(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	populate(t, table)
	if err := store.Save(table); err != nil {
		t.Fatal(err)
	}

	reloaded, err := NewFileStorage(path).Load(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	verify(t, reloaded)
}

func TestMmapStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.mmap")
	store := NewMmapStorage(path)

	table, err := store.Load(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	populate(t, table)
	if err := store.Save(table); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	second := NewMmapStorage(path)
	reloaded, err := second.Load(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer second.Close()
	verify(t, reloaded)
}

func TestMemoryStorageIsFresh(t *testing.T) {
	store := NewMemoryStorage()
	table, err := store.Load(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	populate(t, table)
	if err := store.Save(table); err != nil {
		t.Fatal(err)
	}

	fresh, err := store.Load(smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	v, _ := fresh.HoldingRegisters.Get(0x12)
	if v != 0 {
		t.Errorf("memory storage persisted %#04x", uint16(v))
	}
}

func TestNewPicksBackend(t *testing.T) {
	if _, ok := New("file", "x").(*FileStorage); !ok {
		t.Error("file backend")
	}
	if _, ok := New("mmap", "x").(*MmapStorage); !ok {
		t.Error("mmap backend")
	}
	if _, ok := New("sql", "x").(*SQLStorage); !ok {
		t.Error("sql backend")
	}
	if _, ok := New("", "").(*MemoryStorage); !ok {
		t.Error("default backend")
	}
}
