// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"path/filepath"
	"testing"

	"github.com/ffutop/modbus-tcp/modbus"
)

func BenchmarkSnapshot(b *testing.B) {
	table := modbus.NewDataTable()
	buf := make([]byte, snapshotSize(table))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := snapshot(table, buf); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRestore(b *testing.B) {
	table := modbus.NewDataTable()
	buf := make([]byte, snapshotSize(table))
	if err := snapshot(table, buf); err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := restore(table, buf); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkFileSave(b *testing.B) {
	store := NewFileStorage(filepath.Join(b.TempDir(), "table.snap"))
	table, err := store.Load(modbus.TableConfig{
		Coils:            modbus.BlockGeometry{Capacity: 1024},
		DiscreteInputs:   modbus.BlockGeometry{Capacity: 1024},
		HoldingRegisters: modbus.BlockGeometry{Capacity: 1024},
		InputRegisters:   modbus.BlockGeometry{Capacity: 1024},
	})
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := store.Save(table); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkMmapSave(b *testing.B) {
	store := NewMmapStorage(filepath.Join(b.TempDir(), "table.mmap"))
	table, err := store.Load(modbus.TableConfig{
		Coils:            modbus.BlockGeometry{Capacity: 1024},
		DiscreteInputs:   modbus.BlockGeometry{Capacity: 1024},
		HoldingRegisters: modbus.BlockGeometry{Capacity: 1024},
		InputRegisters:   modbus.BlockGeometry{Capacity: 1024},
	})
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := store.Save(table); err != nil {
			b.Fatal(err)
		}
	}
}
