// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"encoding/binary"
	"fmt"

	"github.com/ffutop/modbus-tcp/modbus"
)

// Snapshot layout: the four blocks back to back, bit cells one byte each,
// register cells two big-endian bytes each. Offsets follow from the
// table's configured capacities, so a snapshot only restores into a table
// with the same geometry.

// snapshotSize is the byte size of a snapshot of t.
func snapshotSize(t *modbus.DataTable) int {
	return t.Coils.Capacity() + t.DiscreteInputs.Capacity() +
		t.HoldingRegisters.Capacity()*2 + t.InputRegisters.Capacity()*2
}

// snapshot serializes the table contents into buf, which must be exactly
// snapshotSize bytes. Each block is copied under its own lock.
func snapshot(t *modbus.DataTable, buf []byte) error {
	if len(buf) != snapshotSize(t) {
		return fmt.Errorf("snapshot buffer is %d bytes, want %d", len(buf), snapshotSize(t))
	}
	off := 0
	for _, b := range []*modbus.BitBlock{t.Coils, t.DiscreteInputs} {
		bits, err := b.GetRange(b.Start(), b.Capacity())
		if err != nil {
			return err
		}
		for _, on := range bits {
			if on {
				buf[off] = 1
			} else {
				buf[off] = 0
			}
			off++
		}
	}
	for _, b := range []*modbus.RegBlock{t.HoldingRegisters, t.InputRegisters} {
		values, err := b.GetRange(b.Start(), b.Capacity())
		if err != nil {
			return err
		}
		for _, v := range values {
			binary.BigEndian.PutUint16(buf[off:], uint16(v))
			off += 2
		}
	}
	return nil
}

// restore deserializes buf into the table contents, block by block.
func restore(t *modbus.DataTable, buf []byte) error {
	if len(buf) != snapshotSize(t) {
		return fmt.Errorf("snapshot of %d bytes does not fit table of %d", len(buf), snapshotSize(t))
	}
	off := 0
	for _, b := range []*modbus.BitBlock{t.Coils, t.DiscreteInputs} {
		bits := make([]bool, b.Capacity())
		for i := range bits {
			bits[i] = buf[off] != 0
			off++
		}
		if err := b.SetRange(b.Start(), bits); err != nil {
			return err
		}
	}
	for _, b := range []*modbus.RegBlock{t.HoldingRegisters, t.InputRegisters} {
		values := make([]modbus.RegValue, b.Capacity())
		for i := range values {
			values[i] = modbus.RegValue(binary.BigEndian.Uint16(buf[off:]))
			off += 2
		}
		if err := b.SetRange(b.Start(), values); err != nil {
			return err
		}
	}
	return nil
}
