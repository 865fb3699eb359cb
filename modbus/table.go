// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"fmt"
	"sync"
)

// BlockGeometry fixes the address window of one data block. Start and
// Capacity are immutable after construction; only the contents mutate.
type BlockGeometry struct {
	Start    Address
	Capacity int
}

func (g BlockGeometry) normalize() BlockGeometry {
	if g.Capacity <= 0 || g.Capacity > BlockCapacity {
		g.Capacity = BlockCapacity
	}
	return g
}

// contains reports whether [addr, addr+count) lies inside the block window.
func (g BlockGeometry) contains(addr Address, count int) bool {
	if count <= 0 {
		return false
	}
	if addr < g.Start {
		return false
	}
	return int(addr)+count <= int(g.Start)+g.Capacity
}

// BitBlock is a contiguous run of single-bit cells (coils or discrete
// inputs) guarded by a readers-writer lock.
type BitBlock struct {
	mu   sync.RWMutex
	geom BlockGeometry
	def  bool
	data []bool
}

// NewBitBlock allocates a bit block filled with the default value.
// A non-positive capacity means the full 16-bit address space.
func NewBitBlock(geom BlockGeometry, def bool) *BitBlock {
	geom = geom.normalize()
	b := &BitBlock{geom: geom, def: def, data: make([]bool, geom.Capacity)}
	for i := range b.data {
		b.data[i] = def
	}
	return b
}

func (b *BitBlock) Start() Address { return b.geom.Start }
func (b *BitBlock) Capacity() int  { return b.geom.Capacity }

// Validate reports whether a single cell address is inside the block.
func (b *BitBlock) Validate(addr Address) bool {
	return b.geom.contains(addr, 1)
}

// ValidateRange reports whether [addr, addr+count) is inside the block.
func (b *BitBlock) ValidateRange(addr Address, count int) bool {
	return b.geom.contains(addr, count)
}

// Get reads one cell.
func (b *BitBlock) Get(addr Address) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.Validate(addr) {
		return false, fmt.Errorf("bit address %#04x: %w", uint16(addr), ErrOutOfRange)
	}
	return b.data[addr-b.geom.Start], nil
}

// GetRange copies [addr, addr+count) while holding the shared lock. The
// returned slice is owned by the caller; it never aliases block storage.
func (b *BitBlock) GetRange(addr Address, count int) ([]bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.ValidateRange(addr, count) {
		return nil, fmt.Errorf("bit range %#04x+%d: %w", uint16(addr), count, ErrOutOfRange)
	}
	i := int(addr - b.geom.Start)
	out := make([]bool, count)
	copy(out, b.data[i:i+count])
	return out, nil
}

// Set writes one cell.
func (b *BitBlock) Set(addr Address, v bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Validate(addr) {
		return fmt.Errorf("bit address %#04x: %w", uint16(addr), ErrOutOfRange)
	}
	b.data[addr-b.geom.Start] = v
	return nil
}

// SetRange writes len(vs) cells starting at addr.
func (b *BitBlock) SetRange(addr Address, vs []bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ValidateRange(addr, len(vs)) {
		return fmt.Errorf("bit range %#04x+%d: %w", uint16(addr), len(vs), ErrOutOfRange)
	}
	copy(b.data[addr-b.geom.Start:], vs)
	return nil
}

// Reset overwrites every cell with the block default.
func (b *BitBlock) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.data {
		b.data[i] = b.def
	}
}

// RegBlock is a contiguous run of 16-bit cells (holding or input
// registers) guarded by a readers-writer lock.
type RegBlock struct {
	mu   sync.RWMutex
	geom BlockGeometry
	def  RegValue
	data []RegValue
}

// NewRegBlock allocates a register block filled with the default value.
// A non-positive capacity means the full 16-bit address space.
func NewRegBlock(geom BlockGeometry, def RegValue) *RegBlock {
	geom = geom.normalize()
	b := &RegBlock{geom: geom, def: def, data: make([]RegValue, geom.Capacity)}
	for i := range b.data {
		b.data[i] = def
	}
	return b
}

func (b *RegBlock) Start() Address { return b.geom.Start }
func (b *RegBlock) Capacity() int  { return b.geom.Capacity }

// Validate reports whether a single cell address is inside the block.
func (b *RegBlock) Validate(addr Address) bool {
	return b.geom.contains(addr, 1)
}

// ValidateRange reports whether [addr, addr+count) is inside the block.
func (b *RegBlock) ValidateRange(addr Address, count int) bool {
	return b.geom.contains(addr, count)
}

// Get reads one register.
func (b *RegBlock) Get(addr Address) (RegValue, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.Validate(addr) {
		return 0, fmt.Errorf("register address %#04x: %w", uint16(addr), ErrOutOfRange)
	}
	return b.data[addr-b.geom.Start], nil
}

// GetRange copies [addr, addr+count) while holding the shared lock. The
// returned slice is owned by the caller; it never aliases block storage.
func (b *RegBlock) GetRange(addr Address, count int) ([]RegValue, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.ValidateRange(addr, count) {
		return nil, fmt.Errorf("register range %#04x+%d: %w", uint16(addr), count, ErrOutOfRange)
	}
	i := int(addr - b.geom.Start)
	out := make([]RegValue, count)
	copy(out, b.data[i:i+count])
	return out, nil
}

// Set writes one register.
func (b *RegBlock) Set(addr Address, v RegValue) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Validate(addr) {
		return fmt.Errorf("register address %#04x: %w", uint16(addr), ErrOutOfRange)
	}
	b.data[addr-b.geom.Start] = v
	return nil
}

// SetRange writes len(vs) registers starting at addr.
func (b *RegBlock) SetRange(addr Address, vs []RegValue) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ValidateRange(addr, len(vs)) {
		return fmt.Errorf("register range %#04x+%d: %w", uint16(addr), len(vs), ErrOutOfRange)
	}
	copy(b.data[addr-b.geom.Start:], vs)
	return nil
}

// MaskWrite replaces the register at addr with (current AND and) OR or.
// The read-compute-write runs under a single exclusive lock and returns
// the stored result.
func (b *RegBlock) MaskWrite(addr Address, and, or Mask) (RegValue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Validate(addr) {
		return 0, fmt.Errorf("register address %#04x: %w", uint16(addr), ErrOutOfRange)
	}
	i := addr - b.geom.Start
	v := (b.data[i] & RegValue(and)) | RegValue(or)
	b.data[i] = v
	return v, nil
}

// Reset overwrites every register with the block default.
func (b *RegBlock) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.data {
		b.data[i] = b.def
	}
}

// DataTable is the server's in-memory data model: the four Modbus address
// spaces, each an independent block with its own lock. There is no global
// lock and no cross-block atomicity.
type DataTable struct {
	Coils            *BitBlock
	DiscreteInputs   *BitBlock
	HoldingRegisters *RegBlock
	InputRegisters   *RegBlock
}

// TableConfig fixes the geometry of each block. Zero values mean the
// defaults: start 0, full 16-bit capacity, zero contents.
type TableConfig struct {
	Coils            BlockGeometry
	DiscreteInputs   BlockGeometry
	HoldingRegisters BlockGeometry
	InputRegisters   BlockGeometry
}

// NewDataTable allocates a table with default geometry.
func NewDataTable() *DataTable {
	return NewDataTableWith(TableConfig{})
}

// NewDataTableWith allocates a table with the given per-block geometry.
func NewDataTableWith(cfg TableConfig) *DataTable {
	return &DataTable{
		Coils:            NewBitBlock(cfg.Coils, false),
		DiscreteInputs:   NewBitBlock(cfg.DiscreteInputs, false),
		HoldingRegisters: NewRegBlock(cfg.HoldingRegisters, 0),
		InputRegisters:   NewRegBlock(cfg.InputRegisters, 0),
	}
}

// Reset restores every block to its default contents.
func (t *DataTable) Reset() {
	t.Coils.Reset()
	t.DiscreteInputs.Reset()
	t.HoldingRegisters.Reset()
	t.InputRegisters.Reset()
}
