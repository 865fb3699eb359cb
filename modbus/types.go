// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import "fmt"

// Address is a 16-bit Modbus data address. Every uint16 is a valid address;
// whether it falls inside a particular block is the block's decision.
type Address uint16

// Add returns a+n, failing instead of wrapping past 0xFFFF.
func (a Address) Add(n uint16) (Address, error) {
	sum := uint32(a) + uint32(n)
	if sum > MaxAddress {
		return 0, fmt.Errorf("address %#04x + %d: %w", uint16(a), n, ErrOutOfRange)
	}
	return Address(sum), nil
}

// Sub returns a-n, failing instead of wrapping below zero.
func (a Address) Sub(n uint16) (Address, error) {
	if uint16(a) < n {
		return 0, fmt.Errorf("address %#04x - %d: %w", uint16(a), n, ErrOutOfRange)
	}
	return a - Address(n), nil
}

func (a Address) Validate() error { return nil }

// RegValue is the content of a single 16-bit register.
type RegValue uint16

func (v RegValue) Validate() error { return nil }

// Mask is an and/or operand of the mask-write-register function.
type Mask uint16

func (m Mask) Validate() error { return nil }

// ReadBitCount is the quantity field of a coil / discrete-input read.
type ReadBitCount uint16

func (c ReadBitCount) Validate() error {
	if c < 1 || c > MaxReadBits {
		return fmt.Errorf("read bit count %d outside [1, %#04x]: %w", uint16(c), MaxReadBits, ErrOutOfRange)
	}
	return nil
}

// WriteBitCount is the quantity field of a multiple-coil write.
type WriteBitCount uint16

func (c WriteBitCount) Validate() error {
	if c < 1 || c > MaxWriteBits {
		return fmt.Errorf("write bit count %d outside [1, %#04x]: %w", uint16(c), MaxWriteBits, ErrOutOfRange)
	}
	return nil
}

// ReadRegCount is the quantity field of a register read.
type ReadRegCount uint16

func (c ReadRegCount) Validate() error {
	if c < 1 || c > MaxReadRegs {
		return fmt.Errorf("read register count %d outside [1, %#04x]: %w", uint16(c), MaxReadRegs, ErrOutOfRange)
	}
	return nil
}

// WriteRegCount is the quantity field of a multiple-register write.
type WriteRegCount uint16

func (c WriteRegCount) Validate() error {
	if c < 1 || c > MaxWriteRegs {
		return fmt.Errorf("write register count %d outside [1, %#04x]: %w", uint16(c), MaxWriteRegs, ErrOutOfRange)
	}
	return nil
}

// CoilValue is the two-byte on/off encoding of a single coil write.
type CoilValue uint16

const (
	CoilOff CoilValue = 0x0000
	CoilOn  CoilValue = 0xFF00
)

func (v CoilValue) Validate() error {
	if v != CoilOff && v != CoilOn {
		return fmt.Errorf("coil value %#04x is neither ON nor OFF: %w", uint16(v), ErrOutOfRange)
	}
	return nil
}

// Bool reports the coil state. Only meaningful on a validated value.
func (v CoilValue) Bool() bool { return v == CoilOn }

// CoilFromBool converts a boolean coil state to its wire encoding.
func CoilFromBool(on bool) CoilValue {
	if on {
		return CoilOn
	}
	return CoilOff
}
