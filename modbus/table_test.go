// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"errors"
	"sync"
	"testing"
)

func TestBlockValidation(t *testing.T) {
	b := NewRegBlock(BlockGeometry{Start: 0x100, Capacity: 0x10}, 0)

	cases := []struct {
		addr  Address
		count int
		want  bool
	}{
		{0x100, 1, true},
		{0x100, 0x10, true},
		{0x10F, 1, true},
		{0x0FF, 1, false},
		{0x110, 1, false},
		{0x100, 0x11, false},
		{0x10F, 2, false},
		{0x100, 0, false},
	}
	for _, tc := range cases {
		if got := b.ValidateRange(tc.addr, tc.count); got != tc.want {
			t.Errorf("ValidateRange(%#04x, %d) = %v, want %v", uint16(tc.addr), tc.count, got, tc.want)
		}
	}
}

func TestBlockDefaultGeometry(t *testing.T) {
	b := NewBitBlock(BlockGeometry{}, false)
	if b.Start() != 0 || b.Capacity() != BlockCapacity {
		t.Errorf("default geometry = %d+%d", b.Start(), b.Capacity())
	}
	if !b.ValidateRange(0xFFFF, 1) {
		t.Error("last address should be valid")
	}
	if b.ValidateRange(0xFFFF, 2) {
		t.Error("range past the address space should be invalid")
	}
}

func TestRegBlockGetSet(t *testing.T) {
	b := NewRegBlock(BlockGeometry{Start: 10, Capacity: 8}, 0xBEEF)

	v, err := b.Get(10)
	if err != nil || v != 0xBEEF {
		t.Fatalf("Get = %#04x, %v; want default", uint16(v), err)
	}
	if err := b.Set(12, 0x1234); err != nil {
		t.Fatal(err)
	}
	if err := b.SetRange(14, []RegValue{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	got, err := b.GetRange(10, 8)
	if err != nil {
		t.Fatal(err)
	}
	want := []RegValue{0xBEEF, 0xBEEF, 0x1234, 0xBEEF, 1, 2, 3, 0xBEEF}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("cell %d = %#04x, want %#04x", i, uint16(got[i]), uint16(want[i]))
		}
	}

	if _, err := b.Get(9); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Get below window: %v", err)
	}
	if err := b.SetRange(16, []RegValue{1, 2, 3}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("SetRange past window: %v", err)
	}

	b.Reset()
	v, _ = b.Get(12)
	if v != 0xBEEF {
		t.Errorf("Reset left %#04x", uint16(v))
	}
}

func TestBitBlockGetSet(t *testing.T) {
	b := NewBitBlock(BlockGeometry{Start: 0, Capacity: 16}, false)
	if err := b.SetRange(4, []bool{true, true, false, true}); err != nil {
		t.Fatal(err)
	}
	got, err := b.GetRange(3, 6)
	if err != nil {
		t.Fatal(err)
	}
	want := []bool{false, true, true, false, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("bit %d = %v, want %v", i, got[i], want[i])
		}
	}
}

// GetRange must copy: a later write may not alter a previously returned
// slice.
func TestGetRangeIsOwnedCopy(t *testing.T) {
	b := NewRegBlock(BlockGeometry{Capacity: 8}, 0)
	b.Set(0, 1)
	snap, err := b.GetRange(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	b.Set(0, 2)
	if snap[0] != 1 {
		t.Error("GetRange slice aliases block storage")
	}
}

func TestMaskWrite(t *testing.T) {
	b := NewRegBlock(BlockGeometry{Capacity: 8}, 0)
	b.Set(4, 0x0012)
	v, err := b.MaskWrite(4, 0x00F2, 0x0025)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x0037 {
		t.Errorf("MaskWrite = %#04x, want 0x0037", uint16(v))
	}
	got, _ := b.Get(4)
	if got != 0x0037 {
		t.Errorf("stored = %#04x, want 0x0037", uint16(got))
	}
}

// N writers and M readers on one register: every reader observes a value
// some writer stored (or the initial value), and the final value is one of
// the writers' values.
func TestRegisterConcurrency(t *testing.T) {
	const writers = 8
	const readers = 8
	const rounds = 200

	b := NewRegBlock(BlockGeometry{Capacity: 1}, 0)
	valid := make(map[RegValue]bool, writers*rounds+1)
	valid[0] = true
	for w := 0; w < writers; w++ {
		for i := 0; i < rounds; i++ {
			valid[RegValue(w*rounds+i+1)] = true
		}
	}

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				if err := b.Set(0, RegValue(w*rounds+i+1)); err != nil {
					t.Errorf("Set: %v", err)
					return
				}
			}
		}(w)
	}
	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				vs, err := b.GetRange(0, 1)
				if err != nil {
					t.Errorf("GetRange: %v", err)
					return
				}
				if !valid[vs[0]] {
					t.Errorf("torn or invented value %#04x", uint16(vs[0]))
					return
				}
			}
		}()
	}
	wg.Wait()

	final, _ := b.Get(0)
	if !valid[final] || final == 0 {
		t.Errorf("final value %#04x is not one of the writers'", uint16(final))
	}
}

// Two concurrent mask writes must serialize: the result is one of the two
// serial orders, never an interleaved bit mix.
func TestMaskWriteAtomicity(t *testing.T) {
	const rounds = 500
	for i := 0; i < rounds; i++ {
		b := NewRegBlock(BlockGeometry{Capacity: 1}, 0)
		b.Set(0, 0x00FF)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			b.MaskWrite(0, 0x0F0F, 0x3000)
		}()
		go func() {
			defer wg.Done()
			b.MaskWrite(0, 0x00F0, 0x4001)
		}()
		wg.Wait()

		ab := ((0x00FF&0x0F0F)|0x3000)&0x00F0 | 0x4001
		ba := ((0x00FF&0x00F0)|0x4001)&0x0F0F | 0x3000
		final, _ := b.Get(0)
		if final != RegValue(ab) && final != RegValue(ba) {
			t.Fatalf("final %#04x is neither %#04x nor %#04x", uint16(final), ab, ba)
		}
	}
}
