// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"bytes"
	"testing"
)

func TestHandleReadCoilsScenario(t *testing.T) {
	table := NewDataTable()
	if err := table.Coils.SetRange(0, []bool{
		true, false, true, false, true, false, true, false, true, false,
	}); err != nil {
		t.Fatal(err)
	}

	request := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x02, 0x01, 0x00, 0x00, 0x00, 0x0A}
	want := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x05, 0x02, 0x01, 0x02, 0x55, 0x01}

	reply := Handle(table, request)
	if !bytes.Equal(reply, want) {
		t.Errorf("reply % x\nwant  % x", reply, want)
	}
}

func TestHandleWriteSingleCoilScenario(t *testing.T) {
	table := NewDataTable()
	frame := []byte{0x00, 0x10, 0x00, 0x00, 0x00, 0x06, 0x01, 0x05, 0x00, 0xAC, 0xFF, 0x00}

	reply := Handle(table, frame)
	if !bytes.Equal(reply, frame) {
		t.Errorf("reply % x\nwant  % x", reply, frame)
	}
	on, err := table.Coils.Get(0x00AC)
	if err != nil || !on {
		t.Errorf("coil 0x00AC = %v, %v; want on", on, err)
	}
}

func TestHandleIllegalDataAddressScenario(t *testing.T) {
	table := NewDataTable()
	request := []byte{0x00, 0x20, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0xFF, 0xFE, 0x00, 0x05}
	want := []byte{0x00, 0x20, 0x00, 0x00, 0x00, 0x03, 0x01, 0x83, 0x02}

	reply := Handle(table, request)
	if !bytes.Equal(reply, want) {
		t.Errorf("reply % x\nwant  % x", reply, want)
	}
}

func TestHandleMaskWriteScenario(t *testing.T) {
	table := NewDataTable()
	table.HoldingRegisters.Set(0x0001, 0x0012)

	request := []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x08, 0x01, 0x16,
		0x00, 0x01, 0x00, 0xF2, 0x00, 0x25}
	reply := Handle(table, request)
	if !bytes.Equal(reply, request) {
		t.Errorf("reply % x\nwant the echoed request", reply)
	}

	v, _ := table.HoldingRegisters.Get(0x0001)
	if v != 0x0037 {
		t.Errorf("stored %#04x, want 0x0037", uint16(v))
	}
}

func TestHandleWriteMultipleRegistersScenario(t *testing.T) {
	table := NewDataTable()
	request := []byte{0x12, 0x34, 0x00, 0x00, 0x00, 0x0B, 0x01, 0x10,
		0x00, 0x00, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x01, 0x02}
	want := []byte{0x12, 0x34, 0x00, 0x00, 0x00, 0x06, 0x01, 0x10,
		0x00, 0x00, 0x00, 0x02}

	reply := Handle(table, request)
	if !bytes.Equal(reply, want) {
		t.Errorf("reply % x\nwant  % x", reply, want)
	}

	got, err := table.HoldingRegisters.GetRange(0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != 0x000A || got[1] != 0x0102 {
		t.Errorf("registers = %#04x %#04x", uint16(got[0]), uint16(got[1]))
	}
}

func TestHandleReadWriteMultipleRegistersScenario(t *testing.T) {
	table := NewDataTable()
	req := &ReadWriteMultipleRegistersRequest{
		Header:       Header{Transaction: 0x1234, Unit: 0x01},
		ReadAddress:  0x0001,
		ReadCount:    5,
		WriteAddress: 0x0000,
		WriteCount:   5,
		WriteValues:  []RegValue{1, 2, 3, 4, 5},
	}
	raw, err := req.Encode()
	if err != nil {
		t.Fatal(err)
	}

	reply := Handle(table, raw)
	resp := NewReadWriteMultipleRegistersResponse(req)
	if err := resp.Decode(reply); err != nil {
		t.Fatal(err)
	}

	// Write happened first: registers 0..4 hold 1..5.
	stored, err := table.HoldingRegisters.GetRange(0, 5)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []RegValue{1, 2, 3, 4, 5} {
		if stored[i] != want {
			t.Errorf("register %d = %d, want %d", i, stored[i], want)
		}
	}

	// Read at 0x0001 sees the written values shifted by one.
	wantRead := []RegValue{2, 3, 4, 5, 0}
	for i := range wantRead {
		if resp.Values[i] != wantRead[i] {
			t.Errorf("payload %d = %d, want %d", i, resp.Values[i], wantRead[i])
		}
	}
	if reply[8] != 0x0A {
		t.Errorf("byte count = %#02x, want 0x0A", reply[8])
	}
}

func TestHandleUnknownFunction(t *testing.T) {
	table := NewDataTable()
	request := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x02, 0x01, 0x41}
	want := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x03, 0x01, 0xC1, 0x01}

	reply := Handle(table, request)
	if !bytes.Equal(reply, want) {
		t.Errorf("reply % x\nwant  % x", reply, want)
	}
}

func TestHandleUncodedKnownFunction(t *testing.T) {
	table := NewDataTable()
	// Diagnostics (0x08) is declared but carries no codec.
	request := []byte{0x00, 0x07, 0x00, 0x00, 0x00, 0x06, 0x01, 0x08, 0x00, 0x00, 0x00, 0x00}
	want := []byte{0x00, 0x07, 0x00, 0x00, 0x00, 0x03, 0x01, 0x88, 0x01}

	reply := Handle(table, request)
	if !bytes.Equal(reply, want) {
		t.Errorf("reply % x\nwant  % x", reply, want)
	}
}

func TestHandleDropsShortFrames(t *testing.T) {
	table := NewDataTable()
	if reply := Handle(table, []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x01}); len(reply) != 0 {
		t.Errorf("short frame got a reply: % x", reply)
	}
	if reply := Handle(table, nil); len(reply) != 0 {
		t.Errorf("empty frame got a reply: % x", reply)
	}
}

func TestHandleBestEffortAcrossRequests(t *testing.T) {
	table := NewDataTable()

	// A malformed request must not poison the next one.
	bad := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x06, 0x01, 0x10, 0x00, 0x00, 0x00, 0x02}
	Handle(table, bad)

	good := []byte{0x00, 0x02, 0x00, 0x00, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x01}
	reply := Handle(table, good)
	if len(reply) == 0 || reply[7] != 0x03 {
		t.Errorf("follow-up request failed: % x", reply)
	}
}
