// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.
package tcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ffutop/modbus-tcp/modbus"
)

func TestClientTransactionIDsIncrement(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	table := modbus.NewDataTable()
	addr := startServer(t, ctx, table)
	client := NewClient(addr, 1)
	client.Timeout = 2 * time.Second

	// Several calls in a row must keep pairing replies, which only works
	// if every request carries a fresh transaction id echoed back.
	for i := 0; i < 5; i++ {
		if _, err := client.ReadCoils(ctx, 0, 1); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if client.transactionID != 5 {
		t.Errorf("transaction counter = %d, want 5", client.transactionID)
	}
}

func TestClientMaskWriteAndReadWrite(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	table := modbus.NewDataTable()
	table.HoldingRegisters.Set(0x04, 0x0012)
	addr := startServer(t, ctx, table)
	client := NewClient(addr, 1)
	client.Timeout = 2 * time.Second

	if err := client.MaskWriteRegister(ctx, 0x04, 0x00F2, 0x0025); err != nil {
		t.Fatalf("MaskWriteRegister: %v", err)
	}
	v, err := table.HoldingRegisters.Get(0x04)
	if err != nil || v != 0x0037 {
		t.Errorf("register = %#04x, %v; want 0x0037", uint16(v), err)
	}

	values, err := client.ReadWriteMultipleRegisters(ctx, 0x01, 5, 0x00, []modbus.RegValue{1, 2, 3, 4, 5})
	if err != nil {
		t.Fatalf("ReadWriteMultipleRegisters: %v", err)
	}
	want := []modbus.RegValue{2, 3, 4, 5, 0}
	for i := range want {
		if values[i] != want[i] {
			t.Errorf("payload %d = %d, want %d", i, values[i], want[i])
		}
	}
}

func TestClientWriteMultipleCoils(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	table := modbus.NewDataTable()
	addr := startServer(t, ctx, table)
	client := NewClient(addr, 1)
	client.Timeout = 2 * time.Second

	pattern := []bool{true, true, false, true, false, false, true, false, true}
	if err := client.WriteMultipleCoils(ctx, 0x30, pattern); err != nil {
		t.Fatalf("WriteMultipleCoils: %v", err)
	}
	bits, err := client.ReadDiscreteInputs(ctx, 0, 1)
	if err != nil {
		t.Fatalf("ReadDiscreteInputs: %v", err)
	}
	if bits[0] {
		t.Error("discrete input 0 should stay off")
	}
	got, err := table.Coils.GetRange(0x30, len(pattern))
	if err != nil {
		t.Fatal(err)
	}
	for i := range pattern {
		if got[i] != pattern[i] {
			t.Errorf("coil %d = %v, want %v", i, got[i], pattern[i])
		}
	}
}

func TestClientRejectsUnreachableServer(t *testing.T) {
	client := NewClient("127.0.0.1:1", 1)
	client.Timeout = 200 * time.Millisecond
	_, err := client.ReadCoils(context.Background(), 0, 1)
	if err == nil {
		t.Fatal("expected a connection error")
	}
	if _, ok := modbus.AsException(err); ok {
		t.Errorf("connection failure decoded as exception: %v", err)
	}
}

func TestClientEncodeErrorsSurface(t *testing.T) {
	client := NewClient("127.0.0.1:1", 1)
	_, err := client.ReadCoils(context.Background(), 0, 0)
	if !errors.Is(err, modbus.ErrBadData) {
		t.Errorf("err = %v, want ErrBadData before any dial", err)
	}
}
