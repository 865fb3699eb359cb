// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/ffutop/modbus-tcp/modbus"
)

const (
	tcpTimeout = 10 * time.Second
)

// Client is a Modbus TCP client. Each call builds a request object,
// allocates a transaction id, carries the frame to the server, and runs
// the paired response decoder over the reply.
type Client struct {
	Address string
	Timeout time.Duration
	UnitID  byte

	transactionID uint32 // Atomic counter
}

// NewClient allocates and initializes a TCP Client for the given unit.
func NewClient(address string, unitID byte) *Client {
	return &Client{
		Address: address,
		Timeout: tcpTimeout,
		UnitID:  unitID,
	}
}

// nextHeader allocates the MBAP header of the next request.
func (mb *Client) nextHeader() modbus.Header {
	return modbus.Header{
		Transaction: uint16(atomic.AddUint32(&mb.transactionID, 1)),
		Protocol:    modbus.TCPProtocol,
		Unit:        mb.UnitID,
	}
}

// ReadCoils reads count coil states starting at addr.
func (mb *Client) ReadCoils(ctx context.Context, addr modbus.Address, count uint16) ([]bool, error) {
	req := &modbus.ReadCoilsRequest{Header: mb.nextHeader(), Address: addr, Count: modbus.ReadBitCount(count)}
	raw, err := mb.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := modbus.NewReadCoilsResponse(req)
	if err := resp.Decode(raw); err != nil {
		return nil, err
	}
	return resp.Bits, nil
}

// ReadDiscreteInputs reads count discrete input states starting at addr.
func (mb *Client) ReadDiscreteInputs(ctx context.Context, addr modbus.Address, count uint16) ([]bool, error) {
	req := &modbus.ReadDiscreteInputsRequest{Header: mb.nextHeader(), Address: addr, Count: modbus.ReadBitCount(count)}
	raw, err := mb.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := modbus.NewReadDiscreteInputsResponse(req)
	if err := resp.Decode(raw); err != nil {
		return nil, err
	}
	return resp.Bits, nil
}

// ReadHoldingRegisters reads count holding registers starting at addr.
func (mb *Client) ReadHoldingRegisters(ctx context.Context, addr modbus.Address, count uint16) ([]modbus.RegValue, error) {
	req := &modbus.ReadHoldingRegistersRequest{Header: mb.nextHeader(), Address: addr, Count: modbus.ReadRegCount(count)}
	raw, err := mb.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := modbus.NewReadHoldingRegistersResponse(req)
	if err := resp.Decode(raw); err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// ReadInputRegisters reads count input registers starting at addr.
func (mb *Client) ReadInputRegisters(ctx context.Context, addr modbus.Address, count uint16) ([]modbus.RegValue, error) {
	req := &modbus.ReadInputRegistersRequest{Header: mb.nextHeader(), Address: addr, Count: modbus.ReadRegCount(count)}
	raw, err := mb.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := modbus.NewReadInputRegistersResponse(req)
	if err := resp.Decode(raw); err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// WriteSingleCoil sets the coil at addr and returns its new state.
func (mb *Client) WriteSingleCoil(ctx context.Context, addr modbus.Address, on bool) (bool, error) {
	req := &modbus.WriteSingleCoilRequest{Header: mb.nextHeader(), Address: addr, Value: modbus.CoilFromBool(on)}
	raw, err := mb.roundTrip(ctx, req)
	if err != nil {
		return false, err
	}
	resp := modbus.NewWriteSingleCoilResponse(req)
	if err := resp.Decode(raw); err != nil {
		return false, err
	}
	return resp.Value.Bool(), nil
}

// WriteSingleRegister sets the holding register at addr and returns the
// echoed value.
func (mb *Client) WriteSingleRegister(ctx context.Context, addr modbus.Address, value modbus.RegValue) (modbus.RegValue, error) {
	req := &modbus.WriteSingleRegisterRequest{Header: mb.nextHeader(), Address: addr, Value: value}
	raw, err := mb.roundTrip(ctx, req)
	if err != nil {
		return 0, err
	}
	resp := modbus.NewWriteSingleRegisterResponse(req)
	if err := resp.Decode(raw); err != nil {
		return 0, err
	}
	return resp.Value, nil
}

// WriteMultipleCoils sets len(values) coils starting at addr.
func (mb *Client) WriteMultipleCoils(ctx context.Context, addr modbus.Address, values []bool) error {
	req := &modbus.WriteMultipleCoilsRequest{
		Header:  mb.nextHeader(),
		Address: addr,
		Count:   modbus.WriteBitCount(len(values)),
		Values:  values,
	}
	raw, err := mb.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	return modbus.NewWriteMultipleCoilsResponse(req).Decode(raw)
}

// WriteMultipleRegisters sets len(values) holding registers starting at addr.
func (mb *Client) WriteMultipleRegisters(ctx context.Context, addr modbus.Address, values []modbus.RegValue) error {
	req := &modbus.WriteMultipleRegistersRequest{
		Header:  mb.nextHeader(),
		Address: addr,
		Count:   modbus.WriteRegCount(len(values)),
		Values:  values,
	}
	raw, err := mb.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	return modbus.NewWriteMultipleRegistersResponse(req).Decode(raw)
}

// MaskWriteRegister applies (current AND and) OR or to the holding
// register at addr.
func (mb *Client) MaskWriteRegister(ctx context.Context, addr modbus.Address, and, or modbus.Mask) error {
	req := &modbus.MaskWriteRegisterRequest{Header: mb.nextHeader(), Address: addr, AndMask: and, OrMask: or}
	raw, err := mb.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	return modbus.NewMaskWriteRegisterResponse(req).Decode(raw)
}

// ReadWriteMultipleRegisters writes writeValues at writeAddr, then reads
// readCount registers at readAddr, in one request.
func (mb *Client) ReadWriteMultipleRegisters(ctx context.Context, readAddr modbus.Address, readCount uint16,
	writeAddr modbus.Address, writeValues []modbus.RegValue) ([]modbus.RegValue, error) {
	req := &modbus.ReadWriteMultipleRegistersRequest{
		Header:       mb.nextHeader(),
		ReadAddress:  readAddr,
		ReadCount:    modbus.ReadRegCount(readCount),
		WriteAddress: writeAddr,
		WriteCount:   modbus.WriteRegCount(len(writeValues)),
		WriteValues:  writeValues,
	}
	raw, err := mb.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := modbus.NewReadWriteMultipleRegistersResponse(req)
	if err := resp.Decode(raw); err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// roundTrip encodes the request, carries it over the wire, and checks the
// reply size against the request's expected response size before any
// parsing. Error ADUs are always 9 bytes and pass the size gate too.
func (mb *Client) roundTrip(ctx context.Context, req modbus.Request) ([]byte, error) {
	raw, err := req.Encode()
	if err != nil {
		return nil, err
	}
	reply, err := mb.Send(ctx, raw)
	if err != nil {
		return nil, err
	}
	if len(reply) != req.ResponseSize() && len(reply) != modbus.HeaderLength+2 {
		return nil, fmt.Errorf("reply of %d bytes, want %d: %w",
			len(reply), req.ResponseSize(), modbus.ErrBadDataSize)
	}
	return reply, nil
}

// Send carries one framed request and returns the framed reply.
func (mb *Client) Send(ctx context.Context, request []byte) ([]byte, error) {
	conn, err := net.DialTimeout("tcp", mb.Address, mb.Timeout)
	if err != nil {
		return nil, fmt.Errorf("modbus: failed to connect to %s: %w", mb.Address, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(mb.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err = conn.SetDeadline(deadline); err != nil {
		return nil, err
	}

	reply, err := mb.sendAndRead(conn, request)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, modbus.ErrConnectionProblem)
	}
	return reply, nil
}

func (mb *Client) sendAndRead(conn net.Conn, request []byte) ([]byte, error) {
	if _, err := conn.Write(request); err != nil {
		return nil, err
	}

	// Read MBAP prefix (first 6 bytes)
	prefix := make([]byte, modbus.HeaderLength-1)
	if _, err := io.ReadFull(conn, prefix); err != nil {
		return nil, err
	}

	// Parse Length
	length := int(prefix[4])<<8 | int(prefix[5])
	if length == 0 || modbus.HeaderLength-1+length > modbus.MaxADULength {
		return nil, fmt.Errorf("invalid MBAP length %d", length)
	}

	// Read remaining bytes (UnitID + PDU)
	payload := make([]byte, length)
	if _, err := io.ReadFull(conn, payload); err != nil {
		return nil, err
	}

	// Combine prefix and payload
	reply := make([]byte, modbus.HeaderLength-1+length)
	copy(reply, prefix)
	copy(reply[modbus.HeaderLength-1:], payload)

	slog.Debug("recv from modbus tcp server", "reply", hex.EncodeToString(reply))
	return reply, nil
}

// Connect checks that the configured address resolves.
func (mb *Client) Connect(ctx context.Context) error {
	_, err := net.ResolveTCPAddr("tcp", mb.Address)
	return err
}

// Close implements the Requester interface.
func (mb *Client) Close() error {
	return nil
}
