// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"encoding/binary"
	"fmt"
)

// Response is one Modbus reply. On the server, Encode performs the data
// table operation and serializes the success frame. On the client, Decode
// classifies an inbound frame against the paired request and either yields
// the payload, raises the server's exception, or reports a bad frame.
type Response interface {
	Encode() ([]byte, error)
	Decode(raw []byte) error
}

// classify is the client-side stage check shared by every response decoder.
// It validates the frame against the paired request header and splits the
// three outcomes: matching function (returns the body), exception function
// (returns the decoded *Exception as error), anything else (bad data).
func classify(req Header, fn FunctionCode, raw []byte) ([]byte, error) {
	if len(raw) <= HeaderLength {
		return nil, fmt.Errorf("reply of %d bytes has no PDU: %w", len(raw), ErrBadDataSize)
	}
	h, err := decodeHeader(raw)
	if err != nil {
		return nil, err
	}
	if !h.Same(req) {
		return nil, fmt.Errorf("reply transaction %#04x unit %#02x does not pair with request %#04x %#02x: %w",
			h.Transaction, h.Unit, req.Transaction, req.Unit, ErrBadData)
	}
	if h.Protocol != TCPProtocol {
		return nil, fmt.Errorf("reply protocol %#04x: %w", h.Protocol, ErrBadData)
	}
	if int(h.Length) != len(raw)-(HeaderLength-1) {
		return nil, fmt.Errorf("reply length %d does not cover %d trailing bytes: %w",
			h.Length, len(raw)-(HeaderLength-1), ErrBadData)
	}
	switch raw[HeaderLength] {
	case byte(fn):
		return raw[HeaderLength+1:], nil
	case byte(fn) | ExceptionFlag:
		if len(raw) < HeaderLength+2 {
			return nil, fmt.Errorf("exception reply of %d bytes: %w", len(raw), ErrBadDataSize)
		}
		code := ExceptionCode(raw[HeaderLength+1])
		if !code.Known() {
			return nil, fmt.Errorf("exception code %#02x: %w", byte(code), ErrBadException)
		}
		return nil, NewException(code, fn, h)
	}
	return nil, fmt.Errorf("reply function byte %#02x for request %s: %w",
		raw[HeaderLength], fn, ErrBadData)
}

// echoErr flags a reply whose echoed field disagrees with the request.
func echoErr(fn FunctionCode, field string) error {
	return fmt.Errorf("%s reply echoes a different %s: %w", fn, field, ErrBadData)
}

// ReadCoilsResponse answers function 0x01 with the packed coil states.
type ReadCoilsResponse struct {
	Request *ReadCoilsRequest
	Bits    []bool

	table *DataTable
}

// NewReadCoilsResponse pairs an empty response with its request for
// client-side decoding.
func NewReadCoilsResponse(req *ReadCoilsRequest) *ReadCoilsResponse {
	return &ReadCoilsResponse{Request: req}
}

func (r *ReadCoilsResponse) Encode() ([]byte, error) {
	bits, err := r.table.Coils.GetRange(r.Request.Address, int(r.Request.Count))
	if err != nil {
		return nil, err
	}
	r.Bits = bits
	packed := PackBits(bits)
	h := r.Request.Header
	raw, err := encodeADU(&h, FuncReadCoils, 1+len(packed))
	if err != nil {
		return nil, err
	}
	raw[8] = byte(len(packed))
	copy(raw[9:], packed)
	return raw, nil
}

func (r *ReadCoilsResponse) Decode(raw []byte) error {
	body, err := classify(r.Request.Header, FuncReadCoils, raw)
	if err != nil {
		return err
	}
	byteCount := (int(r.Request.Count) + 7) / 8
	if len(body) == 0 {
		return fmt.Errorf("read coils reply has no byte count: %w", ErrBadData)
	}
	if len(body) != 1+byteCount || int(body[0]) != byteCount {
		return fmt.Errorf("read coils reply byte count %d, want %d: %w", body[0], byteCount, ErrBadData)
	}
	r.Bits = UnpackBits(body[1:])[:r.Request.Count]
	return nil
}

// ReadDiscreteInputsResponse answers function 0x02.
type ReadDiscreteInputsResponse struct {
	Request *ReadDiscreteInputsRequest
	Bits    []bool

	table *DataTable
}

func NewReadDiscreteInputsResponse(req *ReadDiscreteInputsRequest) *ReadDiscreteInputsResponse {
	return &ReadDiscreteInputsResponse{Request: req}
}

func (r *ReadDiscreteInputsResponse) Encode() ([]byte, error) {
	bits, err := r.table.DiscreteInputs.GetRange(r.Request.Address, int(r.Request.Count))
	if err != nil {
		return nil, err
	}
	r.Bits = bits
	packed := PackBits(bits)
	h := r.Request.Header
	raw, err := encodeADU(&h, FuncReadDiscreteInputs, 1+len(packed))
	if err != nil {
		return nil, err
	}
	raw[8] = byte(len(packed))
	copy(raw[9:], packed)
	return raw, nil
}

func (r *ReadDiscreteInputsResponse) Decode(raw []byte) error {
	body, err := classify(r.Request.Header, FuncReadDiscreteInputs, raw)
	if err != nil {
		return err
	}
	byteCount := (int(r.Request.Count) + 7) / 8
	if len(body) == 0 {
		return fmt.Errorf("read discrete inputs reply has no byte count: %w", ErrBadData)
	}
	if len(body) != 1+byteCount || int(body[0]) != byteCount {
		return fmt.Errorf("read discrete inputs reply byte count %d, want %d: %w", body[0], byteCount, ErrBadData)
	}
	r.Bits = UnpackBits(body[1:])[:r.Request.Count]
	return nil
}

// putRegisters frames the common bytecount(1) | regs(count*2) reply body.
func putRegisters(h Header, fn FunctionCode, values []RegValue) ([]byte, error) {
	raw, err := encodeADU(&h, fn, 1+len(values)*2)
	if err != nil {
		return nil, err
	}
	raw[8] = byte(len(values) * 2)
	for i, v := range values {
		binary.BigEndian.PutUint16(raw[9+i*2:], uint16(v))
	}
	return raw, nil
}

// parseRegisters parses the common bytecount(1) | regs(count*2) reply body.
func parseRegisters(fn FunctionCode, body []byte, count int) ([]RegValue, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%s reply has no byte count: %w", fn, ErrBadData)
	}
	if len(body) != 1+count*2 || int(body[0]) != count*2 {
		return nil, fmt.Errorf("%s reply byte count %d, want %d: %w", fn, body[0], count*2, ErrBadData)
	}
	values := make([]RegValue, count)
	for i := range values {
		values[i] = RegValue(binary.BigEndian.Uint16(body[1+i*2:]))
	}
	return values, nil
}

// ReadHoldingRegistersResponse answers function 0x03.
type ReadHoldingRegistersResponse struct {
	Request *ReadHoldingRegistersRequest
	Values  []RegValue

	table *DataTable
}

func NewReadHoldingRegistersResponse(req *ReadHoldingRegistersRequest) *ReadHoldingRegistersResponse {
	return &ReadHoldingRegistersResponse{Request: req}
}

func (r *ReadHoldingRegistersResponse) Encode() ([]byte, error) {
	values, err := r.table.HoldingRegisters.GetRange(r.Request.Address, int(r.Request.Count))
	if err != nil {
		return nil, err
	}
	r.Values = values
	return putRegisters(r.Request.Header, FuncReadHoldingRegisters, values)
}

func (r *ReadHoldingRegistersResponse) Decode(raw []byte) error {
	body, err := classify(r.Request.Header, FuncReadHoldingRegisters, raw)
	if err != nil {
		return err
	}
	values, err := parseRegisters(FuncReadHoldingRegisters, body, int(r.Request.Count))
	if err != nil {
		return err
	}
	r.Values = values
	return nil
}

// ReadInputRegistersResponse answers function 0x04.
type ReadInputRegistersResponse struct {
	Request *ReadInputRegistersRequest
	Values  []RegValue

	table *DataTable
}

func NewReadInputRegistersResponse(req *ReadInputRegistersRequest) *ReadInputRegistersResponse {
	return &ReadInputRegistersResponse{Request: req}
}

func (r *ReadInputRegistersResponse) Encode() ([]byte, error) {
	values, err := r.table.InputRegisters.GetRange(r.Request.Address, int(r.Request.Count))
	if err != nil {
		return nil, err
	}
	r.Values = values
	return putRegisters(r.Request.Header, FuncReadInputRegisters, values)
}

func (r *ReadInputRegistersResponse) Decode(raw []byte) error {
	body, err := classify(r.Request.Header, FuncReadInputRegisters, raw)
	if err != nil {
		return err
	}
	values, err := parseRegisters(FuncReadInputRegisters, body, int(r.Request.Count))
	if err != nil {
		return err
	}
	r.Values = values
	return nil
}

// WriteSingleCoilResponse answers function 0x05, echoing the post-write
// coil state. The write and the echo are atomic with respect to other
// requests on the coil block.
type WriteSingleCoilResponse struct {
	Request *WriteSingleCoilRequest
	Value   CoilValue

	table *DataTable
}

func NewWriteSingleCoilResponse(req *WriteSingleCoilRequest) *WriteSingleCoilResponse {
	return &WriteSingleCoilResponse{Request: req}
}

func (r *WriteSingleCoilResponse) Encode() ([]byte, error) {
	if err := r.table.Coils.Set(r.Request.Address, r.Request.Value.Bool()); err != nil {
		return nil, err
	}
	r.Value = r.Request.Value
	h := r.Request.Header
	return encodeAddrCount(&h, FuncWriteSingleCoil, r.Request.Address, uint16(r.Value))
}

func (r *WriteSingleCoilResponse) Decode(raw []byte) error {
	body, err := classify(r.Request.Header, FuncWriteSingleCoil, raw)
	if err != nil {
		return err
	}
	if len(body) != 4 {
		return bodySizeErr(FuncWriteSingleCoil, len(body), 4)
	}
	if Address(binary.BigEndian.Uint16(body[0:2])) != r.Request.Address {
		return echoErr(FuncWriteSingleCoil, "address")
	}
	value := CoilValue(binary.BigEndian.Uint16(body[2:4]))
	if value != r.Request.Value {
		return echoErr(FuncWriteSingleCoil, "coil value")
	}
	r.Value = value
	return nil
}

// WriteSingleRegisterResponse answers function 0x06.
type WriteSingleRegisterResponse struct {
	Request *WriteSingleRegisterRequest
	Value   RegValue

	table *DataTable
}

func NewWriteSingleRegisterResponse(req *WriteSingleRegisterRequest) *WriteSingleRegisterResponse {
	return &WriteSingleRegisterResponse{Request: req}
}

func (r *WriteSingleRegisterResponse) Encode() ([]byte, error) {
	if err := r.table.HoldingRegisters.Set(r.Request.Address, r.Request.Value); err != nil {
		return nil, err
	}
	r.Value = r.Request.Value
	h := r.Request.Header
	return encodeAddrCount(&h, FuncWriteSingleRegister, r.Request.Address, uint16(r.Value))
}

func (r *WriteSingleRegisterResponse) Decode(raw []byte) error {
	body, err := classify(r.Request.Header, FuncWriteSingleRegister, raw)
	if err != nil {
		return err
	}
	if len(body) != 4 {
		return bodySizeErr(FuncWriteSingleRegister, len(body), 4)
	}
	if Address(binary.BigEndian.Uint16(body[0:2])) != r.Request.Address {
		return echoErr(FuncWriteSingleRegister, "address")
	}
	value := RegValue(binary.BigEndian.Uint16(body[2:4]))
	if value != r.Request.Value {
		return echoErr(FuncWriteSingleRegister, "register value")
	}
	r.Value = value
	return nil
}

// WriteMultipleCoilsResponse answers function 0x0F, echoing address and
// quantity.
type WriteMultipleCoilsResponse struct {
	Request *WriteMultipleCoilsRequest

	table *DataTable
}

func NewWriteMultipleCoilsResponse(req *WriteMultipleCoilsRequest) *WriteMultipleCoilsResponse {
	return &WriteMultipleCoilsResponse{Request: req}
}

func (r *WriteMultipleCoilsResponse) Encode() ([]byte, error) {
	if err := r.table.Coils.SetRange(r.Request.Address, r.Request.Values); err != nil {
		return nil, err
	}
	h := r.Request.Header
	return encodeAddrCount(&h, FuncWriteMultipleCoils, r.Request.Address, uint16(r.Request.Count))
}

func (r *WriteMultipleCoilsResponse) Decode(raw []byte) error {
	body, err := classify(r.Request.Header, FuncWriteMultipleCoils, raw)
	if err != nil {
		return err
	}
	if len(body) != 4 {
		return bodySizeErr(FuncWriteMultipleCoils, len(body), 4)
	}
	if Address(binary.BigEndian.Uint16(body[0:2])) != r.Request.Address {
		return echoErr(FuncWriteMultipleCoils, "address")
	}
	if WriteBitCount(binary.BigEndian.Uint16(body[2:4])) != r.Request.Count {
		return echoErr(FuncWriteMultipleCoils, "quantity")
	}
	return nil
}

// WriteMultipleRegistersResponse answers function 0x10, echoing address
// and quantity.
type WriteMultipleRegistersResponse struct {
	Request *WriteMultipleRegistersRequest

	table *DataTable
}

func NewWriteMultipleRegistersResponse(req *WriteMultipleRegistersRequest) *WriteMultipleRegistersResponse {
	return &WriteMultipleRegistersResponse{Request: req}
}

func (r *WriteMultipleRegistersResponse) Encode() ([]byte, error) {
	if err := r.table.HoldingRegisters.SetRange(r.Request.Address, r.Request.Values); err != nil {
		return nil, err
	}
	h := r.Request.Header
	return encodeAddrCount(&h, FuncWriteMultipleRegisters, r.Request.Address, uint16(r.Request.Count))
}

func (r *WriteMultipleRegistersResponse) Decode(raw []byte) error {
	body, err := classify(r.Request.Header, FuncWriteMultipleRegisters, raw)
	if err != nil {
		return err
	}
	if len(body) != 4 {
		return bodySizeErr(FuncWriteMultipleRegisters, len(body), 4)
	}
	if Address(binary.BigEndian.Uint16(body[0:2])) != r.Request.Address {
		return echoErr(FuncWriteMultipleRegisters, "address")
	}
	if WriteRegCount(binary.BigEndian.Uint16(body[2:4])) != r.Request.Count {
		return echoErr(FuncWriteMultipleRegisters, "quantity")
	}
	return nil
}

// MaskWriteRegisterResponse answers function 0x16, echoing address and
// both masks. The read-modify-write runs under one exclusive lock.
type MaskWriteRegisterResponse struct {
	Request *MaskWriteRegisterRequest
	Result  RegValue

	table *DataTable
}

func NewMaskWriteRegisterResponse(req *MaskWriteRegisterRequest) *MaskWriteRegisterResponse {
	return &MaskWriteRegisterResponse{Request: req}
}

func (r *MaskWriteRegisterResponse) Encode() ([]byte, error) {
	result, err := r.table.HoldingRegisters.MaskWrite(r.Request.Address, r.Request.AndMask, r.Request.OrMask)
	if err != nil {
		return nil, err
	}
	r.Result = result
	h := r.Request.Header
	raw, err := encodeADU(&h, FuncMaskWriteRegister, 6)
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint16(raw[8:10], uint16(r.Request.Address))
	binary.BigEndian.PutUint16(raw[10:12], uint16(r.Request.AndMask))
	binary.BigEndian.PutUint16(raw[12:14], uint16(r.Request.OrMask))
	return raw, nil
}

func (r *MaskWriteRegisterResponse) Decode(raw []byte) error {
	body, err := classify(r.Request.Header, FuncMaskWriteRegister, raw)
	if err != nil {
		return err
	}
	if len(body) != 6 {
		return bodySizeErr(FuncMaskWriteRegister, len(body), 6)
	}
	if Address(binary.BigEndian.Uint16(body[0:2])) != r.Request.Address {
		return echoErr(FuncMaskWriteRegister, "address")
	}
	if Mask(binary.BigEndian.Uint16(body[2:4])) != r.Request.AndMask {
		return echoErr(FuncMaskWriteRegister, "and mask")
	}
	if Mask(binary.BigEndian.Uint16(body[4:6])) != r.Request.OrMask {
		return echoErr(FuncMaskWriteRegister, "or mask")
	}
	return nil
}

// ReadWriteMultipleRegistersResponse answers function 0x17 with the
// registers read after the write phase. The phases are separately atomic;
// other requests may interleave between them.
type ReadWriteMultipleRegistersResponse struct {
	Request *ReadWriteMultipleRegistersRequest
	Values  []RegValue

	table *DataTable
}

func NewReadWriteMultipleRegistersResponse(req *ReadWriteMultipleRegistersRequest) *ReadWriteMultipleRegistersResponse {
	return &ReadWriteMultipleRegistersResponse{Request: req}
}

func (r *ReadWriteMultipleRegistersResponse) Encode() ([]byte, error) {
	if err := r.table.HoldingRegisters.SetRange(r.Request.WriteAddress, r.Request.WriteValues); err != nil {
		return nil, err
	}
	values, err := r.table.HoldingRegisters.GetRange(r.Request.ReadAddress, int(r.Request.ReadCount))
	if err != nil {
		return nil, err
	}
	r.Values = values
	return putRegisters(r.Request.Header, FuncReadWriteMultipleRegisters, values)
}

func (r *ReadWriteMultipleRegistersResponse) Decode(raw []byte) error {
	body, err := classify(r.Request.Header, FuncReadWriteMultipleRegisters, raw)
	if err != nil {
		return err
	}
	values, err := parseRegisters(FuncReadWriteMultipleRegisters, body, int(r.Request.ReadCount))
	if err != nil {
		return err
	}
	r.Values = values
	return nil
}

// ExceptionResponse is the 9-byte error ADU the server emits for any
// Modbus exception.
type ExceptionResponse struct {
	Ex *Exception
}

func (r *ExceptionResponse) Encode() ([]byte, error) {
	h := r.Ex.Header
	raw, err := encodeADU(&h, FunctionCode(byte(r.Ex.Function)|ExceptionFlag), 1)
	if err != nil {
		return nil, err
	}
	raw[8] = byte(r.Ex.Code)
	return raw, nil
}

// Decode on an exception response re-raises the carried exception; clients
// reach exceptions through the per-function decoders instead.
func (r *ExceptionResponse) Decode(raw []byte) error {
	return r.Ex
}
