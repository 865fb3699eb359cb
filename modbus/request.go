// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"encoding/binary"
	"fmt"
)

// Request is one decoded Modbus request. Encode is the client-side wire
// serializer, Decode the server-side parser, Execute the server-side
// validator that yields the matching response object. ResponseSize is the
// exact frame size of a successful reply, so a client can reject truncated
// or extended frames before parsing.
type Request interface {
	Encode() ([]byte, error)
	Decode(raw []byte) error
	Execute(t *DataTable) (Response, error)
	ResponseSize() int
}

// funnelDecode converts a body parse failure into the wire-encodable
// server-device-failure exception carrying the request context.
func funnelDecode(err error, fn FunctionCode, h Header) error {
	if err == nil {
		return nil
	}
	if ex, ok := AsException(err); ok {
		return ex
	}
	return NewException(ExcServerDeviceFailure, fn, h)
}

func bodySizeErr(fn FunctionCode, got, want int) error {
	return fmt.Errorf("%s body is %d bytes, want %d: %w", fn, got, want, ErrBadData)
}

// encodeAddrCount frames the common addr(2), count(2) request body.
func encodeAddrCount(h *Header, fn FunctionCode, addr Address, count uint16) ([]byte, error) {
	raw, err := encodeADU(h, fn, 4)
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint16(raw[8:10], uint16(addr))
	binary.BigEndian.PutUint16(raw[10:12], count)
	return raw, nil
}

// decodeAddrCount parses the common addr(2), count(2) request body.
func decodeAddrCount(raw []byte, fn FunctionCode) (Header, Address, uint16, error) {
	h, body, err := decodeADU(raw, fn)
	if err != nil {
		return Header{}, 0, 0, err
	}
	if len(body) != 4 {
		return Header{}, 0, 0, funnelDecode(bodySizeErr(fn, len(body), 4), fn, h)
	}
	addr := Address(binary.BigEndian.Uint16(body[0:2]))
	count := binary.BigEndian.Uint16(body[2:4])
	return h, addr, count, nil
}

// ReadCoilsRequest is function 0x01.
type ReadCoilsRequest struct {
	Header  Header
	Address Address
	Count   ReadBitCount
}

func (r *ReadCoilsRequest) Encode() ([]byte, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadData)
	}
	return encodeAddrCount(&r.Header, FuncReadCoils, r.Address, uint16(r.Count))
}

func (r *ReadCoilsRequest) Decode(raw []byte) error {
	h, addr, count, err := decodeAddrCount(raw, FuncReadCoils)
	if err != nil {
		return err
	}
	r.Header, r.Address, r.Count = h, addr, ReadBitCount(count)
	return nil
}

func (r *ReadCoilsRequest) Execute(t *DataTable) (Response, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, NewException(ExcIllegalDataValue, FuncReadCoils, r.Header)
	}
	if !t.Coils.ValidateRange(r.Address, int(r.Count)) {
		return nil, NewException(ExcIllegalDataAddress, FuncReadCoils, r.Header)
	}
	return &ReadCoilsResponse{Request: r, table: t}, nil
}

func (r *ReadCoilsRequest) ResponseSize() int {
	return HeaderLength + 2 + (int(r.Count)+7)/8
}

// ReadDiscreteInputsRequest is function 0x02.
type ReadDiscreteInputsRequest struct {
	Header  Header
	Address Address
	Count   ReadBitCount
}

func (r *ReadDiscreteInputsRequest) Encode() ([]byte, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadData)
	}
	return encodeAddrCount(&r.Header, FuncReadDiscreteInputs, r.Address, uint16(r.Count))
}

func (r *ReadDiscreteInputsRequest) Decode(raw []byte) error {
	h, addr, count, err := decodeAddrCount(raw, FuncReadDiscreteInputs)
	if err != nil {
		return err
	}
	r.Header, r.Address, r.Count = h, addr, ReadBitCount(count)
	return nil
}

func (r *ReadDiscreteInputsRequest) Execute(t *DataTable) (Response, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, NewException(ExcIllegalDataValue, FuncReadDiscreteInputs, r.Header)
	}
	if !t.DiscreteInputs.ValidateRange(r.Address, int(r.Count)) {
		return nil, NewException(ExcIllegalDataAddress, FuncReadDiscreteInputs, r.Header)
	}
	return &ReadDiscreteInputsResponse{Request: r, table: t}, nil
}

func (r *ReadDiscreteInputsRequest) ResponseSize() int {
	return HeaderLength + 2 + (int(r.Count)+7)/8
}

// ReadHoldingRegistersRequest is function 0x03.
type ReadHoldingRegistersRequest struct {
	Header  Header
	Address Address
	Count   ReadRegCount
}

func (r *ReadHoldingRegistersRequest) Encode() ([]byte, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadData)
	}
	return encodeAddrCount(&r.Header, FuncReadHoldingRegisters, r.Address, uint16(r.Count))
}

func (r *ReadHoldingRegistersRequest) Decode(raw []byte) error {
	h, addr, count, err := decodeAddrCount(raw, FuncReadHoldingRegisters)
	if err != nil {
		return err
	}
	r.Header, r.Address, r.Count = h, addr, ReadRegCount(count)
	return nil
}

func (r *ReadHoldingRegistersRequest) Execute(t *DataTable) (Response, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, NewException(ExcIllegalDataValue, FuncReadHoldingRegisters, r.Header)
	}
	if !t.HoldingRegisters.ValidateRange(r.Address, int(r.Count)) {
		return nil, NewException(ExcIllegalDataAddress, FuncReadHoldingRegisters, r.Header)
	}
	return &ReadHoldingRegistersResponse{Request: r, table: t}, nil
}

func (r *ReadHoldingRegistersRequest) ResponseSize() int {
	return HeaderLength + 2 + int(r.Count)*2
}

// ReadInputRegistersRequest is function 0x04.
type ReadInputRegistersRequest struct {
	Header  Header
	Address Address
	Count   ReadRegCount
}

func (r *ReadInputRegistersRequest) Encode() ([]byte, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadData)
	}
	return encodeAddrCount(&r.Header, FuncReadInputRegisters, r.Address, uint16(r.Count))
}

func (r *ReadInputRegistersRequest) Decode(raw []byte) error {
	h, addr, count, err := decodeAddrCount(raw, FuncReadInputRegisters)
	if err != nil {
		return err
	}
	r.Header, r.Address, r.Count = h, addr, ReadRegCount(count)
	return nil
}

func (r *ReadInputRegistersRequest) Execute(t *DataTable) (Response, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, NewException(ExcIllegalDataValue, FuncReadInputRegisters, r.Header)
	}
	if !t.InputRegisters.ValidateRange(r.Address, int(r.Count)) {
		return nil, NewException(ExcIllegalDataAddress, FuncReadInputRegisters, r.Header)
	}
	return &ReadInputRegistersResponse{Request: r, table: t}, nil
}

func (r *ReadInputRegistersRequest) ResponseSize() int {
	return HeaderLength + 2 + int(r.Count)*2
}

// WriteSingleCoilRequest is function 0x05.
type WriteSingleCoilRequest struct {
	Header  Header
	Address Address
	Value   CoilValue
}

func (r *WriteSingleCoilRequest) Encode() ([]byte, error) {
	if err := r.Value.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadData)
	}
	return encodeAddrCount(&r.Header, FuncWriteSingleCoil, r.Address, uint16(r.Value))
}

func (r *WriteSingleCoilRequest) Decode(raw []byte) error {
	h, addr, value, err := decodeAddrCount(raw, FuncWriteSingleCoil)
	if err != nil {
		return err
	}
	r.Header, r.Address, r.Value = h, addr, CoilValue(value)
	return nil
}

func (r *WriteSingleCoilRequest) Execute(t *DataTable) (Response, error) {
	if err := r.Value.Validate(); err != nil {
		return nil, NewException(ExcIllegalDataValue, FuncWriteSingleCoil, r.Header)
	}
	if !t.Coils.Validate(r.Address) {
		return nil, NewException(ExcIllegalDataAddress, FuncWriteSingleCoil, r.Header)
	}
	return &WriteSingleCoilResponse{Request: r, table: t}, nil
}

func (r *WriteSingleCoilRequest) ResponseSize() int {
	return HeaderLength + 1 + 4
}

// WriteSingleRegisterRequest is function 0x06.
type WriteSingleRegisterRequest struct {
	Header  Header
	Address Address
	Value   RegValue
}

func (r *WriteSingleRegisterRequest) Encode() ([]byte, error) {
	return encodeAddrCount(&r.Header, FuncWriteSingleRegister, r.Address, uint16(r.Value))
}

func (r *WriteSingleRegisterRequest) Decode(raw []byte) error {
	h, addr, value, err := decodeAddrCount(raw, FuncWriteSingleRegister)
	if err != nil {
		return err
	}
	r.Header, r.Address, r.Value = h, addr, RegValue(value)
	return nil
}

func (r *WriteSingleRegisterRequest) Execute(t *DataTable) (Response, error) {
	if !t.HoldingRegisters.Validate(r.Address) {
		return nil, NewException(ExcIllegalDataAddress, FuncWriteSingleRegister, r.Header)
	}
	return &WriteSingleRegisterResponse{Request: r, table: t}, nil
}

func (r *WriteSingleRegisterRequest) ResponseSize() int {
	return HeaderLength + 1 + 4
}

// WriteMultipleCoilsRequest is function 0x0F.
type WriteMultipleCoilsRequest struct {
	Header  Header
	Address Address
	Count   WriteBitCount
	Values  []bool
}

func (r *WriteMultipleCoilsRequest) Encode() ([]byte, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadData)
	}
	if len(r.Values) != int(r.Count) {
		return nil, fmt.Errorf("%d coil values for count %d: %w", len(r.Values), r.Count, ErrBadData)
	}
	packed := PackBits(r.Values)
	raw, err := encodeADU(&r.Header, FuncWriteMultipleCoils, 5+len(packed))
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint16(raw[8:10], uint16(r.Address))
	binary.BigEndian.PutUint16(raw[10:12], uint16(r.Count))
	raw[12] = byte(len(packed))
	copy(raw[13:], packed)
	return raw, nil
}

func (r *WriteMultipleCoilsRequest) Decode(raw []byte) error {
	h, body, err := decodeADU(raw, FuncWriteMultipleCoils)
	if err != nil {
		return err
	}
	if len(body) < 5 {
		return funnelDecode(bodySizeErr(FuncWriteMultipleCoils, len(body), 5), FuncWriteMultipleCoils, h)
	}
	addr := Address(binary.BigEndian.Uint16(body[0:2]))
	count := binary.BigEndian.Uint16(body[2:4])
	byteCount := int(body[4])
	if byteCount != (int(count)+7)/8 || len(body)-5 != byteCount {
		return funnelDecode(fmt.Errorf("byte count %d for %d coils: %w", byteCount, count, ErrBadData),
			FuncWriteMultipleCoils, h)
	}
	r.Header, r.Address, r.Count = h, addr, WriteBitCount(count)
	r.Values = UnpackBits(body[5:])[:count]
	return nil
}

func (r *WriteMultipleCoilsRequest) Execute(t *DataTable) (Response, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, NewException(ExcIllegalDataValue, FuncWriteMultipleCoils, r.Header)
	}
	if !t.Coils.ValidateRange(r.Address, int(r.Count)) {
		return nil, NewException(ExcIllegalDataAddress, FuncWriteMultipleCoils, r.Header)
	}
	return &WriteMultipleCoilsResponse{Request: r, table: t}, nil
}

func (r *WriteMultipleCoilsRequest) ResponseSize() int {
	return HeaderLength + 1 + 4
}

// WriteMultipleRegistersRequest is function 0x10.
type WriteMultipleRegistersRequest struct {
	Header  Header
	Address Address
	Count   WriteRegCount
	Values  []RegValue
}

func (r *WriteMultipleRegistersRequest) Encode() ([]byte, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadData)
	}
	if len(r.Values) != int(r.Count) {
		return nil, fmt.Errorf("%d register values for count %d: %w", len(r.Values), r.Count, ErrBadData)
	}
	raw, err := encodeADU(&r.Header, FuncWriteMultipleRegisters, 5+len(r.Values)*2)
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint16(raw[8:10], uint16(r.Address))
	binary.BigEndian.PutUint16(raw[10:12], uint16(r.Count))
	raw[12] = byte(len(r.Values) * 2)
	for i, v := range r.Values {
		binary.BigEndian.PutUint16(raw[13+i*2:], uint16(v))
	}
	return raw, nil
}

func (r *WriteMultipleRegistersRequest) Decode(raw []byte) error {
	h, body, err := decodeADU(raw, FuncWriteMultipleRegisters)
	if err != nil {
		return err
	}
	if len(body) < 5 {
		return funnelDecode(bodySizeErr(FuncWriteMultipleRegisters, len(body), 5), FuncWriteMultipleRegisters, h)
	}
	addr := Address(binary.BigEndian.Uint16(body[0:2]))
	count := binary.BigEndian.Uint16(body[2:4])
	byteCount := int(body[4])
	if byteCount != int(count)*2 || len(body)-5 != byteCount {
		return funnelDecode(fmt.Errorf("byte count %d for %d registers: %w", byteCount, count, ErrBadData),
			FuncWriteMultipleRegisters, h)
	}
	values := make([]RegValue, count)
	for i := range values {
		values[i] = RegValue(binary.BigEndian.Uint16(body[5+i*2:]))
	}
	r.Header, r.Address, r.Count, r.Values = h, addr, WriteRegCount(count), values
	return nil
}

func (r *WriteMultipleRegistersRequest) Execute(t *DataTable) (Response, error) {
	if err := r.Count.Validate(); err != nil {
		return nil, NewException(ExcIllegalDataValue, FuncWriteMultipleRegisters, r.Header)
	}
	if !t.HoldingRegisters.ValidateRange(r.Address, int(r.Count)) {
		return nil, NewException(ExcIllegalDataAddress, FuncWriteMultipleRegisters, r.Header)
	}
	return &WriteMultipleRegistersResponse{Request: r, table: t}, nil
}

func (r *WriteMultipleRegistersRequest) ResponseSize() int {
	return HeaderLength + 1 + 4
}

// MaskWriteRegisterRequest is function 0x16.
type MaskWriteRegisterRequest struct {
	Header  Header
	Address Address
	AndMask Mask
	OrMask  Mask
}

func (r *MaskWriteRegisterRequest) Encode() ([]byte, error) {
	raw, err := encodeADU(&r.Header, FuncMaskWriteRegister, 6)
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint16(raw[8:10], uint16(r.Address))
	binary.BigEndian.PutUint16(raw[10:12], uint16(r.AndMask))
	binary.BigEndian.PutUint16(raw[12:14], uint16(r.OrMask))
	return raw, nil
}

func (r *MaskWriteRegisterRequest) Decode(raw []byte) error {
	h, body, err := decodeADU(raw, FuncMaskWriteRegister)
	if err != nil {
		return err
	}
	if len(body) != 6 {
		return funnelDecode(bodySizeErr(FuncMaskWriteRegister, len(body), 6), FuncMaskWriteRegister, h)
	}
	r.Header = h
	r.Address = Address(binary.BigEndian.Uint16(body[0:2]))
	r.AndMask = Mask(binary.BigEndian.Uint16(body[2:4]))
	r.OrMask = Mask(binary.BigEndian.Uint16(body[4:6]))
	return nil
}

func (r *MaskWriteRegisterRequest) Execute(t *DataTable) (Response, error) {
	if !t.HoldingRegisters.Validate(r.Address) {
		return nil, NewException(ExcIllegalDataAddress, FuncMaskWriteRegister, r.Header)
	}
	return &MaskWriteRegisterResponse{Request: r, table: t}, nil
}

func (r *MaskWriteRegisterRequest) ResponseSize() int {
	return HeaderLength + 1 + 6
}

// ReadWriteMultipleRegistersRequest is function 0x17. The write phase runs
// before the read phase; the two phases are separately atomic.
type ReadWriteMultipleRegistersRequest struct {
	Header       Header
	ReadAddress  Address
	ReadCount    ReadRegCount
	WriteAddress Address
	WriteCount   WriteRegCount
	WriteValues  []RegValue
}

func (r *ReadWriteMultipleRegistersRequest) Encode() ([]byte, error) {
	if err := r.ReadCount.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadData)
	}
	if err := r.WriteCount.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadData)
	}
	if len(r.WriteValues) != int(r.WriteCount) {
		return nil, fmt.Errorf("%d register values for count %d: %w", len(r.WriteValues), r.WriteCount, ErrBadData)
	}
	raw, err := encodeADU(&r.Header, FuncReadWriteMultipleRegisters, 9+len(r.WriteValues)*2)
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint16(raw[8:10], uint16(r.ReadAddress))
	binary.BigEndian.PutUint16(raw[10:12], uint16(r.ReadCount))
	binary.BigEndian.PutUint16(raw[12:14], uint16(r.WriteAddress))
	binary.BigEndian.PutUint16(raw[14:16], uint16(r.WriteCount))
	raw[16] = byte(len(r.WriteValues) * 2)
	for i, v := range r.WriteValues {
		binary.BigEndian.PutUint16(raw[17+i*2:], uint16(v))
	}
	return raw, nil
}

func (r *ReadWriteMultipleRegistersRequest) Decode(raw []byte) error {
	h, body, err := decodeADU(raw, FuncReadWriteMultipleRegisters)
	if err != nil {
		return err
	}
	if len(body) < 9 {
		return funnelDecode(bodySizeErr(FuncReadWriteMultipleRegisters, len(body), 9), FuncReadWriteMultipleRegisters, h)
	}
	readAddr := Address(binary.BigEndian.Uint16(body[0:2]))
	readCount := binary.BigEndian.Uint16(body[2:4])
	writeAddr := Address(binary.BigEndian.Uint16(body[4:6]))
	writeCount := binary.BigEndian.Uint16(body[6:8])
	byteCount := int(body[8])
	if byteCount != int(writeCount)*2 || len(body)-9 != byteCount {
		return funnelDecode(fmt.Errorf("byte count %d for %d registers: %w", byteCount, writeCount, ErrBadData),
			FuncReadWriteMultipleRegisters, h)
	}
	values := make([]RegValue, writeCount)
	for i := range values {
		values[i] = RegValue(binary.BigEndian.Uint16(body[9+i*2:]))
	}
	r.Header = h
	r.ReadAddress, r.ReadCount = readAddr, ReadRegCount(readCount)
	r.WriteAddress, r.WriteCount = writeAddr, WriteRegCount(writeCount)
	r.WriteValues = values
	return nil
}

func (r *ReadWriteMultipleRegistersRequest) Execute(t *DataTable) (Response, error) {
	if r.ReadCount.Validate() != nil || r.WriteCount.Validate() != nil {
		return nil, NewException(ExcIllegalDataValue, FuncReadWriteMultipleRegisters, r.Header)
	}
	if !t.HoldingRegisters.ValidateRange(r.ReadAddress, int(r.ReadCount)) ||
		!t.HoldingRegisters.ValidateRange(r.WriteAddress, int(r.WriteCount)) {
		return nil, NewException(ExcIllegalDataAddress, FuncReadWriteMultipleRegisters, r.Header)
	}
	return &ReadWriteMultipleRegistersResponse{Request: r, table: t}, nil
}

func (r *ReadWriteMultipleRegistersRequest) ResponseSize() int {
	return HeaderLength + 2 + int(r.ReadCount)*2
}

// IllegalRequest stands in for any function byte without a codec. Decoding
// it always raises the illegal-function exception with the frame's header.
type IllegalRequest struct {
	Header   Header
	Function FunctionCode
}

func (r *IllegalRequest) Encode() ([]byte, error) {
	return nil, fmt.Errorf("cannot encode %s: %w", r.Function, ErrBadData)
}

func (r *IllegalRequest) Decode(raw []byte) error {
	h, err := decodeHeader(raw)
	if err != nil {
		return err
	}
	r.Header = h
	r.Function = FunctionCode(raw[HeaderLength])
	return NewException(ExcIllegalFunction, r.Function, h)
}

func (r *IllegalRequest) Execute(t *DataTable) (Response, error) {
	return nil, NewException(ExcIllegalFunction, r.Function, r.Header)
}

func (r *IllegalRequest) ResponseSize() int {
	return HeaderLength + 2
}
