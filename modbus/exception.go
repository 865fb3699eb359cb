// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"errors"
	"fmt"
)

// ExceptionCode is a Modbus exception as defined by the specification.
// These are the only error kinds that ever appear on the wire.
type ExceptionCode byte

const (
	ExcIllegalFunction                    ExceptionCode = 0x01
	ExcIllegalDataAddress                 ExceptionCode = 0x02
	ExcIllegalDataValue                   ExceptionCode = 0x03
	ExcServerDeviceFailure                ExceptionCode = 0x04
	ExcAcknowledge                        ExceptionCode = 0x05
	ExcServerDeviceBusy                   ExceptionCode = 0x06
	ExcNegativeAcknowledge                ExceptionCode = 0x07
	ExcMemoryParityError                  ExceptionCode = 0x08
	ExcGatewayPathUnavailable             ExceptionCode = 0x0A
	ExcGatewayTargetDeviceFailedToRespond ExceptionCode = 0x0B
)

func (e ExceptionCode) String() string {
	switch e {
	case ExcIllegalFunction:
		return "illegal function"
	case ExcIllegalDataAddress:
		return "illegal data address"
	case ExcIllegalDataValue:
		return "illegal data value"
	case ExcServerDeviceFailure:
		return "server device failure"
	case ExcAcknowledge:
		return "acknowledge"
	case ExcServerDeviceBusy:
		return "server device busy"
	case ExcNegativeAcknowledge:
		return "negative acknowledge"
	case ExcMemoryParityError:
		return "memory parity error"
	case ExcGatewayPathUnavailable:
		return "gateway path unavailable"
	case ExcGatewayTargetDeviceFailedToRespond:
		return "gateway target device failed to respond"
	}
	return "unknown exception"
}

// Known reports whether e is one of the wire-encodable exception codes.
func (e ExceptionCode) Known() bool {
	switch e {
	case ExcIllegalFunction, ExcIllegalDataAddress, ExcIllegalDataValue,
		ExcServerDeviceFailure, ExcAcknowledge, ExcServerDeviceBusy,
		ExcNegativeAcknowledge, ExcMemoryParityError,
		ExcGatewayPathUnavailable, ExcGatewayTargetDeviceFailedToRespond:
		return true
	}
	return false
}

// Exception is a protocol error the server reports to the client as an
// error ADU. It carries the originating function and header so the error
// frame echoes the right transaction and unit.
type Exception struct {
	Function FunctionCode
	Code     ExceptionCode
	Header   Header
}

func (e *Exception) Error() string {
	return fmt.Sprintf("modbus exception: %s on %s (transaction %#04x, unit %#02x)",
		e.Code, e.Function, e.Header.Transaction, e.Header.Unit)
}

// NewException builds a wire-encodable exception for the given request context.
func NewException(code ExceptionCode, fn FunctionCode, h Header) *Exception {
	return &Exception{Function: fn, Code: code, Header: h}
}

// AsException unwraps err to an *Exception if one is in its chain.
func AsException(err error) (*Exception, bool) {
	var ex *Exception
	ok := errors.As(err, &ex)
	return ex, ok
}

// Internal errors. These never serialize to the wire: they mark protocol
// layer failures (bad frames, mismatched replies) or invariant violations.
var (
	ErrBadData           = errors.New("modbus: bad data")
	ErrBadDataSize       = errors.New("modbus: bad data size")
	ErrConnectionProblem = errors.New("modbus: connection problem")
	ErrBadException      = errors.New("modbus: bad exception")
	ErrNoException       = errors.New("modbus: no exception")
	ErrOutOfRange        = errors.New("modbus: out of range")
)
