// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

// FunctionCode identifies a Modbus public function.
type FunctionCode byte

const (
	FuncReadCoils                      FunctionCode = 0x01
	FuncReadDiscreteInputs             FunctionCode = 0x02
	FuncReadHoldingRegisters           FunctionCode = 0x03
	FuncReadInputRegisters             FunctionCode = 0x04
	FuncWriteSingleCoil                FunctionCode = 0x05
	FuncWriteSingleRegister            FunctionCode = 0x06
	FuncReadExceptionStatus            FunctionCode = 0x07
	FuncDiagnostics                    FunctionCode = 0x08
	FuncWriteMultipleCoils             FunctionCode = 0x0F
	FuncWriteMultipleRegisters         FunctionCode = 0x10
	FuncReadFileRecord                 FunctionCode = 0x14
	FuncWriteFileRecord                FunctionCode = 0x15
	FuncMaskWriteRegister              FunctionCode = 0x16
	FuncReadWriteMultipleRegisters     FunctionCode = 0x17
	FuncReadFIFOQueue                  FunctionCode = 0x18
	FuncEncapsulatedInterfaceTransport FunctionCode = 0x2B
)

// ExceptionFlag is OR-ed into the function byte of an error response.
const ExceptionFlag = 0x80

const (
	// HeaderLength is the size of the MBAP header on the wire.
	HeaderLength = 7
	// MaxADULength is the largest Modbus TCP frame.
	MaxADULength = 260
	// MaxPDULength is the largest function byte + body.
	MaxPDULength = MaxADULength - HeaderLength

	// TCPProtocol is the fixed MBAP protocol identifier.
	TCPProtocol uint16 = 0x0000
)

const (
	MaxReadBits   = 0x07D0
	MaxWriteBits  = 0x07B0
	MaxReadRegs   = 0x007D
	MaxWriteRegs  = 0x007B
	MaxAddress    = 0xFFFF
	BlockCapacity = MaxAddress + 1
)

func (fc FunctionCode) String() string {
	switch fc {
	case FuncReadCoils:
		return "read coils"
	case FuncReadDiscreteInputs:
		return "read discrete inputs"
	case FuncReadHoldingRegisters:
		return "read holding registers"
	case FuncReadInputRegisters:
		return "read input registers"
	case FuncWriteSingleCoil:
		return "write single coil"
	case FuncWriteSingleRegister:
		return "write single register"
	case FuncReadExceptionStatus:
		return "read exception status"
	case FuncDiagnostics:
		return "diagnostics"
	case FuncWriteMultipleCoils:
		return "write multiple coils"
	case FuncWriteMultipleRegisters:
		return "write multiple registers"
	case FuncReadFileRecord:
		return "read file record"
	case FuncWriteFileRecord:
		return "write file record"
	case FuncMaskWriteRegister:
		return "mask write register"
	case FuncReadWriteMultipleRegisters:
		return "read/write multiple registers"
	case FuncReadFIFOQueue:
		return "read FIFO queue"
	case FuncEncapsulatedInterfaceTransport:
		return "encapsulated interface transport"
	}
	return "unknown function"
}

// Known reports whether fc is one of the declared public function codes.
func (fc FunctionCode) Known() bool {
	switch fc {
	case FuncReadCoils, FuncReadDiscreteInputs, FuncReadHoldingRegisters,
		FuncReadInputRegisters, FuncWriteSingleCoil, FuncWriteSingleRegister,
		FuncReadExceptionStatus, FuncDiagnostics, FuncWriteMultipleCoils,
		FuncWriteMultipleRegisters, FuncReadFileRecord, FuncWriteFileRecord,
		FuncMaskWriteRegister, FuncReadWriteMultipleRegisters,
		FuncReadFIFOQueue, FuncEncapsulatedInterfaceTransport:
		return true
	}
	return false
}
