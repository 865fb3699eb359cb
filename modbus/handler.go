// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"fmt"
	"log/slog"
)

// newRequest picks the request codec for a function byte. Function codes
// without a codec get the illegal stand-in, whose decode raises the
// illegal-function exception.
func newRequest(fn FunctionCode) Request {
	switch fn {
	case FuncReadCoils:
		return &ReadCoilsRequest{}
	case FuncReadDiscreteInputs:
		return &ReadDiscreteInputsRequest{}
	case FuncReadHoldingRegisters:
		return &ReadHoldingRegistersRequest{}
	case FuncReadInputRegisters:
		return &ReadInputRegistersRequest{}
	case FuncWriteSingleCoil:
		return &WriteSingleCoilRequest{}
	case FuncWriteSingleRegister:
		return &WriteSingleRegisterRequest{}
	case FuncWriteMultipleCoils:
		return &WriteMultipleCoilsRequest{}
	case FuncWriteMultipleRegisters:
		return &WriteMultipleRegistersRequest{}
	case FuncMaskWriteRegister:
		return &MaskWriteRegisterRequest{}
	case FuncReadWriteMultipleRegisters:
		return &ReadWriteMultipleRegistersRequest{}
	}
	return &IllegalRequest{}
}

// Handle turns one framed request into one framed reply against the given
// data table. Modbus exceptions come back as 9-byte error ADUs; internal
// errors are logged and answered with an empty reply, which the session
// layer treats as "no reply this round".
func Handle(table *DataTable, packet []byte) []byte {
	reply, err := handle(table, packet)
	if err == nil {
		return reply
	}
	if ex, ok := AsException(err); ok {
		raw, encErr := (&ExceptionResponse{Ex: ex}).Encode()
		if encErr != nil {
			slog.Error("dropping request: cannot encode exception", "err", encErr)
			return nil
		}
		return raw
	}
	slog.Error("dropping request", "err", err)
	return nil
}

func handle(table *DataTable, packet []byte) ([]byte, error) {
	fn, err := PeekFunction(packet)
	if err != nil {
		return nil, err
	}

	slog.Debug("handling request", "function", fn.String())

	req := newRequest(fn)
	if err := req.Decode(packet); err != nil {
		return nil, err
	}
	resp, err := req.Execute(table)
	if err != nil {
		return nil, err
	}
	raw, err := resp.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding %s response: %w", fn, err)
	}
	return raw, nil
}
