// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package modbus

import (
	"encoding/binary"
	"fmt"
)

// Header is the MBAP prefix of every Modbus TCP frame.
//
// Wire layout (big-endian):
//
//	transaction(2) | protocol(2) | length(2) | unit(1)
//
// Length counts the unit byte plus the PDU (function byte + body) and is
// recomputed by the encoders; callers never set it by hand.
type Header struct {
	Transaction uint16
	Protocol    uint16
	Length      uint16
	Unit        byte
}

// Same reports whether two headers identify the same exchange: equal
// transaction id, protocol, and unit.
func (h Header) Same(other Header) bool {
	return h.Transaction == other.Transaction &&
		h.Protocol == other.Protocol &&
		h.Unit == other.Unit
}

// encodeADU allocates a frame for the given body length and writes the
// MBAP header plus function byte. The body goes into the returned slice
// at [HeaderLength+1:].
func encodeADU(h *Header, fn FunctionCode, bodyLen int) ([]byte, error) {
	total := HeaderLength + 1 + bodyLen
	if total > MaxADULength {
		return nil, fmt.Errorf("frame of %d bytes exceeds %d: %w", total, MaxADULength, ErrBadDataSize)
	}
	h.Protocol = TCPProtocol
	h.Length = uint16(1 + 1 + bodyLen)

	raw := make([]byte, total)
	binary.BigEndian.PutUint16(raw[0:2], h.Transaction)
	binary.BigEndian.PutUint16(raw[2:4], h.Protocol)
	binary.BigEndian.PutUint16(raw[4:6], h.Length)
	raw[6] = h.Unit
	raw[7] = byte(fn)
	return raw, nil
}

// decodeHeader parses the MBAP header. It accepts any function byte;
// classifying the function is the dispatcher's job.
func decodeHeader(raw []byte) (Header, error) {
	if len(raw) <= HeaderLength {
		return Header{}, fmt.Errorf("frame of %d bytes has no PDU: %w", len(raw), ErrBadDataSize)
	}
	if len(raw) > MaxADULength {
		return Header{}, fmt.Errorf("frame of %d bytes exceeds %d: %w", len(raw), MaxADULength, ErrBadDataSize)
	}
	return Header{
		Transaction: binary.BigEndian.Uint16(raw[0:2]),
		Protocol:    binary.BigEndian.Uint16(raw[2:4]),
		Length:      binary.BigEndian.Uint16(raw[4:6]),
		Unit:        raw[6],
	}, nil
}

// decodeADU parses the header and checks that the function byte is the one
// the caller expects, returning the body after the function byte.
func decodeADU(raw []byte, want FunctionCode) (Header, []byte, error) {
	h, err := decodeHeader(raw)
	if err != nil {
		return Header{}, nil, err
	}
	if FunctionCode(raw[HeaderLength]) != want {
		return Header{}, nil, fmt.Errorf("function byte %#02x, want %#02x: %w",
			raw[HeaderLength], byte(want), ErrBadData)
	}
	if int(h.Length) != len(raw)-(HeaderLength-1) {
		return Header{}, nil, fmt.Errorf("header length %d does not cover %d trailing bytes: %w",
			h.Length, len(raw)-(HeaderLength-1), ErrBadData)
	}
	return h, raw[HeaderLength+1:], nil
}

// PeekFunction returns the function byte of a framed request without
// decoding it. The frame must be longer than the header.
func PeekFunction(raw []byte) (FunctionCode, error) {
	if len(raw) <= HeaderLength {
		return 0, fmt.Errorf("frame of %d bytes has no function byte: %w", len(raw), ErrBadDataSize)
	}
	return FunctionCode(raw[HeaderLength]), nil
}
