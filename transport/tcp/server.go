// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package tcp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/ffutop/modbus-tcp/modbus"
	"github.com/ffutop/modbus-tcp/transport"
)

// Server implements a Modbus TCP server.
type Server struct {
	Address string
	Handler transport.RequestHandler

	listener net.Listener
}

// NewServer creates a new TCP Server.
func NewServer(address string) *Server {
	return &Server{
		Address: address,
	}
}

// Start starts the TCP server.
func (s *Server) Start(ctx context.Context, handler transport.RequestHandler) error {
	s.Handler = handler
	listener, err := net.Listen("tcp", s.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Address, err)
	}
	s.listener = listener
	slog.Info("Modbus TCP server listening", "addr", s.Address)

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			// Check if closed
			select {
			case <-ctx.Done():
				return nil
			default:
				slog.Error("Failed to accept connection", "err", err)
				continue
			}
		}
		go s.handleConnection(ctx, conn)
	}
}

// Close closes the server listener.
func (s *Server) Close() error {
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	slog.Info("New TCP client connected", "addr", conn.RemoteAddr())

	for {
		// Check context
		select {
		case <-ctx.Done():
			return
		default:
		}

		request, err := readFrame(conn)
		if err != nil {
			if err == io.EOF {
				slog.Info("TCP client disconnected gracefully", "addr", conn.RemoteAddr())
			} else {
				slog.Error("Failed to read from connection", "addr", conn.RemoteAddr(), "err", err)
			}
			return
		}

		if s.Handler == nil {
			slog.Error("No handler defined for TCP server")
			return
		}

		reply := s.Handler(ctx, request)
		if len(reply) == 0 {
			// No reply this round.
			continue
		}

		if _, err := conn.Write(reply); err != nil {
			slog.Error("Failed to write response to connection", "err", err)
			return
		}
	}
}

// readFrame reads one MBAP-framed request: the 6-byte prefix first, then
// as many trailing bytes as its length field declares.
func readFrame(conn net.Conn) ([]byte, error) {
	prefix := make([]byte, modbus.HeaderLength-1)
	if _, err := io.ReadFull(conn, prefix); err != nil {
		return nil, err
	}

	length := int(prefix[4])<<8 | int(prefix[5])
	if length == 0 || modbus.HeaderLength-1+length > modbus.MaxADULength {
		return nil, fmt.Errorf("invalid MBAP length %d", length)
	}

	frame := make([]byte, modbus.HeaderLength-1+length)
	copy(frame, prefix)
	if _, err := io.ReadFull(conn, frame[modbus.HeaderLength-1:]); err != nil {
		return nil, err
	}
	return frame, nil
}
