// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package local

import (
	"context"

	"github.com/ffutop/modbus-tcp/modbus"
)

// Client is an in-process Requester: requests run through the handler
// against a local data table without any wire. Useful for embedders and
// tests that want the full codec path minus the socket.
type Client struct {
	table *modbus.DataTable
}

// NewClient creates a Client over the given table.
func NewClient(table *modbus.DataTable) *Client {
	return &Client{table: table}
}

// Table exposes the underlying data table.
func (c *Client) Table() *modbus.DataTable {
	return c.table
}

// Send runs one framed request through the handler and returns the framed
// reply. A nil reply mirrors the session-layer drop.
func (c *Client) Send(ctx context.Context, request []byte) ([]byte, error) {
	reply := modbus.Handle(c.table, request)
	if len(reply) == 0 {
		return nil, modbus.ErrConnectionProblem
	}
	return reply, nil
}

// Close implements the Requester interface.
func (c *Client) Close() error {
	return nil
}
