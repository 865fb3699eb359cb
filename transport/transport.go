// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package transport

import "context"

// RequestHandler turns one framed Modbus TCP request into one framed
// reply. An empty reply means "no reply this round": the session layer
// drops the request without answering.
type RequestHandler func(ctx context.Context, request []byte) []byte

// Upstream is a source of framed requests (a Modbus master connected to
// us). It acts as a server.
type Upstream interface {
	// Start starts the server and blocks. It should be called in a goroutine.
	Start(ctx context.Context, handler RequestHandler) error
	Close() error
}

// Requester carries one framed request to a Modbus server and returns the
// framed reply. Implementations exist for TCP and for an in-process table.
type Requester interface {
	Send(ctx context.Context, request []byte) ([]byte, error)
	Close() error
}
