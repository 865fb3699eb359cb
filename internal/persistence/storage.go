// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"github.com/ffutop/modbus-tcp/modbus"
)

// Storage persists the server's data table across restarts. The protocol
// core never sees it: the server wiring loads the table at startup and
// calls OnWrite after each mutating request.
type Storage interface {
	// Load builds the data table with the given geometry, restoring any
	// previously persisted contents.
	Load(cfg modbus.TableConfig) (*modbus.DataTable, error)

	// Save persists the current table contents.
	Save(t *modbus.DataTable) error

	// OnWrite is a hook called after a write request mutates the table.
	// It lets the storage persist in real time.
	OnWrite(t *modbus.DataTable)

	// Close releases any held resources.
	Close() error
}

// New picks a backend by name: "file", "mmap", "sql", anything else is
// non-persistent memory.
func New(kind, path string) Storage {
	switch kind {
	case "file":
		return NewFileStorage(path)
	case "mmap":
		return NewMmapStorage(path)
	case "sql":
		return NewSQLStorage("sqlite3", path)
	}
	return NewMemoryStorage()
}
