// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import "github.com/ffutop/modbus-tcp/modbus"

// MemoryStorage is a no-op storage (non-persistent).
type MemoryStorage struct{}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (ms *MemoryStorage) Load(cfg modbus.TableConfig) (*modbus.DataTable, error) {
	return modbus.NewDataTableWith(cfg), nil
}

func (ms *MemoryStorage) Save(t *modbus.DataTable) error {
	return nil
}

func (ms *MemoryStorage) OnWrite(t *modbus.DataTable) {
	// No-op
}

func (ms *MemoryStorage) Close() error {
	return nil
}
