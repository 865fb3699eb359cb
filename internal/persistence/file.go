// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ffutop/modbus-tcp/modbus"
)

// FileStorage persists the table as a flat snapshot file rewritten on
// every save.
type FileStorage struct {
	path string
}

// NewFileStorage creates a new FileStorage.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path: path,
	}
}

// Load builds the table and restores the snapshot file if one exists. A
// snapshot whose size does not match the configured geometry is an error.
func (fs *FileStorage) Load(cfg modbus.TableConfig) (*modbus.DataTable, error) {
	t := modbus.NewDataTableWith(cfg)

	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	if len(data) == 0 {
		return t, nil
	}
	if err := restore(t, data); err != nil {
		return nil, fmt.Errorf("failed to restore snapshot: %w", err)
	}
	return t, nil
}

// Save rewrites the snapshot file.
func (fs *FileStorage) Save(t *modbus.DataTable) error {
	buf := make([]byte, snapshotSize(t))
	if err := snapshot(t, buf); err != nil {
		return err
	}
	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return os.Rename(tmp, fs.path)
}

// OnWrite persists the table after each mutation.
func (fs *FileStorage) OnWrite(t *modbus.DataTable) {
	if err := fs.Save(t); err != nil {
		slog.Error("Failed to save snapshot file", "path", fs.path, "err", err)
	}
}

// Close releases nothing; the file is only open during Save.
func (fs *FileStorage) Close() error {
	return nil
}
