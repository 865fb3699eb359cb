// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/ffutop/modbus-tcp/modbus"
)

// MmapStorage persists the table through a memory-mapped snapshot file.
// Saves serialize into the mapped region and flush; the OS manages the
// backing pages.
type MmapStorage struct {
	path string
	file *os.File
	data mmap.MMap
}

// NewMmapStorage creates a new MmapStorage.
func NewMmapStorage(path string) *MmapStorage {
	return &MmapStorage{
		path: path,
	}
}

// Load maps the snapshot file, sizing it to the configured geometry, and
// restores its contents into a fresh table.
func (ms *MmapStorage) Load(cfg modbus.TableConfig) (*modbus.DataTable, error) {
	t := modbus.NewDataTableWith(cfg)
	size := int64(snapshotSize(t))

	f, err := os.OpenFile(ms.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open mmap file: %w", err)
	}
	ms.file = f

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	fresh := fi.Size() == 0
	if fi.Size() != size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to resize mmap file: %w", err)
		}
	}

	data, err := mmap.Map(f, mmap.RDWR, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}
	ms.data = data

	if !fresh {
		if err := restore(t, data); err != nil {
			ms.Close()
			return nil, fmt.Errorf("failed to restore snapshot: %w", err)
		}
	}
	return t, nil
}

// Save serializes into the mapped region and flushes it to disk.
func (ms *MmapStorage) Save(t *modbus.DataTable) error {
	if ms.data == nil {
		return fmt.Errorf("mmap data is nil")
	}
	if err := snapshot(t, ms.data); err != nil {
		return err
	}
	return ms.data.Flush()
}

// OnWrite persists the table after each mutation.
func (ms *MmapStorage) OnWrite(t *modbus.DataTable) {
	if ms.data == nil {
		return
	}
	if err := ms.Save(t); err != nil {
		slog.Error("Failed to flush mmap", "err", err)
	}
}

// Close unmaps and closes the file.
func (ms *MmapStorage) Close() error {
	var err error
	if ms.data != nil {
		if e := ms.data.Unmap(); e != nil {
			err = e
		}
		ms.data = nil
	}
	if ms.file != nil {
		if e := ms.file.Close(); e != nil {
			err = e
		}
		ms.file = nil
	}
	return err
}
