// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package persistence

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/ffutop/modbus-tcp/modbus"
)

// Block discriminators in the modbus_cells table.
const (
	blockCoils = iota
	blockDiscreteInputs
	blockHoldingRegisters
	blockInputRegisters
)

// SQLStorage persists the table in a SQL database, one row per non-zero
// cell. Note: the driver (e.g. sqlite3) must be imported by the binary.
type SQLStorage struct {
	driver string
	dsn    string
	db     *sql.DB
}

// NewSQLStorage creates a new SQLStorage.
func NewSQLStorage(driver, dsn string) *SQLStorage {
	return &SQLStorage{
		driver: driver,
		dsn:    dsn,
	}
}

// Load connects to the DB and restores persisted cells into a fresh table.
func (s *SQLStorage) Load(cfg modbus.TableConfig) (*modbus.DataTable, error) {
	db, err := sql.Open(s.driver, s.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	s.db = db

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	t := modbus.NewDataTableWith(cfg)

	rows, err := db.Query("SELECT block, address, value FROM modbus_cells")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to query cells: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var block, addr, val int
		if err := rows.Scan(&block, &addr, &val); err != nil {
			continue
		}
		if addr < 0 || addr > modbus.MaxAddress {
			continue
		}
		a := modbus.Address(addr)

		// Rows outside the configured windows are stale; skip them.
		switch block {
		case blockCoils:
			if t.Coils.Validate(a) {
				t.Coils.Set(a, val != 0)
			}
		case blockDiscreteInputs:
			if t.DiscreteInputs.Validate(a) {
				t.DiscreteInputs.Set(a, val != 0)
			}
		case blockHoldingRegisters:
			if t.HoldingRegisters.Validate(a) {
				t.HoldingRegisters.Set(a, modbus.RegValue(val))
			}
		case blockInputRegisters:
			if t.InputRegisters.Validate(a) {
				t.InputRegisters.Set(a, modbus.RegValue(val))
			}
		}
	}

	return t, rows.Err()
}

func (s *SQLStorage) initSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS modbus_cells (
		block INTEGER NOT NULL,
		address INTEGER NOT NULL,
		value INTEGER NOT NULL,
		PRIMARY KEY (block, address)
	)`)
	return err
}

// Save rewrites the persisted cells inside one transaction, storing only
// non-zero contents.
func (s *SQLStorage) Save(t *modbus.DataTable) error {
	if s.db == nil {
		return fmt.Errorf("db is not open")
	}
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM modbus_cells"); err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO modbus_cells (block, address, value) VALUES (?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for block, b := range []*modbus.BitBlock{t.Coils, t.DiscreteInputs} {
		bits, err := b.GetRange(b.Start(), b.Capacity())
		if err != nil {
			return err
		}
		for i, on := range bits {
			if !on {
				continue
			}
			if _, err := stmt.Exec(block, int(b.Start())+i, 1); err != nil {
				return err
			}
		}
	}
	for block, b := range []*modbus.RegBlock{t.HoldingRegisters, t.InputRegisters} {
		values, err := b.GetRange(b.Start(), b.Capacity())
		if err != nil {
			return err
		}
		for i, v := range values {
			if v == 0 {
				continue
			}
			if _, err := stmt.Exec(blockHoldingRegisters+block, int(b.Start())+i, int(v)); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// OnWrite persists the table after each mutation.
func (s *SQLStorage) OnWrite(t *modbus.DataTable) {
	if err := s.Save(t); err != nil {
		slog.Error("Failed to save cells to db", "err", err)
	}
}

// Close closes the database handle.
func (s *SQLStorage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
