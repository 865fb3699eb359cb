// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/ffutop/modbus-tcp/modbus"
)

// Config defines the global configuration structure
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Table       TableConfig       `mapstructure:"table"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig defines the TCP listener
type ServerConfig struct {
	Address string `mapstructure:"address"` // e.g. "0.0.0.0:502"
}

// LogConfig defines logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"` // debug, info, warn, error
	File  string `mapstructure:"file"`  // Log file path
}

// BlockConfig defines the address window of one data block
type BlockConfig struct {
	Start    uint16 `mapstructure:"start"`
	Capacity int    `mapstructure:"capacity"` // 0 means the full address space
}

// TableConfig defines the geometry of the four data blocks
type TableConfig struct {
	Coils            BlockConfig `mapstructure:"coils"`
	DiscreteInputs   BlockConfig `mapstructure:"discrete_inputs"`
	HoldingRegisters BlockConfig `mapstructure:"holding_registers"`
	InputRegisters   BlockConfig `mapstructure:"input_registers"`
}

// Geometry converts the configured windows to the data-table form.
func (tc TableConfig) Geometry() modbus.TableConfig {
	conv := func(b BlockConfig) modbus.BlockGeometry {
		return modbus.BlockGeometry{Start: modbus.Address(b.Start), Capacity: b.Capacity}
	}
	return modbus.TableConfig{
		Coils:            conv(tc.Coils),
		DiscreteInputs:   conv(tc.DiscreteInputs),
		HoldingRegisters: conv(tc.HoldingRegisters),
		InputRegisters:   conv(tc.InputRegisters),
	}
}

// PersistenceConfig defines data storage settings
type PersistenceConfig struct {
	Type string `mapstructure:"type"` // "memory", "file", "mmap", "sql"
	Path string `mapstructure:"path"` // File path or DSN for "file/mmap/sql"
}

// LoadConfig loads configuration from file
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/modbustcp/")
		v.AddConfigPath("$HOME/.modbustcp")
		v.AddConfigPath(".")
	}

	// Set defaults
	v.SetDefault("server.address", "0.0.0.0:502")
	v.SetDefault("persistence.type", "memory")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No file: defaults only.
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	for _, b := range []*BlockConfig{
		&config.Table.Coils, &config.Table.DiscreteInputs,
		&config.Table.HoldingRegisters, &config.Table.InputRegisters,
	} {
		if b.Capacity < 0 || b.Capacity > modbus.BlockCapacity {
			return nil, fmt.Errorf("block capacity %d out of range", b.Capacity)
		}
		if b.Capacity > 0 && int(b.Start)+b.Capacity > modbus.BlockCapacity {
			return nil, fmt.Errorf("block window %d+%d exceeds the address space", b.Start, b.Capacity)
		}
	}

	return &config, nil
}
