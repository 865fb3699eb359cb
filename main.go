// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ffutop/modbus-tcp/internal/config"
	"github.com/ffutop/modbus-tcp/internal/persistence"
	"github.com/ffutop/modbus-tcp/modbus"
	"github.com/ffutop/modbus-tcp/transport/tcp"
)

func main() {
	configFile := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load Configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	slog.Info("Starting Modbus TCP server...")

	// Build the data table, restoring persisted contents if any.
	storage := persistence.New(cfg.Persistence.Type, cfg.Persistence.Path)
	table, err := storage.Load(cfg.Table.Geometry())
	if err != nil {
		slog.Error("Failed to load data table", "err", err)
		os.Exit(1)
	}
	defer storage.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(ctx context.Context, request []byte) []byte {
		reply := modbus.Handle(table, request)
		if len(reply) > 0 && isWrite(request) {
			storage.OnWrite(table)
		}
		return reply
	}

	server := tcp.NewServer(cfg.Server.Address)
	go func() {
		if err := server.Start(ctx, handler); err != nil {
			slog.Error("Server stopped with error", "err", err)
			cancel()
		}
	}()

	// Wait for Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	slog.Info("Shutting down...")
	cancel()
	server.Close()
	if err := storage.Save(table); err != nil {
		slog.Error("Failed to save data table", "err", err)
	}
	slog.Info("Goodbye.")
}

// isWrite reports whether a framed request mutates the data table.
func isWrite(request []byte) bool {
	fn, err := modbus.PeekFunction(request)
	if err != nil {
		return false
	}
	switch fn {
	case modbus.FuncWriteSingleCoil, modbus.FuncWriteSingleRegister,
		modbus.FuncWriteMultipleCoils, modbus.FuncWriteMultipleRegisters,
		modbus.FuncMaskWriteRegister, modbus.FuncReadWriteMultipleRegisters:
		return true
	}
	return false
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
