// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     prefs
// Description: SQLite persistence of last-used device selections
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

// Preference keys
const (
	KeyInputDevice  = "input_device"
	KeyOutputDevice = "output_device"
)

// Devices is a stored device selection
type Devices struct {
	Input     interpreter.DeviceHandle
	Output    interpreter.DeviceHandle
	UpdatedAt time.Time
}

// Store persists preferences in SQLite
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Config holds store configuration
type Config struct {
	Path string
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		Path: "./data/prefs.db",
	}
}

// Open opens or creates the preference database
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		cfg = DefaultConfig()
	}

	dir := filepath.Dir(cfg.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns a stored value; ok is false when the key is unset
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	err = s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read preference %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores a value
func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write preference %s: %w", key, err)
	}
	return nil
}

// Delete removes a value
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}

// Devices returns the last stored device selection. Unset entries are
// the default device.
func (s *Store) Devices(ctx context.Context) (Devices, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM preferences WHERE key IN (?, ?)`,
		KeyInputDevice, KeyOutputDevice)
	if err != nil {
		return Devices{}, fmt.Errorf("failed to read devices: %w", err)
	}
	defer rows.Close()

	var d Devices
	for rows.Next() {
		var key, value string
		var updated time.Time
		if err := rows.Scan(&key, &value, &updated); err != nil {
			return Devices{}, fmt.Errorf("failed to scan device: %w", err)
		}
		switch key {
		case KeyInputDevice:
			d.Input = interpreter.DeviceHandle(value)
		case KeyOutputDevice:
			d.Output = interpreter.DeviceHandle(value)
		}
		if updated.After(d.UpdatedAt) {
			d.UpdatedAt = updated
		}
	}
	return d, rows.Err()
}

// SaveDevices stores a device selection in one transaction
func (s *Store) SaveDevices(ctx context.Context, input, output interpreter.DeviceHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for key, value := range map[string]interpreter.DeviceHandle{
		KeyInputDevice:  input,
		KeyOutputDevice: output,
	} {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
		`, key, string(value), now); err != nil {
			return fmt.Errorf("failed to save %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}
