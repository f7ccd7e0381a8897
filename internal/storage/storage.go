// Package storage persists game sessions as JSON files, snapshots campaign
// files into per-session backups, and keeps campaign metadata in SQLite.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwebster45206/solo-dm/internal/services"
	"github.com/jwebster45206/solo-dm/pkg/storage"
)

// LedgerFilename is the SQLite database kept alongside session files.
const LedgerFilename = "campaign.db"

// FileStorage implements storage.Storage on the local filesystem.
type FileStorage struct {
	dir    string
	logger *slog.Logger
	cache  services.Cache // optional session summary cache
	ledger *Ledger
}

// Ensure FileStorage implements Storage interface
var _ storage.Storage = (*FileStorage)(nil)

// NewFileStorage creates the sessions directory if needed and opens the
// campaign ledger inside it. cache may be nil.
func NewFileStorage(dir string, cache services.Cache, logger *slog.Logger) (*FileStorage, error) {
	if dir == "" {
		dir = "./sessions"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}

	ledger, err := OpenLedger(filepath.Join(dir, LedgerFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to open campaign ledger: %w", err)
	}

	return &FileStorage{
		dir:    dir,
		logger: logger,
		cache:  cache,
		ledger: ledger,
	}, nil
}

// Dir returns the sessions directory.
func (f *FileStorage) Dir() string {
	return f.dir
}

// Health and lifecycle methods

func (f *FileStorage) Ping(ctx context.Context) error {
	if _, err := os.Stat(f.dir); err != nil {
		return fmt.Errorf("sessions directory unavailable: %w", err)
	}
	if err := f.ledger.Ping(ctx); err != nil {
		return fmt.Errorf("campaign ledger unavailable: %w", err)
	}
	if f.cache != nil {
		if err := f.cache.Ping(ctx); err != nil {
			f.logger.Warn("Session cache unavailable", "error", err)
		}
	}
	return nil
}

func (f *FileStorage) Close() error {
	if err := f.ledger.Close(); err != nil {
		f.logger.Error("Failed to close campaign ledger", "error", err)
		return err
	}
	if f.cache != nil {
		if err := f.cache.Close(); err != nil {
			f.logger.Error("Failed to close session cache", "error", err)
			return err
		}
	}
	return nil
}

func (f *FileStorage) sessionPath(id string) string {
	return filepath.Join(f.dir, id+".json")
}
