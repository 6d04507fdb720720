package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config selects and configures a backend.
type Config struct {
	// Driver forces a backend; empty means detect from URL.
	Driver Driver

	// URL is the PostgreSQL connection string.
	URL string

	// SQLitePath is the SQLite database file, or ":memory:".
	SQLitePath string

	// MaxConns caps the PostgreSQL pool.
	MaxConns int
}

// Opener creates a connection for one driver. Driver packages register
// themselves from init so that importing them is enough to enable them.
type Opener func(ctx context.Context, cfg Config) (Connection, error)

var openers = map[Driver]Opener{}

// Register makes a driver available to Open.
func Register(d Driver, open Opener) {
	openers[d] = open
}

// Open connects to the configured backend.
func Open(ctx context.Context, cfg Config) (Connection, error) {
	d := cfg.Driver
	if d == "" {
		d = DetectDriver(cfg.URL)
	}
	if d == DriverSQLite && cfg.SQLitePath == "" && cfg.URL != "" {
		cfg.SQLitePath = strings.TrimPrefix(cfg.URL, "sqlite://")
	}

	open, ok := openers[d]
	if !ok {
		return nil, fmt.Errorf("database driver %q is not registered", d)
	}
	return open(ctx, cfg)
}

// DefaultSQLitePath is ~/.aromabox/aromabox.db.
func DefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".aromabox", "aromabox.db")
}

// EnsureDirectory creates the parent directory of path.
func EnsureDirectory(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
