// Package blob provides key-value snapshot stores for the inventory.
//
// Each backend stores opaque byte values under string keys. The inventory
// keeps a single key holding the JSON array of all items, rewritten on
// every change.
package blob

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/wardrobe/internal/config"
)

// Backend is a snapshot store with a lifecycle.
type Backend interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// Open returns the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Backend, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverMemory:
		return NewMemory(), nil
	case config.DriverSQLite:
		s, err := OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverPostgres:
		p, err := OpenPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
