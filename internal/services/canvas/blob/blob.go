// Package blob stores rendered snapshot images keyed by content address.
//
// Addresses are CIDv1 strings (raw codec, SHA2-256 multihash) derived from
// the blob bytes, so a stored image can never disagree with its key and
// storing the same image twice lands on the same entry.
package blob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// ErrNotFound indicates a requested blob is missing.
var ErrNotFound = errors.New("blob not found")

// Config controls how the store opens its backing database.
type Config struct {
	// Path is the directory holding the on-disk database. Ignored when
	// InMemory is set.
	Path string
	// InMemory keeps all blobs in RAM. Used by tests.
	InMemory bool
	// SyncWrites flushes every write to disk before acknowledging it.
	SyncWrites bool
}

// Store is a content-addressed blob store backed by Badger.
type Store struct {
	db *badger.DB
}

// Open opens the blob store, creating the directory when needed.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, fmt.Errorf("blob store path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create blob directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores data under its content address and returns the address.
// Storing the same bytes again overwrites the entry with identical
// content, so Put is idempotent.
func (s *Store) Put(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s == nil || s.db == nil {
		return "", fmt.Errorf("blob store is not configured")
	}
	if len(data) == 0 {
		return "", fmt.Errorf("blob data is required")
	}

	address, err := CID(data)
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(address), data)
	})
	if err != nil {
		return "", fmt.Errorf("store blob %s: %w", address, err)
	}
	return address, nil
}

// Get returns a copy of the blob stored under address.
func (s *Store) Get(ctx context.Context, address string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("blob store is not configured")
	}
	if address == "" {
		return nil, fmt.Errorf("blob address is required")
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(address))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load blob %s: %w", address, err)
	}
	return data, nil
}

// Has reports whether a blob exists under address.
func (s *Store) Has(ctx context.Context, address string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.db == nil {
		return false, fmt.Errorf("blob store is not configured")
	}
	if address == "" {
		return false, fmt.Errorf("blob address is required")
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(address))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check blob %s: %w", address, err)
	}
	return true, nil
}
