// Package kv provides the flat key-value store interface that backs the
// durable tier of the study registry. Keys are raw strings (a study id is
// stored as-is) and iteration follows key byte order.
//
// The package includes a BadgerDB-backed implementation for production use,
// a SQLite-backed implementation for single-file deployments, and an
// in-memory implementation for testing.
package kv

import (
	"context"
	"errors"
	"iter"
)

// Sentinel errors.
var (
	// ErrNotFound is returned when a key does not exist in the store.
	ErrNotFound = errors.New("kv: not found")
)

// Entry is a key-value pair returned by List.
type Entry struct {
	Key   string
	Value []byte
}

// Store is the interface for a flat key-value store.
type Store interface {
	// Get retrieves the value for a key. Returns ErrNotFound if not present.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a key-value pair. Overwrites any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a key. No error if the key does not exist.
	Delete(ctx context.Context, key string) error

	// List iterates over all entries whose key starts with prefix.
	// An empty prefix lists everything. The iteration order is
	// lexicographic by key bytes.
	List(ctx context.Context, prefix string) iter.Seq2[Entry, error]

	// BatchDelete atomically removes multiple keys.
	BatchDelete(ctx context.Context, keys []string) error

	// Close releases any resources held by the store.
	Close() error
}
