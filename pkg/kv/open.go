package kv

import (
	"fmt"
	"log/slog"
	"strings"
)

// Open opens a Store from a URL:
//
//	badger:///path/to/dir    BadgerDB directory (created if missing)
//	sqlite:///path/to/db     SQLite database file
//	memory://                in-memory map, lost on exit
//
// A URL without a scheme is treated as a badger directory.
func Open(url string, logger *slog.Logger) (Store, error) {
	switch {
	case strings.HasPrefix(url, "badger://"):
		return NewBadger(BadgerOptions{
			Dir:    strings.TrimPrefix(url, "badger://"),
			Logger: logger,
		})
	case strings.HasPrefix(url, "sqlite://"):
		return NewSQLite(strings.TrimPrefix(url, "sqlite://"))
	case url == "memory://":
		return NewMemory(), nil
	case strings.Contains(url, "://"):
		return nil, fmt.Errorf("kv: unsupported URL scheme: %s", url)
	default:
		return NewBadger(BadgerOptions{Dir: url, Logger: logger})
	}
}
