// Package durable is the persistent tier of the study registry: an id-keyed
// store of pipe-encoded study values on top of a kv.Store.
//
// A Store is opened once. If the backend cannot be opened the Store is
// Degraded for the rest of the process: the failure is logged once by Open
// and every later operation returns ErrDegraded without logging again.
package durable

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/kv"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
)

// Errors returned by Store operations.
var (
	ErrNotFound     = errors.New("durable: not found")
	ErrDegraded     = errors.New("durable: degraded")
	ErrWriteFailure = errors.New("durable: write failure")
	ErrReadFailure  = errors.New("durable: read failure")
)

// State is the lifecycle state of the durable tier.
type State int

const (
	Unopened State = iota
	Connected
	Degraded
)

func (s State) String() string {
	switch s {
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	default:
		return "unopened"
	}
}

// DefaultURL is used when Options.URL is empty.
const DefaultURL = "badger://./studydb_data"

// Options configures Open.
type Options struct {
	// URL selects the backend, see kv.Open. A bare path is a badger
	// directory.
	URL string

	// KV, if set, is used instead of opening URL.
	KV kv.Store

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Store is the durable tier.
type Store struct {
	kv     kv.Store
	state  State
	url    string
	cause  error
	logger *slog.Logger
}

// Open connects to the backend. It never fails: a backend that cannot be
// opened yields a Degraded store, and Cause reports why.
func Open(_ context.Context, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{url: opts.URL, logger: logger}
	if s.url == "" {
		s.url = DefaultURL
	}
	if opts.KV != nil {
		s.kv = opts.KV
		s.state = Connected
		return s
	}

	if err := ensureDir(s.url); err != nil {
		s.degrade(err)
		return s
	}
	store, err := kv.Open(s.url, logger)
	if err != nil {
		s.degrade(err)
		return s
	}
	s.kv = store
	s.state = Connected
	logger.Info("durable tier connected", "url", s.url)
	return s
}

// ensureDir creates the directory a badger URL points at.
func ensureDir(url string) error {
	dir, ok := strings.CutPrefix(url, "badger://")
	if !ok {
		if strings.Contains(url, "://") {
			return nil
		}
		dir = url
	}
	if err := os.MkdirAll(filepath.Clean(dir), 0o755); err != nil {
		return fmt.Errorf("durable: create %s: %w", dir, err)
	}
	return nil
}

func (s *Store) degrade(err error) {
	s.state = Degraded
	s.cause = err
	s.logger.Error("durable tier unavailable; records will not persist", "url", s.url, "error", err)
}

// State returns Connected or Degraded.
func (s *Store) State() State { return s.state }

// Connected reports whether the backend is usable.
func (s *Store) Connected() bool { return s.state == Connected }

// Cause returns the open error of a degraded store.
func (s *Store) Cause() error { return s.cause }

// URL returns the backend URL.
func (s *Store) URL() string { return s.url }

// Close releases the backend.
func (s *Store) Close() error {
	if s.state != Connected {
		return nil
	}
	s.state = Degraded
	s.cause = errors.New("durable: closed")
	return s.kv.Close()
}

// Put upserts value under id.
func (s *Store) Put(ctx context.Context, id string, value []byte) error {
	if !s.Connected() {
		return ErrDegraded
	}
	if err := s.kv.Set(ctx, id, value); err != nil {
		return fmt.Errorf("%w: put %q: %w", ErrWriteFailure, id, err)
	}
	return nil
}

// PutRecord encodes r and stores it under r.ID.
func (s *Store) PutRecord(ctx context.Context, r study.Record) error {
	return s.Put(ctx, r.ID, study.Encode(r))
}

// Get returns the raw value stored under id.
func (s *Store) Get(ctx context.Context, id string) ([]byte, error) {
	if !s.Connected() {
		return nil, ErrDegraded
	}
	v, err := s.kv.Get(ctx, id)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %q: %w", ErrReadFailure, id, err)
	}
	return v, nil
}

// GetRecord returns the decoded record stored under id.
func (s *Store) GetRecord(ctx context.Context, id string) (study.Record, error) {
	v, err := s.Get(ctx, id)
	if err != nil {
		return study.Record{}, err
	}
	r, err := study.Decode(id, v)
	if err != nil {
		return study.Record{}, fmt.Errorf("%w: %w", ErrReadFailure, err)
	}
	return r, nil
}

// Delete removes id and reports whether it existed. A missing id is not an
// error.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	if !s.Connected() {
		return false, ErrDegraded
	}
	_, err := s.kv.Get(ctx, id)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: delete %q: %w", ErrReadFailure, id, err)
	}
	if err := s.kv.Delete(ctx, id); err != nil {
		return false, fmt.Errorf("%w: delete %q: %w", ErrWriteFailure, id, err)
	}
	return true, nil
}

// DeleteAll removes every key. The keys are first removed in one batch; if
// the batch fails each key is deleted on its own, and keys that fail are
// logged and skipped. It returns the number of keys removed; the error is
// non-nil only if the scan itself failed.
func (s *Store) DeleteAll(ctx context.Context) (int, error) {
	if !s.Connected() {
		return 0, ErrDegraded
	}
	var keys []string
	for e, err := range s.kv.List(ctx, "") {
		if err != nil {
			return 0, fmt.Errorf("%w: scan: %w", ErrReadFailure, err)
		}
		keys = append(keys, e.Key)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	err := s.kv.BatchDelete(ctx, keys)
	if err == nil {
		s.logger.Info("durable tier cleared", "deleted", len(keys), "keys", len(keys))
		return len(keys), nil
	}
	s.logger.Warn("durable: batch delete failed; deleting keys one by one", "keys", len(keys), "error", err)
	deleted := 0
	for _, k := range keys {
		if err := s.kv.Delete(ctx, k); err != nil {
			s.logger.Error("durable: delete key failed", "id", k, "error", err)
			continue
		}
		deleted++
	}
	s.logger.Info("durable tier cleared", "deleted", deleted, "keys", len(keys))
	return deleted, nil
}

// Scan yields every (id, value) pair in key byte order. Each call starts a
// new scan. A degraded store yields ErrDegraded once.
func (s *Store) Scan(ctx context.Context) iter.Seq2[kv.Entry, error] {
	if !s.Connected() {
		return func(yield func(kv.Entry, error) bool) {
			yield(kv.Entry{}, ErrDegraded)
		}
	}
	return func(yield func(kv.Entry, error) bool) {
		for e, err := range s.kv.List(ctx, "") {
			if err != nil {
				err = fmt.Errorf("%w: scan: %w", ErrReadFailure, err)
			}
			if !yield(e, err) {
				return
			}
		}
	}
}

// Count returns the number of stored keys by full scan.
func (s *Store) Count(ctx context.Context) (int, error) {
	if !s.Connected() {
		return 0, ErrDegraded
	}
	n := 0
	for _, err := range s.Scan(ctx) {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// FindByField scans every stored value and returns the records whose field
// contains query, case-insensitively. Values with too few fields are
// skipped; values whose size cannot be parsed are still matched and
// returned with SizeBytes 0.
func (s *Store) FindByField(ctx context.Context, f study.Field, query string) ([]study.Record, error) {
	if !s.Connected() {
		return nil, ErrDegraded
	}
	needle := strings.ToLower(query)
	var out []study.Record
	for e, err := range s.Scan(ctx) {
		if err != nil {
			return out, err
		}
		fields := study.SplitValue(e.Value)
		if len(fields) <= int(f) {
			continue
		}
		if !strings.Contains(strings.ToLower(fields[f]), needle) {
			continue
		}
		r, err := study.Decode(e.Key, e.Value)
		if err != nil {
			s.logger.Warn("durable: undecodable value", "id", e.Key, "error", err)
			r = partialRecord(e.Key, fields)
		}
		out = append(out, r)
	}
	return out, nil
}

func partialRecord(id string, fields []string) study.Record {
	r := study.Record{ID: id}
	at := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	r.Name, r.StudyDateRaw, r.Modality, r.Sex = at(0), at(1), at(2), at(3)
	return r
}
