// Package registry coordinates the in-memory index and the durable tier.
//
// Every mutation goes through a Registry: the index is changed first and the
// change is then mirrored to the durable tier when it is connected. Durable
// failures are logged and never undo the in-memory change, so the tiers may
// diverge; ConsistencyCheck reports the divergence but never repairs it.
//
// A Registry is not safe for concurrent use.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/durable"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/index"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
)

// ErrDuplicateKey is returned by Add when the id is already in memory.
var ErrDuplicateKey = index.ErrDuplicateKey

// Options configures Open.
type Options struct {
	// Durable configures the durable tier.
	Durable durable.Options

	// Rehydrate loads every durable record into memory after opening.
	// Off by default: a new process starts with an empty working set.
	Rehydrate bool

	// Metrics is optional.
	Metrics *Metrics

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Registry is the single entry point for reading and mutating records.
type Registry struct {
	mem     *index.Index
	store   *durable.Store
	metrics *Metrics
	logger  *slog.Logger
}

// Open opens the durable tier and returns a Registry with an empty working
// set. The durable record count is logged; durable records are not loaded
// unless opts.Rehydrate is set.
func Open(ctx context.Context, opts Options) (*Registry, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Durable.Logger == nil {
		opts.Durable.Logger = logger
	}
	r := New(durable.Open(ctx, opts.Durable), opts.Metrics, logger)

	if r.store.Connected() {
		n, err := r.store.Count(ctx)
		if err != nil {
			logger.Warn("durable count failed", "error", err)
		} else {
			logger.Info("durable tier opened", "records", n)
		}
	}
	if opts.Rehydrate {
		if _, err := r.Rehydrate(ctx); err != nil {
			r.Close()
			return nil, err
		}
	}
	return r, nil
}

// New wraps an already opened durable store.
func New(store *durable.Store, metrics *Metrics, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		mem:     index.New(),
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
	r.metrics.setDurableState(store.State())
	return r
}

// Close releases the durable tier.
func (r *Registry) Close() error {
	return r.store.Close()
}

// AddResult describes a successful Add.
type AddResult struct {
	// Persisted is true when the durable write succeeded.
	Persisted bool
}

// Add validates rec and inserts it. A duplicate id returns ErrDuplicateKey
// and touches neither tier. When the durable tier is connected the record is
// mirrored to it; a failed mirror is logged and reported through
// AddResult.Persisted, not as an error.
func (r *Registry) Add(ctx context.Context, rec study.Record) (AddResult, error) {
	if err := rec.Validate(); err != nil {
		return AddResult{}, err
	}
	if r.mem.Has(rec.ID) {
		r.metrics.observe(opAdd, resultDuplicate)
		return AddResult{}, fmt.Errorf("%w: %q", ErrDuplicateKey, rec.ID)
	}
	if err := r.mem.Insert(rec); err != nil {
		return AddResult{}, err
	}
	r.metrics.setMemory(r.mem.Len(), r.mem.TotalSizeBytes())

	if !r.store.Connected() {
		r.metrics.observe(opAdd, resultMemoryOnly)
		return AddResult{}, nil
	}
	if err := r.store.PutRecord(ctx, rec); err != nil {
		r.logger.Warn("durable write failed; record kept in memory", "id", rec.ID, "error", err)
		r.metrics.observe(opAdd, resultDurableError)
		return AddResult{}, nil
	}
	r.metrics.observe(opAdd, resultOK)
	return AddResult{Persisted: true}, nil
}

// FindByID returns the record with the given id from memory.
func (r *Registry) FindByID(id string) (study.Record, bool) {
	return r.mem.Get(id)
}

// FindExact returns an owned copy of the record with the given id, or nil.
func (r *Registry) FindExact(id string) *study.Record {
	return r.mem.Exact(id)
}

// FindByField searches the in-memory secondary index. See
// index.Index.FindByField for the exact-bucket matching rule.
func (r *Registry) FindByField(f study.Field, query string) []study.Record {
	return r.mem.FindByField(f, query)
}

// Records returns the working set in insertion order.
func (r *Registry) Records() []study.Record {
	return r.mem.Records()
}

// DeleteByID removes id from memory and, if it was present, from the durable
// tier. It reports whether the record was in memory.
func (r *Registry) DeleteByID(ctx context.Context, id string) (bool, error) {
	if !r.mem.Delete(id) {
		r.metrics.observe(opDelete, resultNotFound)
		return false, nil
	}
	r.afterDelete(ctx, id)
	return true, nil
}

// DeleteByPosition removes the i-th record in insertion order (0-based).
func (r *Registry) DeleteByPosition(ctx context.Context, i int) (study.Record, bool, error) {
	rec, ok := r.mem.DeleteAt(i)
	if !ok {
		r.metrics.observe(opDelete, resultNotFound)
		return study.Record{}, false, nil
	}
	r.afterDelete(ctx, rec.ID)
	return rec, true, nil
}

func (r *Registry) afterDelete(ctx context.Context, id string) {
	r.metrics.setMemory(r.mem.Len(), r.mem.TotalSizeBytes())
	if !r.store.Connected() {
		r.metrics.observe(opDelete, resultMemoryOnly)
		return
	}
	if _, err := r.store.Delete(ctx, id); err != nil {
		r.logger.Warn("durable delete failed", "id", id, "error", err)
		r.metrics.observe(opDelete, resultDurableError)
		return
	}
	r.metrics.observe(opDelete, resultOK)
}

// ClearAll empties memory and then the durable tier.
func (r *Registry) ClearAll(ctx context.Context) error {
	r.mem.Clear()
	r.metrics.setMemory(0, 0)
	if !r.store.Connected() {
		r.metrics.observe(opClear, resultMemoryOnly)
		return nil
	}
	if _, err := r.store.DeleteAll(ctx); err != nil {
		r.metrics.observe(opClear, resultDurableError)
		return err
	}
	r.metrics.observe(opClear, resultOK)
	return nil
}

// Len returns the number of records in memory.
func (r *Registry) Len() int { return r.mem.Len() }

// TotalSizeBytes returns the summed size of the records in memory.
func (r *Registry) TotalSizeBytes() int64 { return r.mem.TotalSizeBytes() }

// DurableState returns the state of the durable tier.
func (r *Registry) DurableState() durable.State { return r.store.State() }

// Durable exposes the durable tier for verification queries.
func (r *Registry) Durable() *durable.Store { return r.store }

// DurableCount returns the number of durable records, 0 when degraded.
func (r *Registry) DurableCount(ctx context.Context) (int, error) {
	n, err := r.store.Count(ctx)
	if errors.Is(err, durable.ErrDegraded) {
		return 0, nil
	}
	return n, err
}

// SearchDurable queries the durable tier directly. The field "id" is a key
// lookup; "name", "modality" and "sex" are case-insensitive substring scans.
func (r *Registry) SearchDurable(ctx context.Context, field, query string) ([]study.Record, error) {
	if field == "id" {
		rec, err := r.store.GetRecord(ctx, query)
		if errors.Is(err, durable.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return []study.Record{rec}, nil
	}
	f, err := study.ParseField(field)
	if err != nil {
		return nil, err
	}
	return r.store.FindByField(ctx, f, query)
}

// Rehydrate inserts every decodable durable record that is not already in
// memory. Nothing is written back to the durable tier. It returns the number
// of records loaded.
func (r *Registry) Rehydrate(ctx context.Context) (int, error) {
	if !r.store.Connected() {
		return 0, nil
	}
	loaded, skipped := 0, 0
	for e, err := range r.store.Scan(ctx) {
		if err != nil {
			return loaded, err
		}
		rec, err := study.Decode(e.Key, e.Value)
		if err != nil {
			r.logger.Warn("rehydrate: skipping undecodable record", "id", e.Key, "error", err)
			skipped++
			continue
		}
		if err := r.mem.Insert(rec); err != nil {
			continue
		}
		loaded++
	}
	r.metrics.setMemory(r.mem.Len(), r.mem.TotalSizeBytes())
	r.logger.Info("rehydrated working set from durable tier", "loaded", loaded, "skipped", skipped)
	return loaded, nil
}
