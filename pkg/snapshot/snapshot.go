// Package snapshot exports the in-memory registry to a FileStore and
// imports it back.
//
// A snapshot is one msgpack document holding every record in insertion
// order. Files live under Dir and are named so that lexical order is
// creation order:
//
//	snapshots/20241017T101500.000000000Z-<uuid>.msgpack
//
// Snapshots are an operator backup. Importing one re-adds records through the
// registry, so duplicates are skipped and new records are written through to
// the durable tier like any other insertion.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/registry"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/storage"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Dir is the path prefix of snapshot files within a FileStore.
const Dir = "snapshots/"

const (
	ext     = ".msgpack"
	stamp   = "20060102T150405.000000000Z"
	version = 1
)

var (
	// ErrNoSnapshot is returned by Latest when the store holds no snapshot.
	ErrNoSnapshot = errors.New("snapshot: none found")
	// ErrCorrupt is returned when a snapshot cannot be decoded.
	ErrCorrupt = errors.New("snapshot: corrupt document")
)

// Document is the encoded form of a snapshot.
type Document struct {
	Version   int            `msgpack:"v"`
	ID        string         `msgpack:"id"`
	CreatedAt int64          `msgpack:"created_at"` // Unix nanoseconds
	Records   []study.Record `msgpack:"records"`
}

// Created returns CreatedAt as a time.Time in UTC.
func (d *Document) Created() time.Time {
	return time.Unix(0, d.CreatedAt).UTC()
}

// Source supplies the records to export.
type Source interface {
	Records() []study.Record
}

// Sink receives imported records. *registry.Registry satisfies it.
type Sink interface {
	Add(ctx context.Context, rec study.Record) (registry.AddResult, error)
}

// Info describes a written or read snapshot.
type Info struct {
	Path      string    `json:"path" yaml:"path"`
	ID        string    `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	Records   int       `json:"records" yaml:"records"`
}

// Options configures Export and Import.
type Options struct {
	// Now is used for the snapshot timestamp. If nil, uses time.Now.
	Now func() time.Time

	// Logger is optional. If nil, uses slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Export writes every record of src to a new snapshot file in fs.
func Export(ctx context.Context, fs storage.FileStore, src Source, opts Options) (Info, error) {
	created := opts.now().UTC()
	doc := Document{
		Version:   version,
		ID:        uuid.NewString(),
		CreatedAt: created.UnixNano(),
		Records:   src.Records(),
	}
	path := Dir + created.Format(stamp) + "-" + doc.ID + ext

	w, err := fs.Write(ctx, path)
	if err != nil {
		return Info{}, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	if err := msgpack.NewEncoder(w).Encode(&doc); err != nil {
		w.Close()
		return Info{}, fmt.Errorf("snapshot: encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return Info{}, fmt.Errorf("snapshot: write %s: %w", path, err)
	}

	info := Info{Path: path, ID: doc.ID, CreatedAt: created, Records: len(doc.Records)}
	opts.logger().Info("snapshot exported", "path", path, "records", info.Records)
	return info, nil
}

// List returns the snapshot paths in fs, oldest first.
func List(ctx context.Context, fs storage.FileStore) ([]string, error) {
	all, err := fs.List(ctx, Dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot: list: %w", err)
	}
	var out []string
	for _, p := range all {
		if strings.HasSuffix(p, ext) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Latest returns the path of the most recent snapshot in fs.
func Latest(ctx context.Context, fs storage.FileStore) (string, error) {
	paths, err := List(ctx, fs)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", ErrNoSnapshot
	}
	return paths[len(paths)-1], nil
}

// Read decodes the snapshot at path.
func Read(ctx context.Context, fs storage.FileStore, path string) (*Document, error) {
	r, err := fs.Read(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open %s: %w", path, err)
	}
	defer r.Close()

	var doc Document
	if err := msgpack.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	if doc.Version != version {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrCorrupt, path, doc.Version)
	}
	if _, err := uuid.Parse(doc.ID); err != nil {
		return nil, fmt.Errorf("%w: %s: bad id: %w", ErrCorrupt, path, err)
	}
	return &doc, nil
}

// ImportSummary describes a finished import.
type ImportSummary struct {
	Info       `yaml:",inline"`
	Added      int      `json:"added" yaml:"added"`
	Persisted  int      `json:"persisted" yaml:"persisted"`
	Duplicates []string `json:"duplicates,omitempty" yaml:"duplicates,omitempty"`
	Invalid    []string `json:"invalid,omitempty" yaml:"invalid,omitempty"`
}

// Import adds every record of the snapshot at path to sink, in snapshot
// order. An empty path imports the latest snapshot. Duplicate and invalid
// records are skipped and reported; any other sink error stops the import.
func Import(ctx context.Context, fs storage.FileStore, path string, sink Sink, opts Options) (ImportSummary, error) {
	if path == "" {
		latest, err := Latest(ctx, fs)
		if err != nil {
			return ImportSummary{}, err
		}
		path = latest
	}
	doc, err := Read(ctx, fs, path)
	if err != nil {
		return ImportSummary{}, err
	}

	logger := opts.logger()
	sum := ImportSummary{Info: Info{
		Path:      path,
		ID:        doc.ID,
		CreatedAt: doc.Created(),
		Records:   len(doc.Records),
	}}
	for _, rec := range doc.Records {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		res, err := sink.Add(ctx, rec)
		switch {
		case errors.Is(err, registry.ErrDuplicateKey):
			sum.Duplicates = append(sum.Duplicates, rec.ID)
			continue
		case errors.Is(err, study.ErrInvalidRecord):
			logger.Warn("snapshot: invalid record skipped", "id", rec.ID, "error", err)
			sum.Invalid = append(sum.Invalid, rec.ID)
			continue
		case err != nil:
			return sum, fmt.Errorf("snapshot: import %s: %w", rec.ID, err)
		}
		sum.Added++
		if res.Persisted {
			sum.Persisted++
		}
	}
	logger.Info("snapshot imported", "path", path, "added", sum.Added,
		"duplicates", len(sum.Duplicates), "invalid", len(sum.Invalid))
	return sum, nil
}
