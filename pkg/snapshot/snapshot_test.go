package snapshot_test

import (
	"context"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/durable"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/kv"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/registry"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/snapshot"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/storage"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
)

func newStore(t *testing.T) *storage.Local {
	t.Helper()
	fs, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	return fs
}

func newRegistry(t *testing.T) (*registry.Registry, kv.Store) {
	t.Helper()
	store := kv.NewMemory()
	r, err := registry.Open(context.Background(), registry.Options{
		Durable: durable.Options{KV: store},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r, store
}

func add(t *testing.T, r *registry.Registry, ids ...string) {
	t.Helper()
	for _, id := range ids {
		rec := study.Record{ID: id, Name: "Patient " + id, StudyDateRaw: "20240101", Modality: "CT", Sex: study.SexOther, SizeBytes: 100}
		if _, err := r.Add(context.Background(), rec); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}
}

func at(ts string) func() time.Time {
	return func() time.Time {
		tm, _ := time.Parse(time.RFC3339, ts)
		return tm
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	fs := newStore(t)
	src, _ := newRegistry(t)
	add(t, src, "C3", "A1", "B2")

	info, err := snapshot.Export(ctx, fs, src, snapshot.Options{Now: at("2024-10-17T10:15:00Z")})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if info.Records != 3 || !strings.HasPrefix(info.Path, "snapshots/20241017T101500.000000000Z-") {
		t.Errorf("info = %+v", info)
	}

	dst, store := newRegistry(t)
	sum, err := snapshot.Import(ctx, fs, "", dst, snapshot.Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if sum.Added != 3 || sum.Persisted != 3 || sum.ID != info.ID {
		t.Errorf("summary = %+v", sum)
	}

	var ids []string
	for _, r := range dst.Records() {
		ids = append(ids, r.ID)
	}
	if !slices.Equal(ids, []string{"C3", "A1", "B2"}) {
		t.Errorf("import order = %v, want insertion order", ids)
	}
	if _, err := store.Get(ctx, "A1"); err != nil {
		t.Errorf("imported record not written through: %v", err)
	}
}

func TestImportSkipsDuplicates(t *testing.T) {
	ctx := context.Background()
	fs := newStore(t)
	r, _ := newRegistry(t)
	add(t, r, "A1", "B2")
	if _, err := snapshot.Export(ctx, fs, r, snapshot.Options{}); err != nil {
		t.Fatalf("Export: %v", err)
	}

	sum, err := snapshot.Import(ctx, fs, "", r, snapshot.Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if sum.Added != 0 || !slices.Equal(sum.Duplicates, []string{"A1", "B2"}) {
		t.Errorf("summary = %+v", sum)
	}
	if r.Len() != 2 {
		t.Errorf("Len = %d, want 2", r.Len())
	}
}

func TestLatestPicksNewest(t *testing.T) {
	ctx := context.Background()
	fs := newStore(t)
	r, _ := newRegistry(t)

	add(t, r, "A1")
	if _, err := snapshot.Export(ctx, fs, r, snapshot.Options{Now: at("2024-01-01T00:00:00Z")}); err != nil {
		t.Fatal(err)
	}
	add(t, r, "B2")
	newest, err := snapshot.Export(ctx, fs, r, snapshot.Options{Now: at("2024-06-01T00:00:00Z")})
	if err != nil {
		t.Fatal(err)
	}

	got, err := snapshot.Latest(ctx, fs)
	if err != nil || got != newest.Path {
		t.Fatalf("Latest = %q, %v; want %q", got, err, newest.Path)
	}
	paths, _ := snapshot.List(ctx, fs)
	if len(paths) != 2 {
		t.Errorf("List = %v", paths)
	}
	doc, err := snapshot.Read(ctx, fs, got)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(doc.Records) != 2 || !doc.Created().Equal(newest.CreatedAt) {
		t.Errorf("doc = %+v", doc)
	}
}

func TestLatestEmpty(t *testing.T) {
	_, err := snapshot.Latest(context.Background(), newStore(t))
	if !errors.Is(err, snapshot.ErrNoSnapshot) {
		t.Fatalf("err = %v, want ErrNoSnapshot", err)
	}
}

func TestReadCorrupt(t *testing.T) {
	ctx := context.Background()
	fs := newStore(t)
	w, _ := fs.Write(ctx, "snapshots/broken.msgpack")
	io.WriteString(w, "not msgpack at all")
	w.Close()

	_, err := snapshot.Read(ctx, fs, "snapshots/broken.msgpack")
	if !errors.Is(err, snapshot.ErrCorrupt) {
		t.Fatalf("err = %v, want ErrCorrupt", err)
	}
}

type invalidSource []study.Record

func (s invalidSource) Records() []study.Record { return s }

func TestImportSkipsInvalid(t *testing.T) {
	ctx := context.Background()
	fs := newStore(t)
	src := invalidSource{
		{ID: "OK1", Name: "Fine", StudyDateRaw: "20240101", Modality: "US", Sex: study.SexOther, SizeBytes: 1},
		{ID: "BAD", Name: "Pipe|Name", StudyDateRaw: "20240101", Modality: "US", Sex: study.SexOther, SizeBytes: 1},
	}
	if _, err := snapshot.Export(ctx, fs, src, snapshot.Options{}); err != nil {
		t.Fatal(err)
	}
	r, _ := newRegistry(t)
	sum, err := snapshot.Import(ctx, fs, "", r, snapshot.Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if sum.Added != 1 || !slices.Equal(sum.Invalid, []string{"BAD"}) {
		t.Errorf("summary = %+v", sum)
	}
}
