package registry_test

import (
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/durable"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/kv"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/registry"
	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
)

func newRegistry(t *testing.T, store kv.Store) *registry.Registry {
	t.Helper()
	r, err := registry.Open(context.Background(), registry.Options{
		Durable: durable.Options{KV: store},
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func newDegradedRegistry(t *testing.T, opts registry.Options) *registry.Registry {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	opts.Durable = durable.Options{URL: path}
	r, err := registry.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

func mk(id, name, modality, sex string) study.Record {
	return study.Record{ID: id, Name: name, StudyDateRaw: "20230115", Modality: modality, Sex: sex, SizeBytes: 10}
}

func TestAddDuplicate(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	r := newRegistry(t, store)

	res, err := r.Add(ctx, mk("P001", "Jane Doe", "CT", study.SexFeminine))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !res.Persisted {
		t.Fatal("first Add not persisted")
	}
	_, err = r.Add(ctx, mk("P001", "Someone Else", "MRI", study.SexMasculine))
	if !errors.Is(err, registry.ErrDuplicateKey) {
		t.Fatalf("second Add = %v, want ErrDuplicateKey", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
	got, _ := r.FindByID("P001")
	if got.Name != "Jane Doe" {
		t.Fatalf("duplicate Add changed memory: %+v", got)
	}
	raw, err := store.Get(ctx, "P001")
	if err != nil {
		t.Fatalf("kv Get: %v", err)
	}
	if string(raw) != "Jane Doe|20230115|CT|Feminine|10" {
		t.Fatalf("duplicate Add changed durable value: %q", raw)
	}
}

func TestAddRejectsInvalid(t *testing.T) {
	r := newRegistry(t, kv.NewMemory())
	if _, err := r.Add(context.Background(), study.Record{}); !errors.Is(err, study.ErrInvalidRecord) {
		t.Fatalf("Add empty = %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d", r.Len())
	}
}

func TestUniqueIDsOverManyAdds(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, kv.NewMemory())
	ids := []string{"a", "b", "a", "c", "b", "a", "d"}
	dups := 0
	for _, id := range ids {
		if _, err := r.Add(ctx, mk(id, "n", "CT", "X")); errors.Is(err, registry.ErrDuplicateKey) {
			dups++
		} else if err != nil {
			t.Fatalf("Add %s: %v", id, err)
		}
	}
	if r.Len() != 4 || dups != 3 {
		t.Fatalf("Len = %d dups = %d, want 4 and 3", r.Len(), dups)
	}
	seen := map[string]bool{}
	for _, rec := range r.Records() {
		if seen[rec.ID] {
			t.Fatalf("id %s stored twice", rec.ID)
		}
		seen[rec.ID] = true
	}
}

func TestDeleteByIDMirrors(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	r := newRegistry(t, store)
	if _, err := r.Add(ctx, mk("P001", "Jane", "CT", "F")); err != nil {
		t.Fatalf("Add: %v", err)
	}

	ok, err := r.DeleteByID(ctx, "P001")
	if err != nil || !ok {
		t.Fatalf("DeleteByID = %v, %v", ok, err)
	}
	if _, found := r.FindByID("P001"); found {
		t.Fatal("FindByID after delete found the record")
	}
	if _, err := store.Get(ctx, "P001"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("durable still has P001: %v", err)
	}

	ok, err = r.DeleteByID(ctx, "P001")
	if err != nil || ok {
		t.Fatalf("DeleteByID missing = %v, %v; want false, nil", ok, err)
	}
}

func TestDeleteByPosition(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	r := newRegistry(t, store)
	for _, id := range []string{"C", "A", "B"} {
		if _, err := r.Add(ctx, mk(id, "n", "CT", "F")); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	rec, ok, err := r.DeleteByPosition(ctx, 1)
	if err != nil || !ok || rec.ID != "A" {
		t.Fatalf("DeleteByPosition(1) = %+v, %v, %v", rec, ok, err)
	}
	if _, err := store.Get(ctx, "A"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("durable still has A: %v", err)
	}
	if _, ok, _ := r.DeleteByPosition(ctx, 5); ok {
		t.Fatal("DeleteByPosition out of range = true")
	}
	var got []string
	for _, rec := range r.Records() {
		got = append(got, rec.ID)
	}
	if !slices.Equal(got, []string{"C", "B"}) {
		t.Fatalf("Records = %v", got)
	}
}

func TestClearAllBothTiers(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, kv.NewMemory())
	for _, id := range []string{"1", "2", "3"} {
		if _, err := r.Add(ctx, mk(id, "n", "US", "O")); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := r.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll: %v", err)
	}
	n, err := r.DurableCount(ctx)
	if err != nil {
		t.Fatalf("DurableCount: %v", err)
	}
	if r.Len() != 0 || n != 0 || r.TotalSizeBytes() != 0 {
		t.Fatalf("after ClearAll: memory=%d durable=%d size=%d", r.Len(), n, r.TotalSizeBytes())
	}
}

func TestDegradedAddStillWorks(t *testing.T) {
	ctx := context.Background()
	r := newDegradedRegistry(t, registry.Options{})
	if r.DurableState() != durable.Degraded {
		t.Fatalf("DurableState = %v", r.DurableState())
	}
	res, err := r.Add(ctx, mk("P001", "Jane", "CT", "F"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Persisted {
		t.Fatal("Persisted = true on degraded tier")
	}
	rep, err := r.ConsistencyCheck(ctx)
	if err != nil {
		t.Fatalf("ConsistencyCheck: %v", err)
	}
	if rep.Status != registry.DurableBehind || rep.Memory != 1 || rep.Durable != 0 || rep.Connected {
		t.Fatalf("report = %+v, want durable-behind 1 vs 0", rep)
	}

	if ok, err := r.DeleteByID(ctx, "P001"); err != nil || !ok {
		t.Fatalf("DeleteByID degraded = %v, %v", ok, err)
	}
	if err := r.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll degraded: %v", err)
	}
}

func TestConsistencyStates(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	r := newRegistry(t, store)

	rep, _ := r.ConsistencyCheck(ctx)
	if rep.Status != registry.InSync {
		t.Fatalf("empty = %v", rep.Status)
	}

	if _, err := r.Add(ctx, mk("P001", "Jane", "CT", "F")); err != nil {
		t.Fatalf("Add: %v", err)
	}
	rep, _ = r.ConsistencyCheck(ctx)
	if rep.Status != registry.InSync || rep.StatusStr != "in-sync" {
		t.Fatalf("after add = %+v", rep)
	}

	// A record persisted by an earlier session puts durable ahead.
	if err := store.Set(ctx, "OLD", []byte("Old|20200101|XRAY|Other|5")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	rep, _ = r.ConsistencyCheck(ctx)
	if rep.Status != registry.DurableAhead || rep.Durable != 2 || rep.Memory != 1 {
		t.Fatalf("with extra durable record = %+v", rep)
	}
	// The check never reconciles.
	if r.Len() != 1 {
		t.Fatalf("ConsistencyCheck changed memory: Len = %d", r.Len())
	}
}

// failingKV accepts reads but rejects writes.
type failingKV struct {
	*kv.Memory
}

var errDisk = errors.New("disk full")

func (failingKV) Set(context.Context, string, []byte) error { return errDisk }

func TestDurableWriteFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	r, err := registry.Open(ctx, registry.Options{
		Durable: durable.Options{KV: failingKV{kv.NewMemory()}},
		Metrics: registry.NewMetrics(reg),
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()

	res, err := r.Add(ctx, mk("P001", "Jane", "CT", "F"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Persisted {
		t.Fatal("Persisted = true despite write failure")
	}
	if _, ok := r.FindByID("P001"); !ok {
		t.Fatal("record rolled back from memory")
	}
	rep, _ := r.ConsistencyCheck(ctx)
	if rep.Status != registry.DurableBehind {
		t.Fatalf("status = %v, want durable-behind", rep.Status)
	}
	if v := counterValue(t, reg, "add", "durable_error"); v != 1 {
		t.Fatalf("add/durable_error counter = %v, want 1", v)
	}
}

func TestStartupDoesNotRehydrate(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "db")

	first, err := registry.Open(ctx, registry.Options{Durable: durable.Options{URL: dir}})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, id := range []string{"P001", "P002"} {
		if _, err := first.Add(ctx, mk(id, "Jane", "CT", "F")); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := registry.Open(ctx, registry.Options{Durable: durable.Options{URL: dir}})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if second.Len() != 0 {
		t.Fatalf("Len after restart = %d, want 0", second.Len())
	}
	n, _ := second.DurableCount(ctx)
	if n != 2 {
		t.Fatalf("DurableCount after restart = %d, want 2", n)
	}
	// Re-ingesting a persisted id is allowed: memory is the uniqueness scope.
	if _, err := second.Add(ctx, mk("P001", "Jane", "CT", "F")); err != nil {
		t.Fatalf("re-Add after restart: %v", err)
	}
	if err := second.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	third, err := registry.Open(ctx, registry.Options{Durable: durable.Options{URL: dir}, Rehydrate: true})
	if err != nil {
		t.Fatalf("Open with Rehydrate: %v", err)
	}
	defer third.Close()
	if third.Len() != 2 {
		t.Fatalf("Len after rehydrate = %d, want 2", third.Len())
	}
	rep, _ := third.ConsistencyCheck(ctx)
	if rep.Status != registry.InSync {
		t.Fatalf("status after rehydrate = %v", rep.Status)
	}
}

func TestRehydrateSkipsMalformed(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemory()
	_ = store.Set(ctx, "good", []byte("A|20200101|CT|Other|1"))
	_ = store.Set(ctx, "bad", []byte("A|B"))
	r := newRegistry(t, store)
	n, err := r.Rehydrate(ctx)
	if err != nil {
		t.Fatalf("Rehydrate: %v", err)
	}
	if n != 1 || r.Len() != 1 {
		t.Fatalf("Rehydrate loaded %d, Len %d; want 1", n, r.Len())
	}
	// Running it again finds everything already present.
	if n, _ := r.Rehydrate(ctx); n != 0 {
		t.Fatalf("second Rehydrate loaded %d", n)
	}
}

func TestSearchDurable(t *testing.T) {
	ctx := context.Background()
	r := newRegistry(t, kv.NewMemory())
	if _, err := r.Add(ctx, mk("P001", "Jane Doe", "CT", study.SexFeminine)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, err := r.SearchDurable(ctx, "modality", "ct")
	if err != nil || len(got) != 1 || got[0].ID != "P001" {
		t.Fatalf("SearchDurable(modality, ct) = %+v, %v", got, err)
	}
	got, err = r.SearchDurable(ctx, "id", "P001")
	if err != nil || len(got) != 1 || got[0].Name != "Jane Doe" {
		t.Fatalf("SearchDurable(id, P001) = %+v, %v", got, err)
	}
	got, err = r.SearchDurable(ctx, "id", "p001")
	if err != nil || len(got) != 0 {
		t.Fatalf("SearchDurable(id, p001) = %+v, %v", got, err)
	}
	if _, err := r.SearchDurable(ctx, "date", "x"); err == nil {
		t.Fatal("SearchDurable(date) expected error")
	}

	// The same partial query misses in memory.
	if got := r.FindByField(study.FieldModality, "ct"); len(got) != 0 {
		t.Fatalf("FindByField(modality, ct) = %+v, want none", got)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, op, result string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "medstudy_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["op"] == op && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

// scanFailKV fails every List and records Close.
type scanFailKV struct {
	*kv.Memory
	closed *bool
}

func (s scanFailKV) List(context.Context, string) iter.Seq2[kv.Entry, error] {
	return func(yield func(kv.Entry, error) bool) {
		yield(kv.Entry{}, errDisk)
	}
}

func (s scanFailKV) Close() error {
	*s.closed = true
	return s.Memory.Close()
}

func TestOpenRehydrateFailureClosesStore(t *testing.T) {
	closed := false
	r, err := registry.Open(context.Background(), registry.Options{
		Durable:   durable.Options{KV: scanFailKV{Memory: kv.NewMemory(), closed: &closed}},
		Rehydrate: true,
	})
	if !errors.Is(err, errDisk) {
		t.Fatalf("Open err = %v, want %v", err, errDisk)
	}
	if r != nil {
		t.Fatalf("Open returned a registry on failure")
	}
	if !closed {
		t.Fatalf("durable store left open after failed rehydrate")
	}
}
