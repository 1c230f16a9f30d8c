// Package index implements the in-memory multi-key container that holds
// the registry's working set.
//
// An Index keeps one record per id and maintains, in lock-step:
//
//   - a unique B-tree ordered by id,
//   - non-unique B-trees ordered by (name, id), (modality, id) and (sex, id),
//   - a doubly linked list in insertion order.
//
// Records are stored by value; every accessor returns copies, so callers can
// never reach into the index and desynchronize its views. An Index is not
// safe for concurrent use.
package index

import (
	"container/list"
	"errors"
	"iter"
	"strings"

	"github.com/google/btree"

	"github.com/anniel0/proyectoArquitecturaDelComputador/pkg/study"
)

// ErrDuplicateKey is returned by Insert when the id is already present.
var ErrDuplicateKey = errors.New("index: duplicate key")

const btreeDegree = 32

type entry struct {
	rec  study.Record
	elem *list.Element // position in Index.order
}

type secondaryKey struct {
	value string
	id    string
}

func lessEntry(a, b *entry) bool { return a.rec.ID < b.rec.ID }

func lessSecondary(a, b secondaryKey) bool {
	if a.value != b.value {
		return a.value < b.value
	}
	return a.id < b.id
}

// Index is the multi-key record container.
type Index struct {
	byID      *btree.BTreeG[*entry]
	secondary map[study.Field]*btree.BTreeG[secondaryKey]
	order     *list.List // of *entry
	totalSize int64
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		byID: btree.NewG(btreeDegree, lessEntry),
		secondary: map[study.Field]*btree.BTreeG[secondaryKey]{
			study.FieldName:     btree.NewG(btreeDegree, lessSecondary),
			study.FieldModality: btree.NewG(btreeDegree, lessSecondary),
			study.FieldSex:      btree.NewG(btreeDegree, lessSecondary),
		},
		order: list.New(),
	}
}

func probe(id string) *entry {
	return &entry{rec: study.Record{ID: id}}
}

// Insert adds r to every view. It returns ErrDuplicateKey, leaving the index
// untouched, if r.ID is already present.
func (x *Index) Insert(r study.Record) error {
	if x.byID.Has(probe(r.ID)) {
		return ErrDuplicateKey
	}
	e := &entry{rec: r}
	e.elem = x.order.PushBack(e)
	x.byID.ReplaceOrInsert(e)
	for f, t := range x.secondary {
		t.ReplaceOrInsert(secondaryKey{value: f.Of(r), id: r.ID})
	}
	x.totalSize += r.SizeBytes
	return nil
}

// Get returns a copy of the record with the given id.
func (x *Index) Get(id string) (study.Record, bool) {
	e, ok := x.byID.Get(probe(id))
	if !ok {
		return study.Record{}, false
	}
	return e.rec, true
}

// Has reports whether id is present.
func (x *Index) Has(id string) bool {
	return x.byID.Has(probe(id))
}

// Exact returns an owned copy of the record with the given id, or nil. The
// copy stays valid after the record is deleted from the index.
func (x *Index) Exact(id string) *study.Record {
	r, ok := x.Get(id)
	if !ok {
		return nil
	}
	return &r
}

// FindByField looks up the equal-range bucket of records whose field value
// is exactly query, then keeps those whose lower-cased value contains the
// lower-cased query. Because the bucket is selected case-sensitively, a
// partial or differently-cased query finds nothing here; full substring
// search is only offered by the durable tier.
//
// Results are ordered by (field value, id).
func (x *Index) FindByField(f study.Field, query string) []study.Record {
	t, ok := x.secondary[f]
	if !ok {
		return nil
	}
	needle := strings.ToLower(query)
	var out []study.Record
	t.AscendGreaterOrEqual(secondaryKey{value: query}, func(k secondaryKey) bool {
		if k.value != query {
			return false
		}
		if strings.Contains(strings.ToLower(k.value), needle) {
			if e, ok := x.byID.Get(probe(k.id)); ok {
				out = append(out, e.rec)
			}
		}
		return true
	})
	return out
}

// Delete removes the record with the given id from every view and reports
// whether it existed.
func (x *Index) Delete(id string) bool {
	e, ok := x.byID.Get(probe(id))
	if !ok {
		return false
	}
	x.remove(e)
	return true
}

// DeleteAt removes the i-th record in insertion order (0-based) and returns
// it. Out-of-range positions report false.
func (x *Index) DeleteAt(i int) (study.Record, bool) {
	if i < 0 || i >= x.order.Len() {
		return study.Record{}, false
	}
	el := x.order.Front()
	for ; i > 0; i-- {
		el = el.Next()
	}
	e := el.Value.(*entry)
	x.remove(e)
	return e.rec, true
}

func (x *Index) remove(e *entry) {
	x.byID.Delete(e)
	for f, t := range x.secondary {
		t.Delete(secondaryKey{value: f.Of(e.rec), id: e.rec.ID})
	}
	x.order.Remove(e.elem)
	x.totalSize -= e.rec.SizeBytes
}

// All yields records in insertion order. The index must not be modified
// during iteration.
func (x *Index) All() iter.Seq[study.Record] {
	return func(yield func(study.Record) bool) {
		for el := x.order.Front(); el != nil; el = el.Next() {
			if !yield(el.Value.(*entry).rec) {
				return
			}
		}
	}
}

// Records returns all records in insertion order.
func (x *Index) Records() []study.Record {
	out := make([]study.Record, 0, x.order.Len())
	for r := range x.All() {
		out = append(out, r)
	}
	return out
}

// IDs returns every id in ascending order.
func (x *Index) IDs() []string {
	out := make([]string, 0, x.byID.Len())
	x.byID.Ascend(func(e *entry) bool {
		out = append(out, e.rec.ID)
		return true
	})
	return out
}

// Clear removes every record.
func (x *Index) Clear() {
	x.byID.Clear(false)
	for _, t := range x.secondary {
		t.Clear(false)
	}
	x.order.Init()
	x.totalSize = 0
}

// Len returns the number of records.
func (x *Index) Len() int { return x.byID.Len() }

// TotalSizeBytes returns the sum of SizeBytes over all records.
func (x *Index) TotalSizeBytes() int64 { return x.totalSize }
