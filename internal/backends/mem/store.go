// Package mem is an in-memory DocStore used by the unit tests and the "mem"
// backend for local runs. No durability, no cross-process visibility.
package mem

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"

	"profiledir/internal/ports"
	"profiledir/internal/types"
)

type Store struct {
	mu    sync.RWMutex
	colls map[string]map[string]types.Document
	ops   atomic.Int64
}

func NewStore() *Store {
	return &Store{colls: make(map[string]map[string]types.Document)}
}

// Ops counts every store operation served. Tests use it to assert that a
// rejected request never reached the store.
func (s *Store) Ops() int64 {
	return s.ops.Load()
}

// Len reports the number of documents in a collection.
func (s *Store) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.colls[collection])
}

func clone(d types.Document) types.Document {
	out := make(types.Document, len(d))
	for k, v := range d {
		if ss, ok := v.([]string); ok {
			cp := make([]string, len(ss))
			copy(cp, ss)
			out[k] = cp
			continue
		}
		out[k] = v
	}
	return out
}

func (s *Store) Get(_ context.Context, collection, key string) (types.Document, error) {
	s.ops.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.colls[collection][key]
	if !ok {
		return nil, nil
	}
	return clone(doc), nil
}

func (s *Store) Set(_ context.Context, collection, key string, fields types.Document, merge bool) error {
	s.ops.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.colls[collection]
	if coll == nil {
		coll = make(map[string]types.Document)
		s.colls[collection] = coll
	}
	existing, ok := coll[key]
	if !merge || !ok {
		coll[key] = clone(fields)
		return nil
	}
	for k, v := range clone(fields) {
		existing[k] = v
	}
	return nil
}

func (s *Store) Delete(_ context.Context, collection, key string) error {
	s.ops.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.colls[collection], key)
	return nil
}

func matches(doc types.Document, field string, op ports.Operator, value any) bool {
	switch op {
	case ports.Equals:
		return reflect.DeepEqual(doc[field], value)
	case ports.ArrayContains:
		for _, e := range types.StrSlice(doc, field) {
			if e == value {
				return true
			}
		}
	}
	return false
}

func (s *Store) Query(_ context.Context, collection, field string, op ports.Operator, value any) ([]ports.Doc, error) {
	s.ops.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ports.Doc
	for key, doc := range s.colls[collection] {
		if matches(doc, field, op, value) {
			out = append(out, ports.Doc{Key: key, Fields: clone(doc)})
		}
	}
	return out, nil
}

func (s *Store) All(_ context.Context, collection string) ([]ports.Doc, error) {
	s.ops.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.Doc, 0, len(s.colls[collection]))
	for key, doc := range s.colls[collection] {
		out = append(out, ports.Doc{Key: key, Fields: clone(doc)})
	}
	return out, nil
}
