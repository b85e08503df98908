// Package memstore provides in-memory implementations of the record and
// template stores, used for testing and local development.
package memstore

import (
	"context"
	"sync"

	"github.com/luno/jettison/errors"

	"github.com/andrewwormald/notifier"
)

func New() *Store {
	return &Store{
		records:   make(map[string]notifier.Record),
		snapshots: make(map[string][]notifier.Record),
	}
}

type Store struct {
	mu        sync.Mutex
	records   map[string]notifier.Record
	order     []string
	snapshots map[string][]notifier.Record
}

var _ notifier.RecordStore = (*Store)(nil)

func (s *Store) Store(ctx context.Context, r *notifier.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store(*r)
	return nil
}

func (s *Store) BatchStore(ctx context.Context, rs []notifier.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rs {
		s.store(r)
	}

	return nil
}

func (s *Store) store(r notifier.Record) {
	if _, ok := s.records[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}

	s.records[r.ID] = r
	s.snapshots[r.ID] = append(s.snapshots[r.ID], r)
}

func (s *Store) Lookup(ctx context.Context, id string) (*notifier.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil, errors.Wrap(notifier.ErrRecordNotFound, id)
	}

	return &r, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]notifier.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []notifier.Record
	for _, id := range s.order {
		if limit > 0 && len(out) >= limit {
			break
		}

		out = append(out, s.records[id])
	}

	return out, nil
}

// Snapshots returns every stored version of the record, in write order.
func (s *Store) Snapshots(id string) []notifier.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]notifier.Record, len(s.snapshots[id]))
	copy(out, s.snapshots[id])
	return out
}

func NewTemplateStore() *TemplateStore {
	return &TemplateStore{
		items: make(map[string]string),
	}
}

type TemplateStore struct {
	mu    sync.Mutex
	items map[string]string
	order []string
}

var _ notifier.TemplateStore = (*TemplateStore)(nil)

func (s *TemplateStore) ListKeys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.order))
	copy(out, s.order)
	return out, nil
}

func (s *TemplateStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	body, ok := s.items[key]
	if !ok {
		return "", errors.Wrap(notifier.ErrTemplateNotFound, key)
	}

	return body, nil
}

func (s *TemplateStore) Put(ctx context.Context, key string, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		s.order = append(s.order, key)
	}

	s.items[key] = body
	return nil
}
