package notifier

import (
	"context"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"
)

// RecordStore is the key-value store holding records by id. Store and
// BatchStore must be idempotent upserts: re-storing an id overwrites the
// existing entity and never creates a duplicate.
type RecordStore interface {
	Store(ctx context.Context, r *Record) error
	// BatchStore persists all records in one operation. A failure means none
	// of the records can be assumed written.
	BatchStore(ctx context.Context, rs []Record) error
	// Lookup returns the record for the id or ErrRecordNotFound.
	Lookup(ctx context.Context, id string) (*Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
}

// StatusRecorder finalises a record's status with an idempotent upsert of the
// full record. Calling it repeatedly with the same terminal status is safe.
type StatusRecorder struct {
	store RecordStore
	clock clock.PassiveClock
}

func NewStatusRecorder(store RecordStore) *StatusRecorder {
	return &StatusRecorder{
		store: store,
		clock: clock.RealClock{},
	}
}

func (s *StatusRecorder) Update(ctx context.Context, r Record, status Status) (Record, error) {
	r.Status = status
	r.UpdatedAt = s.clock.Now()

	err := s.store.Store(ctx, &r)
	if err != nil {
		return Record{}, errors.Wrap(err, "update record status", j.MKV{
			"record_id": r.ID,
			"status":    status.String(),
		})
	}

	return r, nil
}
