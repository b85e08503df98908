package notifier

import (
	"context"

	"github.com/google/uuid"
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"k8s.io/utils/clock"

	"github.com/andrewwormald/notifier/internal/metrics"
)

// Inbound is the external record schema.
type Inbound struct {
	ID       string         `json:"id,omitempty"`
	Type     string         `json:"type"`
	Data     map[string]any `json:"data"`
	Metadata Metadata       `json:"metadata"`
}

// Ingester records inbound payloads and enqueues them for delivery.
type Ingester struct {
	store RecordStore
	queue Queue
	clock clock.PassiveClock
}

type IngesterOption func(*Ingester)

func WithIngesterClock(c clock.PassiveClock) IngesterOption {
	return func(i *Ingester) {
		i.clock = c
	}
}

func NewIngester(store RecordStore, queue Queue, opts ...IngesterOption) *Ingester {
	i := &Ingester{
		store: store,
		queue: queue,
		clock: clock.RealClock{},
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Submit stamps the payload PENDING, persists it, and enqueues it with
// group = type and dedupID = id. The write decides the caller's response; an
// enqueue failure is logged and recovered by redelivery of a later
// submission, never surfaced to the caller.
func (i *Ingester) Submit(ctx context.Context, in Inbound) (*Record, error) {
	r := i.newRecord(in)

	err := i.store.Store(ctx, &r)
	if err != nil {
		return nil, errors.Wrap(err, "store inbound record", j.KV("record_id", r.ID))
	}

	metrics.IngestedRecords.WithLabelValues(r.Type).Inc()

	i.enqueue(ctx, r)
	return &r, nil
}

// SubmitBatch stamps all payloads PENDING, persists them in one batch write,
// and on success enqueues each record individually with its own group and
// dedup id. A batch write failure aborts all enqueues for the batch.
func (i *Ingester) SubmitBatch(ctx context.Context, ins []Inbound) ([]Record, error) {
	rs := make([]Record, 0, len(ins))
	for _, in := range ins {
		rs = append(rs, i.newRecord(in))
	}

	err := i.store.BatchStore(ctx, rs)
	if err != nil {
		return nil, errors.Wrap(err, "batch store inbound records", j.KV("count", len(rs)))
	}

	for _, r := range rs {
		metrics.IngestedRecords.WithLabelValues(r.Type).Inc()
		i.enqueue(ctx, r)
	}

	return rs, nil
}

// SubmitScheduled persists a scheduled batch the same way SubmitBatch does,
// but enqueues each record under group = prefix + id with the dedup id equal
// to the group, so a source re-emitting the same entry within the dedup
// window is discarded by the queue.
func (i *Ingester) SubmitScheduled(ctx context.Context, prefix string, ins []Inbound) ([]Record, error) {
	rs := make([]Record, 0, len(ins))
	for _, in := range ins {
		rs = append(rs, i.newRecord(in))
	}

	err := i.store.BatchStore(ctx, rs)
	if err != nil {
		return nil, errors.Wrap(err, "batch store scheduled records", j.KV("count", len(rs)))
	}

	for _, r := range rs {
		metrics.IngestedRecords.WithLabelValues(r.Type).Inc()

		group := prefix + r.ID
		i.send(ctx, r, group, group)
	}

	return rs, nil
}

func (i *Ingester) enqueue(ctx context.Context, r Record) {
	group, dedupID := r.DedupKey()
	i.send(ctx, r, group, dedupID)
}

func (i *Ingester) send(ctx context.Context, r Record, group, dedupID string) {
	b, err := MarshalRecord(r)
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "marshal record for queue", j.KV("record_id", r.ID)))
		return
	}

	err = i.queue.Send(ctx, Message{
		Body:    b,
		Group:   group,
		DedupID: dedupID,
	})
	if err != nil {
		log.Error(ctx, errors.Wrap(err, "enqueue record", j.MKV{
			"record_id": r.ID,
			"group":     group,
		}))
	}
}

func (i *Ingester) newRecord(in Inbound) Record {
	id := in.ID
	if id == "" {
		id = uuid.New().String()
	}

	now := i.clock.Now()
	return Record{
		ID:        id,
		Type:      in.Type,
		Data:      in.Data,
		Metadata:  in.Metadata,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
