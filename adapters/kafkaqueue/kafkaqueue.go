// Package kafkaqueue implements the delivery queue on kafka. The group is the
// message key, so one group always lands on one partition and keeps
// submission order; the consumer-group commit is the acknowledgment.
// Deduplication of (group, dedupID) is enforced on the consuming side within
// a rolling window, since kafka itself has no produce-time dedup.
package kafkaqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/segmentio/kafka-go"
	"k8s.io/utils/clock"

	"github.com/andrewwormald/notifier"
)

const (
	headerGroup   = "group"
	headerDedupID = "dedup_id"

	defaultDedupWindow = 5 * time.Minute
)

type Queue struct {
	writer *kafka.Writer
	reader *kafka.Reader

	clock       clock.PassiveClock
	dedupWindow time.Duration

	mu       sync.Mutex
	inflight map[string]kafka.Message
	seen     map[string]time.Time
	attempts map[string]int
	seq      int
}

type Option func(*Queue)

func WithClock(c clock.PassiveClock) Option {
	return func(q *Queue) {
		q.clock = c
	}
}

func WithDedupWindow(d time.Duration) Option {
	return func(q *Queue) {
		q.dedupWindow = d
	}
}

func New(brokers []string, topic, consumerGroup string, opts ...Option) *Queue {
	q := &Queue{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: consumerGroup,
			Topic:   topic,
		}),
		clock:       clock.RealClock{},
		dedupWindow: defaultDedupWindow,
		inflight:    make(map[string]kafka.Message),
		seen:        make(map[string]time.Time),
		attempts:    make(map[string]int),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

var _ notifier.Queue = (*Queue)(nil)

func (q *Queue) Send(ctx context.Context, m notifier.Message) error {
	err := q.writer.WriteMessages(ctx, marshalMessage(m))
	if err != nil {
		return errors.Wrap(err, "write kafka message", j.MKV{
			"group":    m.Group,
			"dedup_id": m.DedupID,
		})
	}

	return nil
}

func (q *Queue) Receive(ctx context.Context) (*notifier.Delivery, error) {
	for {
		km, err := q.reader.FetchMessage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "fetch kafka message")
		}

		m := unmarshalMessage(km)

		if q.isDuplicate(m) {
			// Drop and commit so the duplicate never redelivers.
			err = q.reader.CommitMessages(ctx, km)
			if err != nil {
				return nil, errors.Wrap(err, "commit duplicate")
			}

			continue
		}

		receiptID, attempt := q.register(km)

		return &notifier.Delivery{
			Message:   m,
			ReceiptID: receiptID,
			Attempt:   attempt,
		}, nil
	}
}

// register assigns a receipt for the fetched message and counts its delivery
// attempt. Attempts are counted per process; kafka itself does not carry a
// delivery count, so a restart resets them.
func (q *Queue) register(km kafka.Message) (receiptID string, attempt int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	receiptID = fmt.Sprintf("kafka-%d", q.seq)
	q.inflight[receiptID] = km

	key := attemptKey(km)
	q.attempts[key]++
	return receiptID, q.attempts[key]
}

func (q *Queue) release(receiptID string) (kafka.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	km, ok := q.inflight[receiptID]
	if ok {
		delete(q.inflight, receiptID)
		delete(q.attempts, attemptKey(km))
	}

	return km, ok
}

func (q *Queue) Delete(ctx context.Context, receiptID string) error {
	km, ok := q.release(receiptID)
	if !ok {
		return errors.Wrap(notifier.ErrReceiptNotFound, receiptID)
	}

	err := q.reader.CommitMessages(ctx, km)
	if err != nil {
		return errors.Wrap(err, "commit kafka message", j.KV("receipt_id", receiptID))
	}

	return nil
}

func (q *Queue) Close() error {
	werr := q.writer.Close()
	rerr := q.reader.Close()
	if werr != nil {
		return werr
	}

	return rerr
}

func (q *Queue) isDuplicate(m notifier.Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()

	for k, expiry := range q.seen {
		if !now.Before(expiry) {
			delete(q.seen, k)
		}
	}

	key := m.Group + "/" + m.DedupID

	if expiry, ok := q.seen[key]; ok && now.Before(expiry) {
		return true
	}

	q.seen[key] = now.Add(q.dedupWindow)
	return false
}

func attemptKey(km kafka.Message) string {
	return fmt.Sprintf("%s/%d/%d", km.Topic, km.Partition, km.Offset)
}

func marshalMessage(m notifier.Message) kafka.Message {
	return kafka.Message{
		Key:   []byte(m.Group),
		Value: m.Body,
		Headers: []kafka.Header{
			{Key: headerGroup, Value: []byte(m.Group)},
			{Key: headerDedupID, Value: []byte(m.DedupID)},
		},
	}
}

func unmarshalMessage(km kafka.Message) notifier.Message {
	m := notifier.Message{
		Body:  km.Value,
		Group: string(km.Key),
	}

	for _, h := range km.Headers {
		switch h.Key {
		case headerGroup:
			m.Group = string(h.Value)
		case headerDedupID:
			m.DedupID = string(h.Value)
		}
	}

	return m
}
