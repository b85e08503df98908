// Package memqueue is an in-memory delivery queue with the semantics of a
// deduplicating FIFO queue: per-group ordering with at most one in-flight
// delivery per group, a dedup window on (group, dedupID), a visibility
// timeout on un-acknowledged deliveries, and a dead-letter area once the
// bounded receive count is exhausted.
package memqueue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luno/jettison/errors"
	"k8s.io/utils/clock"

	"github.com/andrewwormald/notifier"
	"github.com/andrewwormald/notifier/internal/metrics"
)

const queueLabel = "memqueue"

const (
	defaultVisibilityTimeout = 2 * time.Minute
	defaultDedupWindow       = 5 * time.Minute
	defaultMaxReceive        = 3

	pollPeriod = 10 * time.Millisecond
)

type message struct {
	body    []byte
	group   string
	dedupID string

	receiveCount   int
	receiptID      string
	invisibleUntil time.Time
}

type Queue struct {
	mu sync.Mutex

	clock       clock.Clock
	visibility  time.Duration
	dedupWindow time.Duration
	maxReceive  int

	groups     map[string][]*message
	groupOrder []string
	inflight   map[string]*message
	dedup      map[string]time.Time
	dead       []notifier.Message
	seq        int
}

type Option func(*Queue)

func WithClock(c clock.Clock) Option {
	return func(q *Queue) {
		q.clock = c
	}
}

func WithVisibilityTimeout(d time.Duration) Option {
	return func(q *Queue) {
		q.visibility = d
	}
}

func WithDedupWindow(d time.Duration) Option {
	return func(q *Queue) {
		q.dedupWindow = d
	}
}

func WithMaxReceive(n int) Option {
	return func(q *Queue) {
		q.maxReceive = n
	}
}

func New(opts ...Option) *Queue {
	q := &Queue{
		clock:       clock.RealClock{},
		visibility:  defaultVisibilityTimeout,
		dedupWindow: defaultDedupWindow,
		maxReceive:  defaultMaxReceive,
		groups:      make(map[string][]*message),
		inflight:    make(map[string]*message),
		dedup:       make(map[string]time.Time),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

var _ notifier.Queue = (*Queue)(nil)

func (q *Queue) Send(ctx context.Context, m notifier.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()

	for k, expiry := range q.dedup {
		if !now.Before(expiry) {
			delete(q.dedup, k)
		}
	}

	key := dedupKey(m.Group, m.DedupID)
	if expiry, ok := q.dedup[key]; ok && now.Before(expiry) {
		// Duplicate within the window: discard silently.
		return nil
	}
	q.dedup[key] = now.Add(q.dedupWindow)

	if _, ok := q.groups[m.Group]; !ok {
		q.groupOrder = append(q.groupOrder, m.Group)
	}

	q.groups[m.Group] = append(q.groups[m.Group], &message{
		body:    m.Body,
		group:   m.Group,
		dedupID: m.DedupID,
	})
	metrics.QueueDepth.WithLabelValues(queueLabel).Inc()

	return nil
}

func (q *Queue) Receive(ctx context.Context) (*notifier.Delivery, error) {
	for ctx.Err() == nil {
		d := q.tryReceive()
		if d != nil {
			return d, nil
		}

		// Suspend on the clock between polls so a fake clock controls the
		// wait in tests.
		t := q.clock.NewTimer(pollPeriod)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C():
		}
	}

	return nil, ctx.Err()
}

func (q *Queue) tryReceive() *notifier.Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.clock.Now()

	for _, group := range q.groupOrder {
		msgs := q.groups[group]
		if len(msgs) == 0 {
			continue
		}

		// Only the head of a group is ever deliverable: one in-flight
		// message per group preserves submission order.
		head := msgs[0]

		if head.receiptID != "" {
			if now.Before(head.invisibleUntil) {
				continue
			}

			// Visibility lapsed without a delete.
			delete(q.inflight, head.receiptID)
			head.receiptID = ""

			if head.receiveCount >= q.maxReceive {
				q.groups[group] = msgs[1:]
				q.dead = append(q.dead, notifier.Message{
					Body:    head.body,
					Group:   head.group,
					DedupID: head.dedupID,
				})
				metrics.QueueDepth.WithLabelValues(queueLabel).Dec()
				continue
			}
		}

		head.receiveCount++
		q.seq++
		head.receiptID = fmt.Sprintf("receipt-%d", q.seq)
		head.invisibleUntil = now.Add(q.visibility)
		q.inflight[head.receiptID] = head

		return &notifier.Delivery{
			Message: notifier.Message{
				Body:    head.body,
				Group:   head.group,
				DedupID: head.dedupID,
			},
			ReceiptID: head.receiptID,
			Attempt:   head.receiveCount,
		}
	}

	return nil
}

func (q *Queue) Delete(ctx context.Context, receiptID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	msg, ok := q.inflight[receiptID]
	if !ok {
		return errors.Wrap(notifier.ErrReceiptNotFound, receiptID)
	}

	delete(q.inflight, receiptID)

	msgs := q.groups[msg.group]
	for i, m := range msgs {
		if m == msg {
			q.groups[msg.group] = append(msgs[:i], msgs[i+1:]...)
			metrics.QueueDepth.WithLabelValues(queueLabel).Dec()
			break
		}
	}

	return nil
}

// DeadLetters returns the messages moved to the dead-letter area for manual
// inspection.
func (q *Queue) DeadLetters() []notifier.Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]notifier.Message, len(q.dead))
	copy(out, q.dead)
	return out
}

// Depth returns the number of queued messages across all groups, including
// in-flight deliveries.
func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n int
	for _, msgs := range q.groups {
		n += len(msgs)
	}

	return n
}

func dedupKey(group, dedupID string) string {
	return group + "/" + dedupID
}
