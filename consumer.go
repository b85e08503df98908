package notifier

import (
	"context"
	"sync"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
	"k8s.io/utils/clock"

	"github.com/andrewwormald/notifier/internal/metrics"
)

const defaultErrBackOff = time.Second

// Consumer drains the delivery queue and starts one workflow execution per
// delivery. The source message is deleted before the execution starts, so
// queue acknowledgment is decoupled from the workflow outcome; a failed
// execution settles through the record's status, not through redelivery.
type Consumer struct {
	queue  Queue
	engine *Engine

	clock         clock.Clock
	errBackOff    time.Duration
	parallelCount int

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

type ConsumerOption func(*Consumer)

func WithParallelCount(n int) ConsumerOption {
	return func(c *Consumer) {
		c.parallelCount = n
	}
}

func WithErrBackOff(d time.Duration) ConsumerOption {
	return func(c *Consumer) {
		c.errBackOff = d
	}
}

func WithConsumerClock(cl clock.Clock) ConsumerOption {
	return func(c *Consumer) {
		c.clock = cl
	}
}

func NewConsumer(queue Queue, engine *Engine, opts ...ConsumerOption) *Consumer {
	c := &Consumer{
		queue:         queue,
		engine:        engine,
		clock:         clock.RealClock{},
		errBackOff:    defaultErrBackOff,
		parallelCount: 1,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Run starts the background workers. Subsequent calls are noop.
func (c *Consumer) Run(ctx context.Context) {
	c.once.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		c.cancel = cancel

		for i := 0; i < c.parallelCount; i++ {
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.consumeForever(ctx)
			}()
		}
	})
}

// Stop cancels the workers and waits for them to drain.
func (c *Consumer) Stop() {
	if c.cancel == nil {
		return
	}

	c.cancel()
	c.wg.Wait()
}

func (c *Consumer) consumeForever(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		err := c.consumeOne(ctx)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		} else if err != nil {
			log.Error(ctx, errors.Wrap(err, "", j.KV("workflow", c.engine.Name())))
			metrics.ConsumerErrors.WithLabelValues(c.engine.Name()).Inc()

			t := c.clock.NewTimer(c.errBackOff)
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C():
			}
		}
	}
}

func (c *Consumer) consumeOne(ctx context.Context) error {
	d, err := c.queue.Receive(ctx)
	if err != nil {
		return err
	}

	// Acknowledge before executing so a slow or failing workflow never
	// blocks the group or triggers redelivery.
	err = c.queue.Delete(ctx, d.ReceiptID)
	if err != nil {
		return errors.Wrap(err, "delete delivery", j.KV("receipt_id", d.ReceiptID))
	}

	r, err := UnmarshalRecord(d.Body)
	if err != nil {
		return errors.Wrap(err, "unmarshal queued record", j.MKV{
			"group":    d.Group,
			"dedup_id": d.DedupID,
		})
	}

	_, err = c.engine.Execute(ctx, r)
	if err != nil {
		// Workflow failures settle via the record status; log for operators.
		log.Error(ctx, errors.Wrap(err, "", j.MKV{
			"record_id": r.ID,
			"group":     d.Group,
		}))
	}

	return nil
}
