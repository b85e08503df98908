package notifier_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clock_testing "k8s.io/utils/clock/testing"

	"github.com/andrewwormald/notifier"
	"github.com/andrewwormald/notifier/adapters/memqueue"
	"github.com/andrewwormald/notifier/adapters/memstore"
)

type consumerFixture struct {
	store    *memstore.Store
	queue    *memqueue.Queue
	mailer   *spyMailer
	clock    *clock_testing.FakeClock
	consumer *notifier.Consumer
	ingester *notifier.Ingester
}

func setupConsumer(t *testing.T, seed bool) *consumerFixture {
	f := &consumerFixture{
		store:  memstore.New(),
		queue:  memqueue.New(),
		mailer: &spyMailer{},
		clock:  clock_testing.NewFakeClock(time.Now()),
	}

	templates := memstore.NewTemplateStore()
	if seed {
		err := notifier.NewTemplateSeeder(templates).SeedAll(context.Background())
		require.NoError(t, err)
	}

	engine, err := notifier.NewDeliveryWorkflow(notifier.Deps{
		Store:     f.store,
		Templates: templates,
		Mailer:    f.mailer,
	}, notifier.WithEngineClock(f.clock))
	require.NoError(t, err)

	f.consumer = notifier.NewConsumer(f.queue, engine)
	f.ingester = notifier.NewIngester(f.store, f.queue)

	t.Cleanup(f.consumer.Stop)
	return f
}

// releasePauses steps the engine clock through post-step delays until the
// record settles in a terminal status.
func (f *consumerFixture) awaitTerminal(t *testing.T, id string) notifier.Record {
	var r notifier.Record
	require.Eventually(t, func() bool {
		if f.clock.HasWaiters() {
			f.clock.Step(5 * time.Second)
		}

		stored, err := f.store.Lookup(context.Background(), id)
		if err != nil {
			return false
		}

		r = *stored
		return r.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)

	return r
}

func TestConsumerDeliversRecord(t *testing.T) {
	f := setupConsumer(t, true)
	ctx := context.Background()

	f.consumer.Run(ctx)

	_, err := f.ingester.Submit(ctx, notifier.Inbound{
		ID:   "t1",
		Type: notifier.TypeTimesheet,
		Data: map[string]any{"name": "Pavel", "hoursMissed": 8},
		Metadata: notifier.Metadata{
			EmailRecipient: "pavel@example.com",
		},
	})
	require.NoError(t, err)

	r := f.awaitTerminal(t, "t1")
	require.Equal(t, notifier.StatusSendSuccess, r.Status)
	require.Len(t, f.mailer.emails(), 1)
	require.Equal(t, 0, f.queue.Depth())
}

func TestConsumerSettlesFailureViaStatus(t *testing.T) {
	f := setupConsumer(t, true)
	ctx := context.Background()

	f.consumer.Run(ctx)

	_, err := f.ingester.Submit(ctx, notifier.Inbound{
		ID:   "t2",
		Type: notifier.TypeTimesheet,
		Data: map[string]any{"name": "Pavel", "hoursMissed": 0},
	})
	require.NoError(t, err)

	r := f.awaitTerminal(t, "t2")
	require.Equal(t, notifier.StatusValidationError, r.Status)
	require.Empty(t, f.mailer.emails())

	// The delivery was acknowledged before the workflow ran, so the failed
	// execution is not redelivered.
	require.Equal(t, 0, f.queue.Depth())
	require.Empty(t, f.queue.DeadLetters())
}

func TestConsumerProcessesGroupInOrder(t *testing.T) {
	f := setupConsumer(t, true)
	ctx := context.Background()

	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		_, err := f.ingester.Submit(ctx, notifier.Inbound{
			ID:   id,
			Type: notifier.TypeTimesheet,
			Data: map[string]any{"name": id, "hoursMissed": 1},
		})
		require.NoError(t, err)
	}

	f.consumer.Run(ctx)

	for _, id := range ids {
		r := f.awaitTerminal(t, id)
		require.Equal(t, notifier.StatusSendSuccess, r.Status)
	}

	emails := f.mailer.emails()
	require.Len(t, emails, 3)
	require.Contains(t, emails[0].Body, "Dear a,")
	require.Contains(t, emails[1].Body, "Dear b,")
	require.Contains(t, emails[2].Body, "Dear c,")
}

func TestConsumerStopIsIdempotent(t *testing.T) {
	f := setupConsumer(t, false)

	f.consumer.Run(context.Background())
	f.consumer.Stop()
	f.consumer.Stop()
}
