package kafkaqueue

import (
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	clock_testing "k8s.io/utils/clock/testing"

	"github.com/andrewwormald/notifier"
)

func TestMessageRoundTrip(t *testing.T) {
	m := notifier.Message{
		Body:    []byte(`{"id":"a"}`),
		Group:   "timesheet",
		DedupID: "a",
	}

	km := marshalMessage(m)
	require.Equal(t, []byte("timesheet"), km.Key)

	require.Equal(t, m, unmarshalMessage(km))
}

func TestUnmarshalWithoutHeadersFallsBackToKey(t *testing.T) {
	km := kafka.Message{
		Key:   []byte("timesheet"),
		Value: []byte("body"),
	}

	m := unmarshalMessage(km)
	require.Equal(t, "timesheet", m.Group)
	require.Empty(t, m.DedupID)
	require.Equal(t, []byte("body"), m.Body)
}

func TestAttemptCounting(t *testing.T) {
	q := &Queue{
		inflight: make(map[string]kafka.Message),
		attempts: make(map[string]int),
	}

	km := kafka.Message{Topic: "t", Partition: 0, Offset: 7}

	// The same uncommitted message refetched counts up.
	receipt1, attempt := q.register(km)
	require.Equal(t, 1, attempt)

	_, attempt = q.register(km)
	require.Equal(t, 2, attempt)

	// A different offset counts independently.
	other := kafka.Message{Topic: "t", Partition: 0, Offset: 8}
	_, attempt = q.register(other)
	require.Equal(t, 1, attempt)

	// Committing clears the count; a later fetch of the same offset would
	// start over.
	_, ok := q.release(receipt1)
	require.True(t, ok)

	_, attempt = q.register(km)
	require.Equal(t, 1, attempt)

	_, ok = q.release("kafka-404")
	require.False(t, ok)
}

func TestIsDuplicate(t *testing.T) {
	fc := clock_testing.NewFakeClock(time.Now())
	q := &Queue{
		clock:       fc,
		dedupWindow: 5 * time.Minute,
		seen:        make(map[string]time.Time),
	}

	m := notifier.Message{Group: "g", DedupID: "1"}

	require.False(t, q.isDuplicate(m))
	require.True(t, q.isDuplicate(m))

	require.False(t, q.isDuplicate(notifier.Message{Group: "g", DedupID: "2"}))
	require.False(t, q.isDuplicate(notifier.Message{Group: "h", DedupID: "1"}))

	fc.Step(5*time.Minute + time.Second)
	require.False(t, q.isDuplicate(m))

	// Expired entries are pruned rather than kept forever; only the
	// re-inserted key remains.
	require.Len(t, q.seen, 1)
}
