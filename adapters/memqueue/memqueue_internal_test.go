package memqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clock_testing "k8s.io/utils/clock/testing"

	"github.com/andrewwormald/notifier"
)

func TestDedupEntriesPruned(t *testing.T) {
	ctx := context.Background()
	fc := clock_testing.NewFakeClock(time.Now())
	q := New(WithClock(fc), WithDedupWindow(5*time.Minute))

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, q.Send(ctx, notifier.Message{Group: "g", DedupID: id}))
	}
	require.Len(t, q.dedup, 3)

	fc.Step(5*time.Minute + time.Second)

	require.NoError(t, q.Send(ctx, notifier.Message{Group: "g", DedupID: "4"}))
	require.Len(t, q.dedup, 1)
}
