package notifier_test

import (
	"encoding/json"
	"testing"

	"github.com/luno/jettison/errors"
	"github.com/stretchr/testify/require"

	"github.com/andrewwormald/notifier"
)

func TestStatusString(t *testing.T) {
	require.Equal(t, "PENDING", notifier.StatusPending.String())
	require.Equal(t, "VALIDATION_ERROR", notifier.StatusValidationError.String())
	require.Equal(t, "READ_ERROR", notifier.StatusReadError.String())
	require.Equal(t, "SEND_ERROR", notifier.StatusSendError.String())
	require.Equal(t, "SEND_SUCCESS", notifier.StatusSendSuccess.String())
	require.Equal(t, "UNKNOWN", notifier.StatusUnknown.String())
}

func TestStatusTerminal(t *testing.T) {
	require.False(t, notifier.StatusUnknown.Terminal())
	require.False(t, notifier.StatusPending.Terminal())
	require.True(t, notifier.StatusValidationError.Terminal())
	require.True(t, notifier.StatusReadError.Terminal())
	require.True(t, notifier.StatusSendError.Terminal())
	require.True(t, notifier.StatusSendSuccess.Terminal())
}

func TestStatusTextRoundTrip(t *testing.T) {
	b, err := json.Marshal(notifier.StatusSendSuccess)
	require.NoError(t, err)
	require.Equal(t, `"SEND_SUCCESS"`, string(b))

	var s notifier.Status
	err = json.Unmarshal(b, &s)
	require.NoError(t, err)
	require.Equal(t, notifier.StatusSendSuccess, s)

	err = s.UnmarshalText([]byte("NOT_A_STATUS"))
	require.Error(t, err)
	require.True(t, errors.Is(err, notifier.ErrUnknownStatus))
}
