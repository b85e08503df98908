package notifier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewwormald/notifier"
)

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		record notifier.Record
		valid  bool
	}{
		{
			name: "timesheet with missed hours",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"name": "Pavel", "hoursMissed": 8},
			},
			valid: true,
		},
		{
			name: "timesheet with zero missed hours",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"name": "Pavel", "hoursMissed": 0},
			},
			valid: false,
		},
		{
			name: "timesheet with float hours from json",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"name": "Pavel", "hoursMissed": 2.5},
			},
			valid: true,
		},
		{
			name: "timesheet missing name",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"hoursMissed": 8},
			},
			valid: false,
		},
		{
			name: "timesheet with non numeric hours",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"name": "Pavel", "hoursMissed": "eight"},
			},
			valid: false,
		},
		{
			name: "feedback with all fields",
			record: notifier.Record{
				Type: notifier.TypeFeedback,
				Data: map[string]any{
					"name":          "Olga",
					"candidate":     "Ivan",
					"dateTime":      "2023-03-01 10:00",
					"interviewType": "Tech",
				},
			},
			valid: true,
		},
		{
			name: "feedback missing candidate",
			record: notifier.Record{
				Type: notifier.TypeFeedback,
				Data: map[string]any{
					"name":          "Olga",
					"dateTime":      "2023-03-01 10:00",
					"interviewType": "Tech",
				},
			},
			valid: false,
		},
		{
			name: "unknown type passes",
			record: notifier.Record{
				Type: "newsletter",
				Data: map[string]any{},
			},
			valid: true,
		},
		{
			name: "nil data on known type",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
			},
			valid: false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.valid, notifier.Validate(tc.record))
		})
	}
}
