package notifier_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/andrewwormald/notifier"
)

func TestRender(t *testing.T) {
	testCases := []struct {
		name     string
		template string
		record   notifier.Record
		expected string
	}{
		{
			name:     "substitutes all placeholders",
			template: "Dear {name}, missed hours: {hoursMissed}.",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"name": "Pavel", "hoursMissed": 8},
			},
			expected: "Dear Pavel, missed hours: 8.",
		},
		{
			name:     "tokens are case insensitive",
			template: "Dear {Name}, missed hours: {HOURSMISSED}.",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"name": "Pavel", "hoursMissed": 8},
			},
			expected: "Dear Pavel, missed hours: 8.",
		},
		{
			name:     "replaces every occurrence",
			template: "{name} {name} {name}",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"name": "Pavel", "hoursMissed": 1},
			},
			expected: "Pavel Pavel Pavel",
		},
		{
			name:     "missing field renders empty",
			template: "Dear {name}, missed hours: {hoursMissed}.",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"name": "Pavel"},
			},
			expected: "Dear Pavel, missed hours: .",
		},
		{
			name:     "unknown type leaves body untouched",
			template: "Dear {name},",
			record: notifier.Record{
				Type: "newsletter",
				Data: map[string]any{"name": "Pavel"},
			},
			expected: "Dear {name},",
		},
		{
			name:     "multibyte runes ahead of a token keep their offsets",
			template: "K {name}",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"name": "Pavel", "hoursMissed": 1},
			},
			expected: "K Pavel",
		},
		{
			name:     "folded rune lengths do not shift later tokens",
			template: "Temp in Kelvin for {name}: {hoursMissed}°",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"name": "Pavel", "hoursMissed": 273},
			},
			expected: "Temp in Kelvin for Pavel: 273°",
		},
		{
			name:     "unlisted tokens survive",
			template: "Dear {name}, see {link}.",
			record: notifier.Record{
				Type: notifier.TypeTimesheet,
				Data: map[string]any{"name": "Pavel", "link": "http://x"},
			},
			expected: "Dear Pavel, see {link}.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, notifier.Render(tc.template, tc.record))
		})
	}
}

func TestRenderDefaultTimesheetTemplate(t *testing.T) {
	r := notifier.Record{
		Type: notifier.TypeTimesheet,
		Data: map[string]any{"name": "Pavel", "hoursMissed": 8},
	}

	var template string
	for _, v := range notifier.Variants() {
		if v.Type == notifier.TypeTimesheet {
			template = v.DefaultTemplate
		}
	}
	require.NotEmpty(t, template)

	body := notifier.Render(template, r)
	require.Contains(t, body, "Dear Pavel,")
	require.Contains(t, body, "Missed hours: 8.")
	require.NotContains(t, body, "{")
}
