package notifier

import "sort"

// Variant describes one notification type: which data fields must be present
// for the record to be valid, which placeholder tokens its template body may
// contain, and the default body written by the seeder. All per-type behaviour
// is resolved through this single table so adding a type is a localized
// extension.
type Variant struct {
	Type            string
	Required        []string
	Placeholders    []string
	DefaultTemplate string

	// Check applies value constraints beyond field presence. Nil means
	// presence of the required fields is sufficient.
	Check func(data map[string]any) bool
}

const (
	TypeTimesheet = "timesheet"
	TypeFeedback  = "feedback"
)

const timesheetTemplate = `Dear {name},
Kindly remind you that all hours should be reported by you according to the actual hours performed. For now, there are some gaps in your Time Journal for the current week. Missed hours: {hoursMissed}.
This email was generated automatically. Please don't reply.`

const feedbackTemplate = `Dear {name},
Please finalize your feedback and mark the interview as complete.
Candidate: {candidate}
Date/Time: {dateTime}
Interview type: {interviewType}
Thank you in advance!
This email was generated automatically. Please don't reply.`

var variants = map[string]Variant{
	TypeTimesheet: {
		Type:            TypeTimesheet,
		Required:        []string{"name", "hoursMissed"},
		Placeholders:    []string{"name", "hoursMissed"},
		DefaultTemplate: timesheetTemplate,
		Check: func(data map[string]any) bool {
			hours, ok := numberValue(data["hoursMissed"])
			return ok && hours > 0
		},
	},
	TypeFeedback: {
		Type:            TypeFeedback,
		Required:        []string{"name", "candidate", "dateTime", "interviewType"},
		Placeholders:    []string{"name", "candidate", "dateTime", "interviewType"},
		DefaultTemplate: feedbackTemplate,
	},
}

// RegisterVariant adds or replaces a notification type. It must only be
// called during initialisation, before any workflow runs.
func RegisterVariant(v Variant) {
	variants[v.Type] = v
}

func variantFor(typ string) (Variant, bool) {
	v, ok := variants[typ]
	return v, ok
}

// Variants returns the registered variants ordered by type name.
func Variants() []Variant {
	vs := make([]Variant, 0, len(variants))
	for _, v := range variants {
		vs = append(vs, v)
	}

	sort.Slice(vs, func(i, j int) bool {
		return vs[i].Type < vs[j].Type
	})

	return vs
}

func numberValue(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
