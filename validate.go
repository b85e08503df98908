package notifier

// Validate reports whether the record carries everything its type needs for
// delivery. Unknown types pass validation; the run will then only complete if
// a template happens to exist for them.
func Validate(r Record) bool {
	v, ok := variantFor(r.Type)
	if !ok {
		return true
	}

	for _, field := range v.Required {
		if _, ok := r.Data[field]; !ok {
			return false
		}
	}

	if v.Check != nil {
		return v.Check(r.Data)
	}

	return true
}
