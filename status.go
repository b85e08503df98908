package notifier

import (
	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Status is the persisted state of a Record. Once a record reaches a
// terminal status the delivery workflow never reopens it.
type Status int

const (
	StatusUnknown         Status = 0
	StatusPending         Status = 1
	StatusValidationError Status = 2
	StatusReadError       Status = 3
	StatusSendError       Status = 4
	StatusSendSuccess     Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusValidationError:
		return "VALIDATION_ERROR"
	case StatusReadError:
		return "READ_ERROR"
	case StatusSendError:
		return "SEND_ERROR"
	case StatusSendSuccess:
		return "SEND_SUCCESS"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the workflow considers the status settled.
func (s Status) Terminal() bool {
	switch s {
	case StatusValidationError, StatusReadError, StatusSendError, StatusSendSuccess:
		return true
	default:
		return false
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	switch string(b) {
	case "PENDING":
		*s = StatusPending
	case "VALIDATION_ERROR":
		*s = StatusValidationError
	case "READ_ERROR":
		*s = StatusReadError
	case "SEND_ERROR":
		*s = StatusSendError
	case "SEND_SUCCESS":
		*s = StatusSendSuccess
	case "UNKNOWN", "":
		*s = StatusUnknown
	default:
		return errors.Wrap(ErrUnknownStatus, "", j.KV("status", string(b)))
	}

	return nil
}
