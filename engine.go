package notifier

import (
	"context"
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/andrewwormald/notifier/internal/metrics"
)

// State is a node in the delivery workflow graph.
type State int

const (
	StateUnknown State = iota
	StateValidate
	StateFindTemplate
	StateSeedTemplates
	StateFindTemplateAgain
	StateSendEmail
	StateMarkValidationFailed
	StateMarkNoTemplate
	StateUpdateStatus
	StateSucceed
	StateFail
)

func (s State) String() string {
	switch s {
	case StateValidate:
		return "validate"
	case StateFindTemplate:
		return "find_template"
	case StateSeedTemplates:
		return "seed_templates"
	case StateFindTemplateAgain:
		return "find_template_again"
	case StateSendEmail:
		return "send_email"
	case StateMarkValidationFailed:
		return "mark_validation_failed"
	case StateMarkNoTemplate:
		return "mark_no_template"
	case StateUpdateStatus:
		return "update_status"
	case StateSucceed:
		return "succeed"
	case StateFail:
		return "fail"
	default:
		return "unknown"
	}
}

// StatusUpdate is a pending terminal status write carried through the
// execution until the update_status state applies it.
type StatusUpdate struct {
	Status Status
}

// Execution is the ephemeral context of one workflow run for one record. It
// is local to the run, never shared across concurrent executions, and is
// discarded once a terminal state is reached.
type Execution struct {
	Record        Record
	IsValid       bool
	Template      string
	TemplateFound bool
	NeedToUpdate  *StatusUpdate

	// Path records the states visited, in order.
	Path []State
}

// StepFunc does the work of one state, mutating the execution as it goes.
type StepFunc func(ctx context.Context, ex *Execution) error

// Predicate guards a transition edge. A nil predicate always matches.
type Predicate func(ex *Execution) bool

type step struct {
	fn          StepFunc
	postDelay   time.Duration
	transitions []transition
}

type transition struct {
	to   State
	when Predicate
}

const (
	defaultExecutionTimeout = 5 * time.Minute

	// maxVisits bounds the interpreter against a miswired cyclic graph.
	maxVisits = 64
)

// Engine interprets a fixed directed graph of states. Each Execute walks the
// graph once for one record: run the state's step, honour its scheduled
// delay, then follow the first transition whose predicate matches. Reaching
// the fail terminal raises an explicit workflow failure carrying the engine's
// fixed cause string, distinct from an unhandled step error. Step failures
// are never retried by the engine; redelivery at the queue layer is the only
// automatic recovery.
type Engine struct {
	name         string
	steps        map[State]*step
	start        State
	timeout      time.Duration
	failureCause string
	clock        clock.Clock
}

func (e *Engine) Name() string {
	return e.name
}

func (e *Engine) Execute(ctx context.Context, r Record) (*Execution, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	metrics.Executions.WithLabelValues(e.name).Inc()
	t0 := e.clock.Now()
	defer func() {
		metrics.ExecutionLatency.WithLabelValues(e.name).Observe(e.clock.Since(t0).Seconds())
	}()

	ex := &Execution{Record: r}

	current := e.start
	for i := 0; i < maxVisits; i++ {
		ex.Path = append(ex.Path, current)

		switch current {
		case StateSucceed:
			return ex, nil
		case StateFail:
			metrics.ExecutionErrors.WithLabelValues(e.name).Inc()
			return ex, errors.Wrap(ErrExecutionFailed, "", j.MKV{
				"cause":     e.failureCause,
				"record_id": ex.Record.ID,
			})
		}

		st := e.steps[current]

		if st.fn != nil {
			err := st.fn(ctx, ex)
			if err != nil {
				metrics.ExecutionErrors.WithLabelValues(e.name).Inc()
				return ex, errors.Wrap(err, "workflow step", j.MKV{
					"state":     current.String(),
					"record_id": ex.Record.ID,
				})
			}
		}

		if st.postDelay > 0 {
			err := e.pause(ctx, st.postDelay)
			if err != nil {
				metrics.ExecutionErrors.WithLabelValues(e.name).Inc()
				return ex, err
			}
		}

		next := StateUnknown
		for _, t := range st.transitions {
			if t.when == nil || t.when(ex) {
				next = t.to
				break
			}
		}

		if next == StateUnknown {
			return ex, errors.Wrap(ErrNoTransition, "", j.KV("state", current.String()))
		}

		current = next
	}

	return ex, errors.Wrap(ErrInvalidGraph, "visit limit exceeded", j.KV("state", current.String()))
}

// pause is a scheduled suspension: the execution sleeps on the clock, not a
// spin loop, and the overall execution timeout still applies.
func (e *Engine) pause(ctx context.Context, d time.Duration) error {
	t := e.clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}
