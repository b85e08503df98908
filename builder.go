package notifier

import (
	"time"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"k8s.io/utils/clock"

	"github.com/andrewwormald/notifier/internal/graph"
)

// NewEngineBuilder starts the declaration of a workflow graph. The first
// state added via AddStep is the entrypoint.
func NewEngineBuilder(name string) *EngineBuilder {
	return &EngineBuilder{
		engine: &Engine{
			name:    name,
			steps:   make(map[State]*step),
			timeout: defaultExecutionTimeout,
			clock:   clock.RealClock{},
		},
	}
}

type EngineBuilder struct {
	engine *Engine
}

type stepOptions struct {
	postDelay time.Duration
}

type StepOption func(*stepOptions)

// WithPostDelay schedules a fixed delay after the step runs and before its
// transitions are evaluated.
func WithPostDelay(d time.Duration) StepOption {
	return func(so *stepOptions) {
		so.postDelay = d
	}
}

func (b *EngineBuilder) AddStep(s State, fn StepFunc, opts ...StepOption) {
	var so stepOptions
	for _, opt := range opts {
		opt(&so)
	}

	if b.engine.start == StateUnknown {
		b.engine.start = s
	}

	b.engine.steps[s] = &step{
		fn:        fn,
		postDelay: so.postDelay,
	}
}

// AddTransition adds an edge evaluated in declaration order; the first edge
// whose predicate matches is followed. A nil predicate always matches and is
// conventionally the last edge out of a state.
func (b *EngineBuilder) AddTransition(from, to State, when Predicate) {
	st, ok := b.engine.steps[from]
	if !ok {
		st = &step{}
		b.engine.steps[from] = st
	}

	st.transitions = append(st.transitions, transition{to: to, when: when})
}

type engineOptions struct {
	clock        clock.Clock
	timeout      time.Duration
	failureCause string
}

type EngineOption func(*engineOptions)

func WithEngineClock(c clock.Clock) EngineOption {
	return func(eo *engineOptions) {
		eo.clock = c
	}
}

// WithExecutionTimeout bounds a whole execution; exceeding it terminates the
// execution as failed regardless of which state it is in.
func WithExecutionTimeout(d time.Duration) EngineOption {
	return func(eo *engineOptions) {
		eo.timeout = d
	}
}

// WithFailureCause sets the fixed cause string carried by the fail terminal.
func WithFailureCause(cause string) EngineOption {
	return func(eo *engineOptions) {
		eo.failureCause = cause
	}
}

// Build validates the declared topology and returns the engine. The graph
// must have exactly one entrypoint and both terminals must be reachable
// terminal nodes.
func (b *EngineBuilder) Build(opts ...EngineOption) (*Engine, error) {
	var eo engineOptions
	for _, opt := range opts {
		opt(&eo)
	}

	if eo.clock != nil {
		b.engine.clock = eo.clock
	}

	if eo.timeout > 0 {
		b.engine.timeout = eo.timeout
	}

	b.engine.failureCause = eo.failureCause

	g := graph.New()
	for s, st := range b.engine.steps {
		for _, t := range st.transitions {
			g.Add(int(s), int(t.to))
		}
	}

	starting := g.Starting()
	if len(starting) != 1 || State(starting[0]) != b.engine.start {
		return nil, errors.Wrap(ErrInvalidGraph, "workflow must have a single entrypoint", j.KV("workflow", b.engine.name))
	}

	for _, terminal := range []State{StateSucceed, StateFail} {
		if !g.Contains(int(terminal)) || !g.Terminal(int(terminal)) {
			return nil, errors.Wrap(ErrInvalidGraph, "terminal state misconfigured", j.MKV{
				"workflow": b.engine.name,
				"state":    terminal.String(),
			})
		}
	}

	for _, n := range g.Terminals() {
		if s := State(n); s != StateSucceed && s != StateFail {
			return nil, errors.Wrap(ErrInvalidGraph, "dead-end state", j.KV("state", s.String()))
		}
	}

	return b.engine, nil
}
