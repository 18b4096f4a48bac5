package querytap

import "sync/atomic"

// state is the shared instrumentation toggle. Every wrapper closure
// holds a reference to the same state and consults it at call time,
// never at wrap time, so flipping it takes effect on the next call to
// any wrapped entry point without touching objects produced earlier.
// A call that already passed its check runs to completion in whichever
// mode it observed.
type state struct {
	enabled atomic.Bool
}

func (s *state) set(on bool) { s.enabled.Store(on) }

func (s *state) active() bool { return s.enabled.Load() }
