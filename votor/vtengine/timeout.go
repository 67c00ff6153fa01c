package vtengine

import (
	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
)

// TimeoutStrategy determines the view-timeout budget.
type TimeoutStrategy interface {
	// TimeoutFor returns how many ticks a validator waits in the
	// given view before casting a skip vote and advancing.
	TimeoutFor(view uint64) vtconsensus.Tick
}

// ExponentialTimeoutStrategy doubles the timeout per leader window,
// clamped into [Min, Max].
// Grouping the backoff by window rather than by view keeps a single
// struggling leader from inflating every subsequent view's budget.
type ExponentialTimeoutStrategy struct {
	Base vtconsensus.Tick

	Min vtconsensus.Tick
	Max vtconsensus.Tick

	// Views per leader window; zero is treated as one.
	WindowSize uint64
}

func (s ExponentialTimeoutStrategy) TimeoutFor(view uint64) vtconsensus.Tick {
	w := s.WindowSize
	if w == 0 {
		w = 1
	}
	shift := view / w

	base := s.Base
	if base == 0 {
		base = 1
	}

	t := s.Max
	if shift < 63 {
		t = base << shift
		if t>>shift != base {
			// Shift overflowed.
			t = s.Max
		}
	}

	return min(max(t, s.Min), s.Max)
}
