package window

import "sync/atomic"

// ResizeSignal is a one-shot flag raised by window events and consumed by the
// frame loop.
type ResizeSignal struct {
	raised atomic.Bool
}

func (s *ResizeSignal) Raise() {
	s.raised.Store(true)
}

// Take reports whether the signal was raised since the last Take and clears it.
func (s *ResizeSignal) Take() bool {
	return s.raised.Swap(false)
}
