package debounce

// Synchronizer makes an asynchronously sampled bit safe to consume in the
// tick domain. Step is invoked exactly once per tick, before the filter
// logic runs on the same tick. Implementations must be deterministic: after
// a bounded number of ticks following reset deassertion or an input change,
// the returned value reflects the source with no intermediate glitches.
type Synchronizer interface {
	Step(resetActive, raw bool) bool
}

// ShiftRegister is a fixed-latency hardener modeled after a chain of
// flip-flops: the raw bit shifts in one stage per tick and the output is the
// last stage, so the output lags the input by exactly Depth ticks. On a
// reset tick every stage is forced to ResetValue.
type ShiftRegister struct {
	stages     []bool
	resetValue bool
}

// DefaultSyncDepth is the conventional two-flip-flop synchronizer depth.
const DefaultSyncDepth = 2

// NewShiftRegister creates a ShiftRegister with the given depth. Depths
// below 1 are raised to DefaultSyncDepth. resetValue is the deterministic
// level every stage holds while reset is asserted.
func NewShiftRegister(depth int, resetValue bool) *ShiftRegister {
	if depth < 1 {
		depth = DefaultSyncDepth
	}
	stages := make([]bool, depth)
	if resetValue {
		for i := range stages {
			stages[i] = true
		}
	}
	return &ShiftRegister{stages: stages, resetValue: resetValue}
}

// Step shifts raw into the register and returns the oldest stage.
func (s *ShiftRegister) Step(resetActive, raw bool) bool {
	if resetActive {
		for i := range s.stages {
			s.stages[i] = s.resetValue
		}
		return s.resetValue
	}
	out := s.stages[len(s.stages)-1]
	copy(s.stages[1:], s.stages[:len(s.stages)-1])
	s.stages[0] = raw
	return out
}

// Depth returns the register depth, which equals the latency in ticks.
func (s *ShiftRegister) Depth() int {
	return len(s.stages)
}

// Direct is a zero-latency Synchronizer for hosts where the input is already
// safe to sample at the boundary (e.g. a value read from a kernel driver
// rather than a raw electrical line).
type Direct struct{}

// Step returns raw unchanged. Reset has no effect on a stateless passthrough.
func (Direct) Step(resetActive, raw bool) bool {
	return raw
}
