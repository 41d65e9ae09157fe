package logic

import (
	"time"

	"github.com/garrity/switch-sensor/internal/debounce"
)

// Monitor drives a debounce conditioner one tick per sample and turns output
// transitions into events. The first Process call asserts the conditioner's
// synchronous reset; events are suppressed until the pipeline has settled on
// the live line value (the reset tick, the synchronizer latency, and one
// full filter length).
type Monitor struct {
	cond *debounce.Conditioner

	started     bool
	settleTicks int
	settled     bool
	prev        bool

	startTime     time.Time
	eventCounts   EventCounts
	lastHeartbeat time.Time
}

// NewMonitor creates a transition monitor around the given conditioner.
// syncDepth is the synchronizer's fixed latency in ticks (0 for a
// passthrough). The startTime is used for calculating uptime in heartbeat
// events.
func NewMonitor(cond *debounce.Conditioner, syncDepth int, startTime time.Time) *Monitor {
	if syncDepth < 0 {
		syncDepth = 0
	}
	return &Monitor{
		cond:          cond,
		settleTicks:   1 + syncDepth + cond.FilterLength(),
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process takes a new input sample, advances the pipeline one tick, and
// returns any events that should be emitted. Events are only returned after
// the settle window and on debounced state transitions.
func (m *Monitor) Process(input Input) []Event {
	reset := !m.started
	m.started = true

	out := m.cond.Step(reset, input.Raw)

	if !m.settled {
		if m.settleTicks > 0 {
			m.settleTicks--
		}
		if m.settleTicks == 0 {
			m.settled = true
			m.prev = out
		}
		return nil
	}

	if out == m.prev {
		return nil
	}
	m.prev = out

	event := Event{
		Timestamp: input.Time,
		Type:      eventTypeFor(out),
		State:     boolToState(out),
	}
	if out {
		m.eventCounts.On++
	} else {
		m.eventCounts.Off++
	}
	return []Event{event}
}

func boolToState(b bool) State {
	if b {
		return StateOn
	}
	return StateOff
}

func eventTypeFor(on bool) EventType {
	if on {
		return EventSwitchOn
	}
	return EventSwitchOff
}

// IsSettled returns whether the conditioning pipeline has settled and events
// are flowing.
func (m *Monitor) IsSettled() bool {
	return m.settled
}

// CurrentState returns the current debounced state. Before the settle window
// closes it returns the empty State.
func (m *Monitor) CurrentState() State {
	if !m.settled {
		return ""
	}
	return boolToState(m.cond.Output())
}

// EventCountsSnapshot returns a copy of the accumulated event counts.
func (m *Monitor) EventCountsSnapshot() EventCounts {
	return m.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the pipeline has not settled,
// if the interval has not elapsed, or if interval is <= 0 (disabled).
func (m *Monitor) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !m.settled {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		Counts:    m.eventCounts,
	}
}
