package debounce

import "testing"

func TestNewConditionerRejectsInvalidLength(t *testing.T) {
	if _, err := NewConditioner(nil, 0); err == nil {
		t.Error("expected error for filter length 0")
	}
}

func TestConditionerDefaultSynchronizer(t *testing.T) {
	c, err := NewConditioner(nil, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sr, ok := c.sync.(*ShiftRegister)
	if !ok {
		t.Fatalf("default synchronizer is %T, want *ShiftRegister", c.sync)
	}
	if sr.Depth() != DefaultSyncDepth {
		t.Errorf("default depth %d, want %d", sr.Depth(), DefaultSyncDepth)
	}
}

func TestConditionerEndToEndTiming(t *testing.T) {
	// Depth-2 synchronizer + length-3 filter: a persistent rising input
	// reaches the output after exactly 2 (latency) + 3 (persistence) ticks.
	c, err := NewConditioner(NewShiftRegister(2, false), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.Step(true, true) // reset tick: synchronizer emits reset value, filter latches false

	for tick := 1; tick <= 4; tick++ {
		if out := c.Step(false, true); out {
			t.Fatalf("tick %d: output rose early", tick)
		}
	}
	if out := c.Step(false, true); !out {
		t.Fatal("tick 5: output should rise (2 latency + 3 persistence)")
	}
	if !c.Output() {
		t.Error("Output() should read the latched value between ticks")
	}
}

func TestConditionerRejectsGlitch(t *testing.T) {
	c, _ := NewConditioner(Direct{}, 4)
	c.Step(true, false)

	// A 3-tick pulse never reaches the output.
	for _, raw := range []bool{true, true, true, false, false, false, false} {
		if out := c.Step(false, raw); out {
			t.Fatal("glitch shorter than the filter length leaked to the output")
		}
	}
}

func TestConditionerDirectMatchesFilter(t *testing.T) {
	// With a passthrough synchronizer the conditioner and a bare filter
	// must agree tick for tick.
	c, _ := NewConditioner(Direct{}, 3)
	f, _ := NewFilter(3, false)

	inputs := []bool{false, true, true, false, true, true, true, false, false, false}
	c.Step(true, inputs[0])
	f.Step(true, inputs[0])
	for i, raw := range inputs[1:] {
		co := c.Step(false, raw)
		fo := f.Step(false, raw)
		if co != fo {
			t.Fatalf("tick %d: conditioner %v, filter %v", i+1, co, fo)
		}
	}
}
