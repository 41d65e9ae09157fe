package internal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/garrity/switch-sensor/internal/debounce"
	"github.com/garrity/switch-sensor/internal/gpio"
	"github.com/garrity/switch-sensor/internal/logic"
	"github.com/garrity/switch-sensor/internal/mqtt"
)

func newMonitor(t *testing.T, syncDepth, filterLength int, start time.Time) *logic.Monitor {
	t.Helper()
	var sync debounce.Synchronizer = debounce.Direct{}
	if syncDepth > 0 {
		sync = debounce.NewShiftRegister(syncDepth, false)
	}
	cond, err := debounce.NewConditioner(sync, filterLength)
	if err != nil {
		t.Fatalf("NewConditioner: %v", err)
	}
	return logic.NewMonitor(cond, syncDepth, start)
}

// TestIntegrationFullFlow tests the complete flow from GPIO to MQTT using fakes.
func TestIntegrationFullFlow(t *testing.T) {
	// filterLength 3, depth-2 synchronizer: settle window is 1+2+3 = 6 ticks.
	// Then the switch closes, holds, and opens again.
	samples := []bool{
		// Settle window
		false, false, false, false, false, false,
		// Switch closes: 2 ticks sync latency + 3 ticks persistence
		true, true, true, true, true,
		// Switch opens again
		false, false, false, false, false,
	}

	gpioReader := gpio.NewFakeReader(samples)
	publisher := mqtt.NewFakePublisher()
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	monitor := newMonitor(t, 2, 3, startTime)

	pollInterval := 20 * time.Millisecond

	// Simulate the main loop
	for i := range samples {
		raw, err := gpioReader.Read()
		if err != nil {
			t.Fatalf("sample %d: gpio read error: %v", i, err)
		}

		now := startTime.Add(time.Duration(i) * pollInterval)
		events := monitor.Process(logic.Input{Raw: raw, Time: now})

		for _, event := range events {
			if err := publisher.Publish(event); err != nil {
				t.Fatalf("sample %d: publish error: %v", i, err)
			}
		}
	}

	// Verify published events
	if len(publisher.Events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(publisher.Events))
	}

	if publisher.Events[0].Type != logic.EventSwitchOn {
		t.Errorf("event 0: expected SWITCH_ON, got %s", publisher.Events[0].Type)
	}
	if publisher.Events[0].State != logic.StateOn {
		t.Errorf("event 0: expected state ON, got %s", publisher.Events[0].State)
	}

	if publisher.Events[1].Type != logic.EventSwitchOff {
		t.Errorf("event 1: expected SWITCH_OFF, got %s", publisher.Events[1].Type)
	}
	if publisher.Events[1].State != logic.StateOff {
		t.Errorf("event 1: expected state OFF, got %s", publisher.Events[1].State)
	}

	// Verify JSON payloads
	for i, payload := range publisher.Payloads {
		var parsed mqtt.Payload
		if err := json.Unmarshal(payload, &parsed); err != nil {
			t.Errorf("payload %d: invalid JSON: %v", i, err)
		}
		if parsed.Switch.Timestamp == "" {
			t.Errorf("payload %d: missing timestamp", i)
		}
		if parsed.Switch.Event == "" {
			t.Errorf("payload %d: missing event", i)
		}
	}
}

// TestIntegrationNoEventsAtStartup verifies no events leak during the settle
// window, even when the line is active from the first sample.
func TestIntegrationNoEventsAtStartup(t *testing.T) {
	samples := []bool{true, true, true, true, true, true}

	gpioReader := gpio.NewFakeReader(samples)
	publisher := mqtt.NewFakePublisher()
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	monitor := newMonitor(t, 2, 3, startTime)

	for i := range samples {
		raw, _ := gpioReader.Read()
		now := startTime.Add(time.Duration(i) * 20 * time.Millisecond)
		for _, event := range monitor.Process(logic.Input{Raw: raw, Time: now}) {
			publisher.Publish(event)
		}
	}

	if len(publisher.Events) != 0 {
		t.Errorf("expected no events during settle window, got %d", len(publisher.Events))
	}
	if !monitor.IsSettled() {
		t.Error("monitor should be settled after the window")
	}
	if monitor.CurrentState() != logic.StateOn {
		t.Errorf("expected ON after settle, got %s", monitor.CurrentState())
	}
}

// TestIntegrationBounceRejection verifies contact bounce shorter than the
// filter length never reaches MQTT.
func TestIntegrationBounceRejection(t *testing.T) {
	samples := []bool{
		// Settle (passthrough sync, filterLength 4: 1+0+4 = 5 ticks)
		false, false, false, false, false,
		// Bounce: 3 ticks high, back low — under the filter length
		true, true, true, false, false,
		// Bounce again, shorter
		true, false, true, false,
		// Finally a persistent close
		true, true, true, true,
	}

	gpioReader := gpio.NewFakeReader(samples)
	publisher := mqtt.NewFakePublisher()
	startTime := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	monitor := newMonitor(t, 0, 4, startTime)

	for i := range samples {
		raw, _ := gpioReader.Read()
		now := startTime.Add(time.Duration(i) * 20 * time.Millisecond)
		for _, event := range monitor.Process(logic.Input{Raw: raw, Time: now}) {
			publisher.Publish(event)
		}
	}

	if len(publisher.Events) != 1 {
		t.Fatalf("expected exactly 1 event (the persistent close), got %d", len(publisher.Events))
	}
	if publisher.Events[0].Type != logic.EventSwitchOn {
		t.Errorf("expected SWITCH_ON, got %s", publisher.Events[0].Type)
	}
}
