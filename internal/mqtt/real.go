package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/garrity/switch-sensor/internal/logic"
)

// bufferCapacity is the number of messages held while the broker is
// unreachable. At one event per debounced transition this covers hours of
// outage for a mechanical switch.
const bufferCapacity = 64

// willPayload is the broker-published last-will message. No timestamp: the
// broker emits it on our behalf after the connection dies.
const willPayload = `{"system":{"event":"OFFLINE"}}`

// RealPublisher publishes to an actual MQTT broker. While disconnected it
// buffers messages in a ring buffer and replays them on reconnect.
type RealPublisher struct {
	client paho.Client

	mu        sync.Mutex
	pending   *ringBuffer
	connected bool // true once the first connection succeeded
}

// NewRealPublisher creates a publisher for the given broker. The connection
// is established in the background with retry, so construction never blocks
// on an unreachable broker; messages published meanwhile are buffered.
func NewRealPublisher(broker string) *RealPublisher {
	p := &RealPublisher{pending: newRingBuffer(bufferCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("switch-sensor").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(TopicSystem, willPayload, 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	p.client.Connect()
	return p
}

// onConnect replays buffered messages and announces reconnections.
func (p *RealPublisher) onConnect(client paho.Client) {
	p.mu.Lock()
	first := !p.connected
	p.connected = true
	msgs := p.pending.drainAll()
	p.mu.Unlock()

	if first {
		log.Printf("mqtt: connected")
	} else {
		log.Printf("mqtt: reconnected, replaying %d buffered messages", len(msgs))
		payload, _ := FormatSystemPayload(SystemEvent{
			Timestamp: time.Now(),
			Event:     "RECONNECTED",
		})
		client.Publish(TopicSystem, 1, false, payload)
	}

	for _, msg := range msgs {
		client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	}
}

// publish sends one message, or buffers it when the broker is unreachable.
func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnected() {
		p.mu.Lock()
		p.pending.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := p.pending.len()
		p.mu.Unlock()
		log.Printf("mqtt: disconnected, buffered message (%d pending)", n)
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Publish sends a switch event to the MQTT broker.
// QoS 0 (at-most-once), not retained.
func (p *RealPublisher) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.publish(Topic, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
// QoS 1 (at-least-once) - startup/shutdown events should not be lost.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// IsConnected reports whether the broker connection is up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
