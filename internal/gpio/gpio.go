// Package gpio provides GPIO input reading with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Reader reads the switch input state.
type Reader interface {
	// Read returns the logical state of the switch line. For active-low
	// wiring (contact switch to ground with pull-up) the raw value is
	// inverted: raw low = logical ON.
	Read() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultPin is the default BCM pin number for the switch line.
const DefaultPin = 17
