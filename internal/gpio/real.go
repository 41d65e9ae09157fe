//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads GPIO from actual hardware using the Linux GPIO character device.
type RealReader struct {
	chip      *gpiocdev.Chip
	line      *gpiocdev.Line
	activeLow bool
}

// NewRealReader creates a GPIO reader for actual hardware. activeLow selects
// the wiring convention: true for a contact switch to ground (raw low =
// logical ON), false for a switch to the supply rail.
func NewRealReader(pin int, activeLow bool) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// A floating contact switch needs a defined idle level: pull up for
	// active-low wiring, pull down otherwise.
	bias := gpiocdev.WithPullDown
	if activeLow {
		bias = gpiocdev.WithPullUp
	}
	line, err := chip.RequestLine(pin, gpiocdev.AsInput, bias)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request switch pin %d: %w", pin, err)
	}

	return &RealReader{
		chip:      chip,
		line:      line,
		activeLow: activeLow,
	}, nil
}

// Read returns the logical state of the switch line.
func (r *RealReader) Read() (bool, error) {
	raw, err := r.line.Value()
	if err != nil {
		return false, fmt.Errorf("read switch pin: %w", err)
	}

	if r.activeLow {
		return raw == 0, nil
	}
	return raw != 0, nil
}

// Close releases GPIO resources. The line is reconfigured to input with
// pull-down (matching Pi boot defaults) before closing so the pin is in a
// clean state for system shutdown/reboot.
func (r *RealReader) Close() error {
	var errs []error

	if r.line != nil {
		if err := r.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure switch pin: %w", err))
		}
		if err := r.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close switch pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
