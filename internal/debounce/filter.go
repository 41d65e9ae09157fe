// Package debounce implements a tick-driven signal conditioner: a
// metastability-hardening synchronizer feeding a counting debounce filter.
// This package has NO external dependencies and no notion of wall-clock time;
// the caller drives it one Step per tick.
package debounce

import (
	"fmt"
	"math/bits"
)

// Filter is the debounce state machine. The registered output changes only
// after the input has disagreed with it for filterLength consecutive ticks.
//
// Not safe for concurrent use — single writer, per the run loop ownership
// model.
type Filter struct {
	filterLength int
	reload       uint // filterLength - 1

	output    bool
	countdown uint
}

// NewFilter creates a Filter requiring filterLength consecutive differing
// ticks before the output changes. filterLength must be >= 1; a value of 1
// disables filtering (the output tracks the input every tick it differs).
// The output register starts at initial until the first reset tick latches
// the live input.
func NewFilter(filterLength int, initial bool) (*Filter, error) {
	if filterLength < 1 {
		return nil, fmt.Errorf("debounce: filter length must be >= 1, got %d", filterLength)
	}
	reload := uint(filterLength - 1)
	return &Filter{
		filterLength: filterLength,
		reload:       reload,
		output:       initial,
		countdown:    reload,
	}, nil
}

// Step performs one tick update and returns the debounced output.
//
// Reset is synchronous: on a tick where resetActive is true, the output
// latches the input as-is and the countdown reloads. Otherwise any tick of
// agreement reloads the countdown, so a disagreement must persist for the
// full filter length before it is accepted.
func (f *Filter) Step(resetActive, input bool) bool {
	switch {
	case resetActive:
		f.output = input
		f.countdown = f.reload
	case input == f.output:
		f.countdown = f.reload
	case f.countdown == 0:
		f.output = input
		f.countdown = f.reload
	default:
		f.countdown--
	}
	return f.output
}

// Output returns the current debounced output without advancing a tick.
func (f *Filter) Output() bool {
	return f.output
}

// FilterLength returns the configured persistence requirement in ticks.
func (f *Filter) FilterLength() int {
	return f.filterLength
}

// CounterWidth returns the minimum number of bits able to hold
// filterLength-1, as a hardware rendition of this filter would size its
// countdown register. Always at least 1.
func (f *Filter) CounterWidth() int {
	w := bits.Len(f.reload)
	if w == 0 {
		w = 1
	}
	return w
}
