package debounce

// Conditioner chains a Synchronizer into a Filter. One call to Step per tick
// runs both stages in order: the synchronizer's output for tick N is the
// value the filter consumes on tick N.
//
// Like Filter, a Conditioner has exactly one writer. Readers that only need
// the latched output may call Output at any point between ticks.
type Conditioner struct {
	sync   Synchronizer
	filter *Filter
}

// NewConditioner builds the two-stage pipeline. A nil sync gets the default
// two-stage ShiftRegister resetting to false.
func NewConditioner(sync Synchronizer, filterLength int) (*Conditioner, error) {
	if sync == nil {
		sync = NewShiftRegister(DefaultSyncDepth, false)
	}
	f, err := NewFilter(filterLength, false)
	if err != nil {
		return nil, err
	}
	return &Conditioner{sync: sync, filter: f}, nil
}

// Step advances one tick: hardens raw, then updates the filter. Returns the
// debounced output after this tick's update.
func (c *Conditioner) Step(resetActive, raw bool) bool {
	synced := c.sync.Step(resetActive, raw)
	return c.filter.Step(resetActive, synced)
}

// Output returns the debounced output without advancing a tick.
func (c *Conditioner) Output() bool {
	return c.filter.Output()
}

// FilterLength returns the filter's persistence requirement in ticks.
func (c *Conditioner) FilterLength() int {
	return c.filter.FilterLength()
}
