package array

// DelayLine is a fixed-depth shift register. A line built with delay d holds
// d+1 slots; every Advance shifts each slot one position toward the tail,
// inserts the new head, and returns the value presented d calls earlier.
// Delay 0 is a same-cycle passthrough.
//
// The skew network builds one line per row and per column, with the depth
// derived from the grid position at construction time.
type DelayLine[T any] struct {
	slots []T
}

// NewDelayLine creates a delay line with the given delay in cycles.
func NewDelayLine[T any](delay int) *DelayLine[T] {
	if delay < 0 {
		panic("delay line depth must be >= 0")
	}
	return &DelayLine[T]{slots: make([]T, delay+1)}
}

// Advance shifts the line by one cycle and returns the tail value.
func (d *DelayLine[T]) Advance(head T) T {
	for i := len(d.slots) - 1; i > 0; i-- {
		d.slots[i] = d.slots[i-1]
	}
	d.slots[0] = head
	return d.slots[len(d.slots)-1]
}

// Delay returns the line's delay in cycles.
func (d *DelayLine[T]) Delay() int {
	return len(d.slots) - 1
}

// Reset forces every slot to the zero value.
func (d *DelayLine[T]) Reset() {
	var zero T
	for i := range d.slots {
		d.slots[i] = zero
	}
}
