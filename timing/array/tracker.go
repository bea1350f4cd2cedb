package array

type trackerState int

const (
	trackerIdle trackerState = iota
	trackerDraining
)

// Tracker is the retriggerable drain timer that decides when the array has
// finished. Every valid input token (re)arms the countdown to the array's
// total latency, so the timer can never fire mid-stream; once input stops,
// the countdown runs out exactly when the last in-flight token lands in its
// accumulator.
type Tracker struct {
	total     int
	state     trackerState
	countdown int
	cycles    uint32
}

// NewTracker creates a tracker that fires totalLatency cycles after the last
// valid input.
func NewTracker(totalLatency int) *Tracker {
	if totalLatency < 1 {
		panic("tracker total latency must be >= 1")
	}
	return &Tracker{total: totalLatency}
}

// Observe samples the validity flag for one cycle. It returns true for
// exactly one cycle, totalLatency cycles after the last valid input.
func (t *Tracker) Observe(valid bool) (done bool) {
	wasDraining := t.state == trackerDraining

	switch {
	case valid:
		t.state = trackerDraining
		t.countdown = t.total
	case wasDraining:
		t.countdown--
		if t.countdown == 0 {
			done = true
			t.state = trackerIdle
		}
	}

	// Diagnostic throughput counter: runs on every non-idle cycle.
	if valid || wasDraining {
		t.cycles++
	}

	return done
}

// Idle reports whether the tracker is in its initial state.
func (t *Tracker) Idle() bool {
	return t.state == trackerIdle
}

// Cycles returns the free-running activity counter.
func (t *Tracker) Cycles() uint32 {
	return t.cycles
}

// Reset returns the tracker to idle with counter and timer cleared.
func (t *Tracker) Reset() {
	t.state = trackerIdle
	t.countdown = 0
	t.cycles = 0
}
