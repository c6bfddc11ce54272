package timer

import (
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
)

// Timer performs basic timings of sections of code and keeps a running
// average of the timing values. It is used by every node in the query
// pipeline to track its per-call execution time without affecting the
// node's hot-path correctness.
type Timer interface {
	// Start the timer.
	// Timer must be stopped, which is the state of a new timer.
	Start()
	// Pause the timer.
	// Timer must be started.
	Pause()
	// Resumed the timer.
	// Timer must be paused.
	Resume()
	// Stop the timer.
	// Timer must be started.
	Stop()
}

// Setter receives the updated moving-average duration, in nanoseconds,
// each time a timed section completes.
type Setter interface {
	Set(avgNanoseconds int64)
}

type timerState int

const (
	Stopped timerState = iota
	Started
	Paused
)

type timer struct {
	sampleRate float64
	start      time.Time
	current    time.Duration
	avg        *movavg
	state      timerState
	clk        clock.Clock

	setter Setter
}

// New returns a Timer that samples a fraction sampleRate of calls and
// reports a moving average over the last movingAverageSize samples to
// setter. setter may be nil.
func New(sampleRate float64, movingAverageSize int, setter Setter) Timer {
	return NewWithClock(sampleRate, movingAverageSize, setter, clock.New())
}

// NewWithClock is New with an injectable clock, so tests can drive
// timing deterministically with clock.NewMock().
func NewWithClock(sampleRate float64, movingAverageSize int, setter Setter, clk clock.Clock) Timer {
	return &timer{
		sampleRate: sampleRate,
		avg:        newMovAvg(movingAverageSize),
		setter:     setter,
		clk:        clk,
	}
}

func (t *timer) Start() {
	if t.state != Stopped {
		panic("invalid timer state")
	}
	if rand.Float64() < t.sampleRate {
		t.state = Started
		t.start = t.clk.Now()
	}
}

func (t *timer) Pause() {
	if t.state != Started {
		return
	}
	t.current += t.clk.Now().Sub(t.start)
	t.state = Paused
}

func (t *timer) Resume() {
	if t.state != Paused {
		return
	}
	t.start = t.clk.Now()
	t.state = Started
}

func (t *timer) Stop() {
	if t.state != Started {
		return
	}
	t.current += t.clk.Now().Sub(t.start)
	avg := t.avg.update(float64(t.current))
	t.current = 0
	t.state = Stopped
	if t.setter != nil {
		t.setter.Set(int64(avg))
	}
}

// movavg maintains a running sum over the last `size` values in a ring
// buffer, so update is O(1) regardless of window size.
type movavg struct {
	size    int
	history []float64
	idx     int
	count   int
	sum     float64
	avg     float64
}

func newMovAvg(size int) *movavg {
	return &movavg{
		size:    size,
		history: make([]float64, size),
		idx:     -1,
	}
}

func (m *movavg) update(value float64) float64 {
	m.idx = (m.idx + 1) % m.size
	if m.count < m.size {
		m.count++
	} else {
		m.sum -= m.history[m.idx]
	}
	m.history[m.idx] = value
	m.sum += value
	m.avg = m.sum / float64(m.count)
	return m.avg
}
