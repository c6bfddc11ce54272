package queryproc

import "sync"

// Sink is the boundary node a caller provides to receive the chain's
// output. It is the only Node that does not forward to a successor.
type Sink interface {
	Node
	// Status returns the last status recorded by SetError, or OK if
	// SetError was never called.
	Status() Status
	// Done reports whether Complete has been observed.
	Done() bool
}

// CollectorSink is a Sink that simply buffers every sample it receives,
// empty sentinels included, in arrival order, and records
// completion/error state. It is
// the default terminal node used by tests and the CLI.
type CollectorSink struct {
	mu       sync.Mutex
	samples  []Sample
	complete bool
	status   Status
}

// NewCollectorSink returns a new, empty CollectorSink.
func NewCollectorSink() *CollectorSink {
	return &CollectorSink{status: OK}
}

func (s *CollectorSink) Put(sample Sample) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		// A sink must accept no further samples after Complete.
		return false
	}
	s.samples = append(s.samples, sample)
	return true
}

func (s *CollectorSink) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complete = true
}

func (s *CollectorSink) SetError(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
}

func (s *CollectorSink) Type() NodeType { return TypeTerminal }

func (s *CollectorSink) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *CollectorSink) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.complete
}

// Samples returns a copy of the samples collected so far.
func (s *CollectorSink) Samples() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return out
}
