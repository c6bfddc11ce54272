package queryproc

import (
	"log"
	"sort"
)

// windowState is the per-series accumulator driven by SlidingWindowNode.
type windowState interface {
	add(value float64)
	ready() bool
	value() float64
	reset()
}

// SlidingWindowNode is the generic per-series driver behind moving
// average and moving median. Each data sample updates the state for its
// paramid; on an empty sentinel, every series whose state is ready emits
// one synthesized float sample at the sentinel's timestamp, the state is
// reset, and the sentinel itself is forwarded last. Complete is
// forwarded without an implicit flush: upstream is expected to have
// emitted a terminal sentinel if a final flush was wanted.
type SlidingWindowNode struct {
	node
	nodeTyp NodeType
	newState func() windowState
	states   map[uint64]windowState
}

func newSlidingWindowNode(typ NodeType, newState func() windowState, next Node, logger *log.Logger) *SlidingWindowNode {
	w := &SlidingWindowNode{
		nodeTyp:  typ,
		newState: newState,
		states:   make(map[uint64]windowState),
	}
	newNode(&w.node, next, logger)
	return w
}

// NewMovingAverageNode returns a node that emits, per bucket and per
// series, the arithmetic mean of that series' float values in the bucket.
func NewMovingAverageNode(next Node, logger *log.Logger) *SlidingWindowNode {
	return newSlidingWindowNode(TypeMovingAverage, func() windowState { return &movingAverageState{} }, next, logger)
}

// NewMovingMedianNode returns a node that emits, per bucket and per
// series, the median (element at floor(n/2) once sorted) of that
// series' float values in the bucket.
func NewMovingMedianNode(next Node, logger *log.Logger) *SlidingWindowNode {
	return newSlidingWindowNode(TypeMovingMedian, func() windowState { return &movingMedianState{} }, next, logger)
}

func (w *SlidingWindowNode) Put(s Sample) bool {
	w.countIn()
	if s.IsEmpty() {
		return w.flush(s.Timestamp)
	}
	// Blob samples are ignored; only float payloads contribute.
	if !s.Payload.Flags.Has(FlagFloat) {
		return true
	}
	st, ok := w.states[s.ParamID]
	if !ok {
		st = w.newState()
		w.states[s.ParamID] = st
	}
	st.add(s.Payload.Float)
	return true
}

func (w *SlidingWindowNode) flush(ts uint64) bool {
	// Emission order across series within a bucket is unspecified; a
	// stable iteration order keeps test fixtures reproducible.
	ids := make([]uint64, 0, len(w.states))
	for id := range w.states {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		st := w.states[id]
		if !st.ready() {
			continue
		}
		sample := FloatSample(id, ts, st.value())
		st.reset()
		if !w.put(sample) {
			return false
		}
	}
	return w.put(EmptySample(ts))
}

func (w *SlidingWindowNode) Complete()          { w.next.Complete() }
func (w *SlidingWindowNode) SetError(st Status) { w.next.SetError(st) }
func (w *SlidingWindowNode) Type() NodeType     { return w.nodeTyp }

type movingAverageState struct {
	acc float64
	n   int
}

func (m *movingAverageState) add(v float64) { m.acc += v; m.n++ }
func (m *movingAverageState) ready() bool    { return m.n != 0 }
func (m *movingAverageState) value() float64 { return m.acc / float64(m.n) }
func (m *movingAverageState) reset()         { m.acc = 0; m.n = 0 }

type movingMedianState struct {
	values []float64
}

func (m *movingMedianState) add(v float64) { m.values = append(m.values, v) }
func (m *movingMedianState) ready() bool    { return len(m.values) > 0 }
func (m *movingMedianState) value() float64 {
	mid := len(m.values) / 2
	// Sorts a full copy; sorted[mid] is the element std::partial_sort up
	// to mid would place there in the source.
	sorted := append([]float64(nil), m.values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted[mid]
}
func (m *movingMedianState) reset() { m.values = nil }
