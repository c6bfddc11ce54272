package queryproc

import (
	"log"
	"sync/atomic"

	"github.com/akumuli/queryproc/timer"
)

// NodeType tags the concrete kind of a Node, used by tests and logging.
type NodeType int

const (
	TypeFilterByID NodeType = iota
	TypeFilterByIDList
	TypeFilterOutByIDList
	TypeRandomSampler
	TypeMovingAverage
	TypeMovingMedian
	TypeFrequentItems
	TypeHeavyHitters
	TypeAnomalyDetector
	TypeTerminal
)

func (t NodeType) String() string {
	switch t {
	case TypeFilterByID:
		return "filter-by-id"
	case TypeFilterByIDList:
		return "filter-by-id-list"
	case TypeFilterOutByIDList:
		return "filter-out-by-id-list"
	case TypeRandomSampler:
		return "random-sampler"
	case TypeMovingAverage:
		return "moving-average"
	case TypeMovingMedian:
		return "moving-median"
	case TypeFrequentItems:
		return "frequent-items"
	case TypeHeavyHitters:
		return "heavy-hitters"
	case TypeAnomalyDetector:
		return "anomaly-detector"
	case TypeTerminal:
		return "terminal"
	default:
		return "unknown"
	}
}

// Node is the operator contract every stage of the pipeline implements.
//
// Put consumes one sample and returns true to continue, false to request
// termination. Complete signals end-of-stream and must be forwarded to
// the successor exactly once. SetError aborts the chain with a status,
// also forwarded to the successor. Type identifies the concrete operator
// for tests and logging.
//
// Implementations must: recognize the empty sentinel and act on it,
// forward Complete/SetError unchanged, never mutate a sample they pass
// through unchanged, and never reorder samples unless documented
// (the reservoir sampler and Space-Saving nodes are the only exceptions).
type Node interface {
	Put(s Sample) bool
	Complete()
	SetError(status Status)
	Type() NodeType
}

// node is embedded by every concrete operator. It owns the successor
// handle shared by construction, and tracks per-node execution
// statistics the same way every stage of the chain does.
type node struct {
	next Node

	logger *log.Logger
	timer  timer.Timer

	collected int64
	emitted   int64
	maxNanos  int64
}

// newNode initializes n in place, rather than building a
// local value and copying it out: the timer.Setter passed to timer.New
// must be the address of the struct Stats() eventually reads, and every
// concrete node embeds node by value, so the embedding constructor must
// call this on the address of its own embedded field (&r.node, not a
// freestanding local) or the Setter ends up pointing at an orphaned copy.
func newNode(n *node, next Node, logger *log.Logger) {
	n.next = next
	n.logger = logger
	n.timer = timer.New(1.0, 64, n)
}

// Set implements timer.Setter; it records the current moving-average
// duration as a running maximum.
func (n *node) Set(avgNanos int64) {
	for {
		cur := atomic.LoadInt64(&n.maxNanos)
		if avgNanos <= cur {
			return
		}
		if atomic.CompareAndSwapInt64(&n.maxNanos, cur, avgNanos) {
			return
		}
	}
}

func (n *node) countIn()  { atomic.AddInt64(&n.collected, 1) }
func (n *node) countOut() { atomic.AddInt64(&n.emitted, 1) }

// Stats returns a snapshot of this node's execution statistics.
func (n *node) Stats() map[string]interface{} {
	return map[string]interface{}{
		"collected":      atomic.LoadInt64(&n.collected),
		"emitted":        atomic.LoadInt64(&n.emitted),
		"avg_exec_ns_max": atomic.LoadInt64(&n.maxNanos),
	}
}

// put forwards a sample to the successor, counting it and timing the
// call the way kapacitor's edge.timed wraps its own forwarding calls.
func (n *node) put(s Sample) bool {
	n.timer.Start()
	ok := n.next.Put(s)
	n.timer.Stop()
	if ok {
		n.countOut()
	}
	return ok
}
