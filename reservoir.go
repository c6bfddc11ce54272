package queryproc

import (
	"log"
	"math/rand"
	"sort"
)

// ReservoirNode implements reservoir sampling over each time bucket
// using the Vitter R variant: the first k data samples fill the buffer,
// then each subsequent sample replaces a uniformly-random slot with
// probability k/n. On flush the buffer is sorted by (timestamp, paramid)
// and emitted in order; downstream expects buckets to be ordered even
// though reservoir sampling loses arrival order.
type ReservoirNode struct {
	node
	size uint32
	buf  []Sample
	seen uint64
	rng  *rand.Rand
}

// NewReservoirNode returns a reservoir sampler of the given capacity.
// rngSeed seeds the per-node PRNG so statistical tests can reproduce
// results deterministically.
func NewReservoirNode(size uint32, rngSeed int64, next Node, logger *log.Logger) *ReservoirNode {
	r := &ReservoirNode{
		size: size,
		buf:  make([]Sample, 0, size),
		rng:  rand.New(rand.NewSource(rngSeed)),
	}
	newNode(&r.node, next, logger)
	return r
}

func (r *ReservoirNode) Put(s Sample) bool {
	r.countIn()
	if s.IsEmpty() {
		return r.flush()
	}
	r.seen++
	if uint32(len(r.buf)) < r.size {
		r.buf = append(r.buf, s)
		return true
	}
	// Vitter R: the n-th data sample since the last flush (n > k) draws
	// r uniformly from [0, n); only a draw landing inside the first k
	// slots replaces that slot. Drawing modulo the fixed buffer length
	// instead of the growing count n would replace on every sample.
	ix := uint64(r.rng.Int63n(int64(r.seen)))
	if ix < uint64(r.size) {
		r.buf[ix] = s
	}
	return true
}

func (r *ReservoirNode) flush() bool {
	sort.SliceStable(r.buf, func(i, j int) bool {
		a, b := r.buf[i], r.buf[j]
		if a.Timestamp != b.Timestamp {
			return a.Timestamp < b.Timestamp
		}
		return a.ParamID < b.ParamID
	})
	for _, s := range r.buf {
		if !r.put(s) {
			return false
		}
	}
	r.buf = r.buf[:0]
	r.seen = 0
	return true
}

func (r *ReservoirNode) Complete() {
	r.flush()
	r.next.Complete()
}

func (r *ReservoirNode) SetError(st Status) { r.next.SetError(st) }
func (r *ReservoirNode) Type() NodeType     { return TypeRandomSampler }
