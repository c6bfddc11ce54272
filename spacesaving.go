package queryproc

import (
	"log"
	"math"
	"sort"
)

type spaceSavingItem struct {
	count float64
	err   float64
}

// SpaceSavingNode implements the Space-Saving frequent-items/heavy-hitters
// algorithm: a bounded map of at most M = ceil(1/error) counters tracks
// approximate weights per series. When the map is full, a new id evicts
// the minimum-count entry, adds its count to the new id's count and
// records it as the new id's error, bounding the overcount to at most N/M.
//
// Unweighted (frequent-items): every sample counts with weight 1.
// Weighted (heavy-hitters): weight is the sample's float value; samples
// without FlagFloat are ignored.
type SpaceSavingNode struct {
	node
	nodeTyp  NodeType
	weighted bool
	error    float64
	portion  float64
	m        int
	counters map[uint64]spaceSavingItem
	total    float64
}

func newSpaceSavingNode(typ NodeType, weighted bool, errorRate, portion float64, next Node, logger *log.Logger) *SpaceSavingNode {
	n := &SpaceSavingNode{
		nodeTyp:  typ,
		weighted: weighted,
		error:    errorRate,
		portion:  portion,
		m:        int(math.Ceil(1.0 / errorRate)),
		counters: make(map[uint64]spaceSavingItem),
	}
	newNode(&n.node, next, logger)
	return n
}

// NewFrequentItemsNode returns an unweighted Space-Saving node: every
// sample contributes weight 1 regardless of its value.
func NewFrequentItemsNode(errorRate, portion float64, next Node, logger *log.Logger) *SpaceSavingNode {
	return newSpaceSavingNode(TypeFrequentItems, false, errorRate, portion, next, logger)
}

// NewHeavyHittersNode returns a weighted Space-Saving node: each sample
// contributes its float value as weight; blob samples are ignored.
func NewHeavyHittersNode(errorRate, portion float64, next Node, logger *log.Logger) *SpaceSavingNode {
	return newSpaceSavingNode(TypeHeavyHitters, true, errorRate, portion, next, logger)
}

func (n *SpaceSavingNode) Put(s Sample) bool {
	n.countIn()
	if s.IsEmpty() {
		return n.count()
	}
	weight := 1.0
	if n.weighted {
		if !s.Payload.Flags.Has(FlagFloat) {
			return true
		}
		weight = s.Payload.Float
	}
	id := s.ParamID
	item, ok := n.counters[id]
	if !ok {
		var errTerm float64
		count := weight
		if len(n.counters) == n.m {
			minID, minItem := n.findMin()
			delete(n.counters, minID)
			count += minItem.count
			errTerm = minItem.count
		}
		n.counters[id] = spaceSavingItem{count: count, err: errTerm}
	} else {
		item.count += weight
		n.counters[id] = item
	}
	n.total += weight
	return true
}

func (n *SpaceSavingNode) findMin() (uint64, spaceSavingItem) {
	var minID uint64
	minItem := spaceSavingItem{count: math.MaxFloat64}
	first := true
	for id, item := range n.counters {
		if first || item.count < minItem.count {
			minID, minItem = id, item
			first = false
		}
	}
	return minID, minItem
}

func (n *SpaceSavingNode) count() bool {
	support := n.total * n.portion
	type hit struct {
		id    uint64
		count float64
	}
	var hits []hit
	for id, item := range n.counters {
		estimate := item.count - item.err
		if support < estimate {
			hits = append(hits, hit{id, item.count})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].count > hits[j].count })
	for _, h := range hits {
		s := Sample{
			ParamID:   h.id,
			Payload:   Payload{Flags: FlagFloat | FlagParamID, Float: h.count},
		}
		if !n.put(s) {
			return false
		}
	}
	n.counters = make(map[uint64]spaceSavingItem)
	n.total = 0
	return true
}

func (n *SpaceSavingNode) Complete() {
	n.count()
	n.next.Complete()
}

func (n *SpaceSavingNode) SetError(st Status) { n.next.SetError(st) }
func (n *SpaceSavingNode) Type() NodeType     { return n.nodeTyp }
