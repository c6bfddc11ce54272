package queryproc

import "log"

// idPredicate is the unary functor over a paramid used by the three
// filter variants.
type idPredicate func(id uint64) bool

// FilterNode forwards data samples whose paramid satisfies a predicate
// and always forwards empty sentinels, since they are time-bucket
// boundaries and must never be filtered out.
type FilterNode struct {
	node
	pred    idPredicate
	nodeTyp NodeType
}

func newFilterNode(typ NodeType, pred idPredicate, next Node, logger *log.Logger) *FilterNode {
	f := &FilterNode{pred: pred, nodeTyp: typ}
	newNode(&f.node, next, logger)
	return f
}

// NewFilterByID returns a node that forwards only samples with id == target.
func NewFilterByID(target uint64, next Node, logger *log.Logger) *FilterNode {
	return newFilterNode(TypeFilterByID, func(id uint64) bool { return id == target }, next, logger)
}

// NewFilterByIDList returns a node that forwards only samples whose id is in ids.
func NewFilterByIDList(ids []uint64, next Node, logger *log.Logger) *FilterNode {
	set := idSet(ids)
	return newFilterNode(TypeFilterByIDList, func(id uint64) bool { return set[id] }, next, logger)
}

// NewFilterOutByIDList returns a node that drops samples whose id is in ids.
func NewFilterOutByIDList(ids []uint64, next Node, logger *log.Logger) *FilterNode {
	set := idSet(ids)
	return newFilterNode(TypeFilterOutByIDList, func(id uint64) bool { return !set[id] }, next, logger)
}

func idSet(ids []uint64) map[uint64]bool {
	set := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func (f *FilterNode) Put(s Sample) bool {
	f.countIn()
	if s.IsEmpty() {
		return f.put(s)
	}
	if f.pred(s.ParamID) {
		return f.put(s)
	}
	return true
}

func (f *FilterNode) Complete()          { f.next.Complete() }
func (f *FilterNode) SetError(st Status) { f.next.SetError(st) }
func (f *FilterNode) Type() NodeType     { return f.nodeTyp }
