package queryproc

import (
	"log"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Direction is the scan direction of a query processor's producer.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// MaxTimestamp is the sentinel upper bound a MetadataQueryProcessor
// reports, mirroring AKU_MAX_TIMESTAMP in the C ABI.
const MaxTimestamp = ^uint64(0)

// QueryProcessor exposes the producer-facing contract both top-level
// processor shapes implement.
type QueryProcessor interface {
	Start() bool
	Put(s Sample) bool
	Stop()
	SetError(status Status)
	LowerBound() uint64
	UpperBound() uint64
	Direction() Direction
}

// ScanQueryProcessor drives a sample stream from a storage cursor scan
// through a group-by-time driver into a root Node.
type ScanQueryProcessor struct {
	id      uuid.UUID
	root    Node
	metrics []string
	lower   uint64
	upper   uint64
	dir     Direction
	groupBy *GroupByTime
	logger  *log.Logger
}

// NewScanQueryProcessor constructs a processor. Direction is forward
// when end >= begin, backward otherwise; lower/upper are min/max(begin,end).
func NewScanQueryProcessor(root Node, metrics []string, begin, end uint64, groupBy *GroupByTime, logger *log.Logger) *ScanQueryProcessor {
	lower, upper := begin, end
	dir := Forward
	if begin > end {
		lower, upper = end, begin
		dir = Backward
	}
	if groupBy == nil {
		groupBy = NewGroupByTime(0)
	}
	p := &ScanQueryProcessor{
		id:      uuid.New(),
		root:    root,
		metrics: metrics,
		lower:   lower,
		upper:   upper,
		dir:     dir,
		groupBy: groupBy,
		logger:  logger,
	}
	if p.logger != nil {
		p.logger.Printf("I! scan query %s: metrics=%v direction=%s", p.id, metrics, dir)
	}
	return p
}

func (p *ScanQueryProcessor) Start() bool { return true }

func (p *ScanQueryProcessor) Put(s Sample) bool {
	return p.groupBy.Put(s, p.root)
}

func (p *ScanQueryProcessor) Stop() {
	p.root.Complete()
}

func (p *ScanQueryProcessor) SetError(status Status) {
	if p.logger != nil {
		p.logger.Printf("E! scan query %s: %s", p.id, status)
	}
	p.root.SetError(status)
}

func (p *ScanQueryProcessor) LowerBound() uint64  { return p.lower }
func (p *ScanQueryProcessor) UpperBound() uint64  { return p.upper }
func (p *ScanQueryProcessor) Direction() Direction { return p.dir }

// MetadataQueryProcessor is source-driven: Start synthesizes one
// zero-timestamp sample per id and pushes it through the chain itself,
// rather than waiting for a storage cursor to call Put.
type MetadataQueryProcessor struct {
	id     uuid.UUID
	ids    []uint64
	root   Node
	logger *log.Logger
}

// NewMetadataQueryProcessor constructs a processor over a fixed id list.
func NewMetadataQueryProcessor(ids []uint64, root Node, logger *log.Logger) *MetadataQueryProcessor {
	p := &MetadataQueryProcessor{id: uuid.New(), ids: ids, root: root, logger: logger}
	if p.logger != nil {
		p.logger.Printf("I! metadata query %s: %s ids", p.id, humanize.Comma(int64(len(ids))))
	}
	return p
}

func (p *MetadataQueryProcessor) Start() bool {
	for _, id := range p.ids {
		if !p.root.Put(ParamIDSample(id, 0)) {
			return false
		}
	}
	return true
}

// Put is source-driven, never sink-driven: it always returns false.
func (p *MetadataQueryProcessor) Put(Sample) bool { return false }

func (p *MetadataQueryProcessor) Stop() { p.root.Complete() }

func (p *MetadataQueryProcessor) SetError(status Status) {
	if p.logger != nil {
		p.logger.Printf("E! metadata query %s: %s", p.id, status)
	}
	p.root.SetError(status)
}

func (p *MetadataQueryProcessor) LowerBound() uint64   { return MaxTimestamp }
func (p *MetadataQueryProcessor) UpperBound() uint64   { return MaxTimestamp }
func (p *MetadataQueryProcessor) Direction() Direction { return Forward }
