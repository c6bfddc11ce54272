package queryproc

// GroupByTime injects empty-sentinel bucket boundaries into a sample
// stream based on each sample's timestamp, ahead of a root Node. A
// width of 0 disables bucketing entirely. Bounds are initialized from
// the first data sample seen; boundary sentinels are emitted before the
// sample that crosses them, and the driver loops until the sample falls
// back inside [lower, upper) so gaps larger than one bucket width still
// produce one sentinel per crossing.
type GroupByTime struct {
	width   uint64
	lower   uint64
	upper   uint64
	started bool
}

// NewGroupByTime returns a driver with bucket width. width == 0 means
// bucketing is disabled and Put forwards samples unchanged.
func NewGroupByTime(width uint64) *GroupByTime {
	return &GroupByTime{width: width}
}

// Put feeds one data sample through the driver and into root, emitting
// any bucket-boundary sentinels first.
func (g *GroupByTime) Put(s Sample, root Node) bool {
	if g.width == 0 {
		return root.Put(s)
	}
	ts := s.Timestamp
	if !g.started {
		g.started = true
		aligned := (ts / g.width) * g.width
		g.lower = aligned
		g.upper = aligned + g.width
	}
	for ts >= g.upper {
		if !root.Put(EmptySample(g.upper)) {
			return false
		}
		g.lower += g.width
		g.upper += g.width
	}
	for ts < g.lower {
		if !root.Put(EmptySample(g.upper)) {
			return false
		}
		g.lower -= g.width
		g.upper -= g.width
	}
	return root.Put(s)
}
