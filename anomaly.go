package queryproc

import (
	"log"
	"math"
)

// Detector is the abstract forecasting-based anomaly detector the
// adapter node wraps. Its internal sketch/ring-buffer implementation is
// treated as an opaque collaborator; only this contract matters to the
// pipeline.
type Detector interface {
	Add(id uint64, value float64)
	IsAnomalyCandidate(id uint64) bool
	MoveSlidingWindow()
}

// AnomalyDetectorNode rejects negative float values with
// EAnomalyNegativeValue, forwards only samples the wrapped Detector
// flags as anomaly candidates (elevated with FlagUrgent), and drops
// everything else: the detector is an event filter, not a passthrough.
// Blob samples are ignored. On an empty sentinel it asks the detector to
// move its sliding window, then forwards the sentinel.
type AnomalyDetectorNode struct {
	node
	detector Detector
}

// NewAnomalyDetectorNode wraps detector behind the node contract.
func NewAnomalyDetectorNode(detector Detector, next Node, logger *log.Logger) *AnomalyDetectorNode {
	a := &AnomalyDetectorNode{detector: detector}
	newNode(&a.node, next, logger)
	return a
}

func (a *AnomalyDetectorNode) Put(s Sample) bool {
	a.countIn()
	if s.IsEmpty() {
		a.detector.MoveSlidingWindow()
		return a.put(s)
	}
	if !s.Payload.Flags.Has(FlagFloat) {
		// Ignore BLOBs.
		return true
	}
	v := s.Payload.Float
	if v < 0.0 {
		a.SetError(EAnomalyNegativeValue)
		return false
	}
	a.detector.Add(s.ParamID, v)
	if a.detector.IsAnomalyCandidate(s.ParamID) {
		return a.put(s.WithUrgent())
	}
	return true
}

func (a *AnomalyDetectorNode) Complete()          { a.next.Complete() }
func (a *AnomalyDetectorNode) SetError(st Status) { a.next.SetError(st) }
func (a *AnomalyDetectorNode) Type() NodeType     { return TypeAnomalyDetector }

// ForecastMethod names the forecasting algorithm behind an anomaly
// detector, mirroring AnomalyDetector::FcastMethod in the source.
type ForecastMethod int

const (
	MethodSMA ForecastMethod = iota
	MethodEWMA
	MethodSMASketch
	MethodEWMASketch
	MethodDoubleHoltWinters
	MethodDoubleHoltWintersSketch
)

// ring is a fixed-capacity, count-based sliding window per series used
// by the exact SMA detector.
type ring struct {
	values []float64
	cap    int
	sum    float64
}

func newRing(cap int) *ring { return &ring{cap: cap} }

func (r *ring) push(v float64) {
	r.values = append(r.values, v)
	r.sum += v
	if len(r.values) > r.cap {
		r.sum -= r.values[0]
		r.values = r.values[1:]
	}
}

func (r *ring) mean() float64 {
	if len(r.values) == 0 {
		return 0
	}
	return r.sum / float64(len(r.values))
}

// smaDetector flags a value as a candidate when it deviates from the
// simple moving average of the preceding `window` values by more than
// threshold (a fraction of the average).
type smaDetector struct {
	window    int
	threshold float64
	series    map[uint64]*ring
	candidate map[uint64]bool
}

func newSMADetector(window int, threshold float64) *smaDetector {
	return &smaDetector{window: window, threshold: threshold, series: map[uint64]*ring{}, candidate: map[uint64]bool{}}
}

func (d *smaDetector) Add(id uint64, value float64) {
	r, ok := d.series[id]
	if !ok {
		r = newRing(d.window)
		d.series[id] = r
	}
	mean := r.mean()
	d.candidate[id] = len(r.values) >= d.window && mean > 0 && math.Abs(value-mean) > d.threshold*mean
	r.push(value)
}

func (d *smaDetector) IsAnomalyCandidate(id uint64) bool { return d.candidate[id] }
func (d *smaDetector) MoveSlidingWindow()                {}

// ewmaDetector is identical in spirit to smaDetector but forecasts with
// an exponentially-weighted moving average, decay alpha = 2/(window+1).
type ewmaDetector struct {
	alpha     float64
	threshold float64
	estimate  map[uint64]float64
	seen      map[uint64]bool
	candidate map[uint64]bool
}

func newEWMADetector(window int, threshold float64) *ewmaDetector {
	return &ewmaDetector{
		alpha:     2.0 / float64(window+1),
		threshold: threshold,
		estimate:  map[uint64]float64{},
		seen:      map[uint64]bool{},
		candidate: map[uint64]bool{},
	}
}

func (d *ewmaDetector) Add(id uint64, value float64) {
	est, ok := d.estimate[id]
	if !ok {
		d.estimate[id] = value
		d.candidate[id] = false
		return
	}
	d.candidate[id] = est > 0 && math.Abs(value-est) > d.threshold*est
	d.estimate[id] = d.alpha*value + (1-d.alpha)*est
}

func (d *ewmaDetector) IsAnomalyCandidate(id uint64) bool { return d.candidate[id] }
func (d *ewmaDetector) MoveSlidingWindow()                {}

// sketchDetector backs the approximate ("-sketch") SMA/EWMA variants: a
// countingSketch replaces the exact per-id map, trading memory bounded
// by hashes*2^bits for estimation error. MoveSlidingWindow decays the
// sketch, aging out old contributions the way a real sliding-window
// sketch forgets stale data.
type sketchDetector struct {
	ewma      bool
	alpha     float64
	threshold float64
	sketch    *countingSketch
	countSeen *countingSketch
	candidate map[uint64]bool
	decay     float64
}

func newSketchDetector(ewma bool, window int, threshold float64, hashes int, bits uint) *sketchDetector {
	return &sketchDetector{
		ewma:      ewma,
		alpha:     2.0 / float64(window+1),
		threshold: threshold,
		sketch:    newCountingSketch(hashes, bits),
		countSeen: newCountingSketch(hashes, bits),
		candidate: map[uint64]bool{},
		decay:     1.0 - 1.0/float64(window),
	}
}

func (d *sketchDetector) Add(id uint64, value float64) {
	n := d.countSeen.Estimate(id)
	est := d.sketch.Estimate(id)
	if n <= 0 {
		d.sketch.Add(id, value)
		d.countSeen.Add(id, 1)
		d.candidate[id] = false
		return
	}
	mean := est / n
	d.candidate[id] = mean > 0 && math.Abs(value-mean) > d.threshold*mean
	if d.ewma {
		d.sketch.Add(id, d.alpha*value-d.alpha*mean)
	} else {
		d.sketch.Add(id, value)
		d.countSeen.Add(id, 1)
	}
}

func (d *sketchDetector) IsAnomalyCandidate(id uint64) bool { return d.candidate[id] }

func (d *sketchDetector) MoveSlidingWindow() {
	d.sketch.Decay(d.decay)
	d.countSeen.Decay(d.decay)
}
