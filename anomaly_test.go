package queryproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnomalyDetectorRejectsNegativeValues(t *testing.T) {
	sink := NewCollectorSink()
	d := newSMADetector(4, 0.5)
	a := NewAnomalyDetectorNode(d, sink, nil)

	ok := a.Put(FloatSample(1, 0, -1.0))
	assert.False(t, ok, "a negative value must abort the chain")
	assert.Equal(t, EAnomalyNegativeValue, sink.Status())
}

func TestAnomalyDetectorIgnoresBlobs(t *testing.T) {
	sink := NewCollectorSink()
	d := newSMADetector(4, 0.5)
	a := NewAnomalyDetectorNode(d, sink, nil)

	ok := a.Put(Sample{ParamID: 1, Payload: Payload{Flags: FlagParamID | FlagBlob, Blob: []byte("x")}})
	require.True(t, ok)
	assert.Len(t, sink.Samples(), 0)
}

func TestAnomalyDetectorForwardsOnlyCandidatesAsUrgent(t *testing.T) {
	sink := NewCollectorSink()
	d := newSMADetector(4, 0.5)
	a := NewAnomalyDetectorNode(d, sink, nil)

	// Warm up the window with steady values; none should be flagged.
	for i := 0; i < 4; i++ {
		require.True(t, a.Put(FloatSample(1, uint64(i), 10.0)))
	}
	require.True(t, a.Put(EmptySample(4)))

	// A wild outlier after the window fills must be flagged urgent.
	require.True(t, a.Put(FloatSample(1, 5, 100.0)))

	got := sink.Samples()
	require.Len(t, got, 2) // the flush sentinel, then the flagged outlier
	assert.True(t, got[0].IsEmpty())
	assert.True(t, got[1].Payload.Flags.Has(FlagUrgent))
	assert.Equal(t, 100.0, got[1].Payload.Float)
}

func TestAnomalyDetectorMovesSlidingWindowOnEmptySentinel(t *testing.T) {
	sink := NewCollectorSink()
	d := newSketchDetector(false, 4, 0.5, 3, 8)
	a := NewAnomalyDetectorNode(d, sink, nil)

	require.True(t, a.Put(FloatSample(1, 0, 10.0)))
	require.True(t, a.Put(EmptySample(1)))

	got := sink.Samples()
	require.Len(t, got, 1)
	assert.True(t, got[0].IsEmpty())
	// window=4 gives decay 0.75, so the sentinel ages 10.0 to 7.5.
	assert.Equal(t, 7.5, d.sketch.Estimate(1))
}

func TestEWMADetectorFirstValueIsNeverCandidate(t *testing.T) {
	d := newEWMADetector(4, 0.1)
	d.Add(1, 1000.0)
	assert.False(t, d.IsAnomalyCandidate(1))
}

func TestEWMADetectorFlagsDeviation(t *testing.T) {
	d := newEWMADetector(4, 0.1)
	d.Add(1, 10.0)
	d.Add(1, 10.0)
	d.Add(1, 10.0)
	d.Add(1, 1000.0)
	assert.True(t, d.IsAnomalyCandidate(1))
}
