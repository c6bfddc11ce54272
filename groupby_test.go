package queryproc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGroupByTimeDisabled(t *testing.T) {
	sink := NewCollectorSink()
	g := NewGroupByTime(0)

	require.True(t, g.Put(FloatSample(1, 100, 1.0), sink))
	got := sink.Samples()
	require.Len(t, got, 1)
	require.Equal(t, uint64(100), got[0].Timestamp)
}

func TestGroupByTimeInjectsBoundaries(t *testing.T) {
	sink := NewCollectorSink()
	g := NewGroupByTime(10)

	require.True(t, g.Put(FloatSample(1, 5, 1.0), sink))
	require.True(t, g.Put(FloatSample(1, 12, 2.0), sink))
	require.True(t, g.Put(FloatSample(1, 27, 3.0), sink))

	got := sink.Samples()
	require.Len(t, got, 5)

	require.Equal(t, uint64(5), got[0].Timestamp)
	require.False(t, got[0].IsEmpty())

	require.True(t, got[1].IsEmpty())
	require.Equal(t, uint64(10), got[1].Timestamp)

	require.Equal(t, uint64(12), got[2].Timestamp)
	require.False(t, got[2].IsEmpty())

	require.True(t, got[3].IsEmpty())
	require.Equal(t, uint64(20), got[3].Timestamp)

	require.Equal(t, uint64(27), got[4].Timestamp)
}

// TestGroupByTimeCrossesGapsOfMultipleBuckets exercises the looping
// crossing driver: a jump larger than one bucket width must still
// produce one boundary sentinel per bucket crossed, not just one.
func TestGroupByTimeCrossesGapsOfMultipleBuckets(t *testing.T) {
	sink := NewCollectorSink()
	g := NewGroupByTime(10)

	require.True(t, g.Put(FloatSample(1, 1, 1.0), sink))
	require.True(t, g.Put(FloatSample(1, 45, 2.0), sink))

	got := sink.Samples()
	// sample@1, empty@10, empty@20, empty@30, empty@40, sample@45
	require.Len(t, got, 6)
	require.True(t, got[1].IsEmpty())
	require.Equal(t, uint64(10), got[1].Timestamp)
	require.True(t, got[2].IsEmpty())
	require.Equal(t, uint64(20), got[2].Timestamp)
	require.True(t, got[3].IsEmpty())
	require.Equal(t, uint64(30), got[3].Timestamp)
	require.True(t, got[4].IsEmpty())
	require.Equal(t, uint64(40), got[4].Timestamp)
	require.Equal(t, uint64(45), got[5].Timestamp)
}

// TestGroupByTimeWithFilter composes the driver with a filter node
// ahead of the sink, the way a real scan query chains bucketing before
// the operator chain proper.
func TestGroupByTimeWithFilter(t *testing.T) {
	sink := NewCollectorSink()
	root := NewFilterByID(1, sink, nil)
	g := NewGroupByTime(10)

	require.True(t, g.Put(FloatSample(1, 5, 1.0), root))
	require.True(t, g.Put(FloatSample(2, 8, 9.0), root))
	require.True(t, g.Put(FloatSample(1, 12, 2.0), root))

	got := sink.Samples()
	// id 2's sample is filtered out; the boundary sentinel triggered by
	// the ts=12 sample must still pass the filter and reach the sink.
	require.Len(t, got, 3)
	require.Equal(t, uint64(1), got[0].ParamID)
	require.True(t, got[1].IsEmpty())
	require.Equal(t, uint64(1), got[2].ParamID)
}
