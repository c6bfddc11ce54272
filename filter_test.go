package queryproc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterByID(t *testing.T) {
	sink := NewCollectorSink()
	f := NewFilterByID(5, sink, nil)

	require.True(t, f.Put(FloatSample(5, 1, 1.0)))
	require.True(t, f.Put(FloatSample(6, 2, 2.0)))
	require.True(t, f.Put(EmptySample(3)))
	f.Complete()

	got := sink.Samples()
	require.Len(t, got, 2)
	assert.Equal(t, uint64(5), got[0].ParamID)
	assert.True(t, got[1].IsEmpty(), "empty sentinels must always pass a filter")
	assert.True(t, sink.Done())
}

func TestFilterByIDList(t *testing.T) {
	sink := NewCollectorSink()
	f := NewFilterByIDList([]uint64{1, 2}, sink, nil)

	f.Put(FloatSample(1, 0, 0))
	f.Put(FloatSample(2, 0, 0))
	f.Put(FloatSample(3, 0, 0))

	got := sink.Samples()
	require.Len(t, got, 2)
	assert.ElementsMatch(t, []uint64{1, 2}, []uint64{got[0].ParamID, got[1].ParamID})
	assert.Equal(t, TypeFilterByIDList, f.Type())
}

func TestFilterOutByIDList(t *testing.T) {
	sink := NewCollectorSink()
	f := NewFilterOutByIDList([]uint64{1}, sink, nil)

	f.Put(FloatSample(1, 0, 0))
	f.Put(FloatSample(2, 0, 0))

	got := sink.Samples()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(2), got[0].ParamID)
	assert.Equal(t, TypeFilterOutByIDList, f.Type())
}

func TestFilterPropagatesError(t *testing.T) {
	sink := NewCollectorSink()
	f := NewFilterByID(1, sink, nil)

	f.SetError(EAnomalyNegativeValue)
	assert.Equal(t, EAnomalyNegativeValue, sink.Status())
}
