package queryproc

import (
	"testing"

	"github.com/akumuli/queryproc/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderBuildsReservoir(t *testing.T) {
	b := NewBuilder(nil, nil, 1)
	sink := NewCollectorSink()
	n, err := b.Build([]byte(`{"name":"reservoir","size":50}`), sink)
	require.NoError(t, err)
	assert.Equal(t, TypeRandomSampler, n.Type())
}

func TestBuilderReservoirFallsBackToConfigDefault(t *testing.T) {
	cfg := config.Default()
	cfg.Sampler.DefaultReservoirSize = 7
	b := NewBuilder(&cfg, nil, 1)
	sink := NewCollectorSink()

	n, err := b.Build([]byte(`{"name":"reservoir"}`), sink)
	require.NoError(t, err)
	rn := n.(*ReservoirNode)
	assert.Equal(t, uint32(7), rn.size)
}

func TestBuilderRejectsZeroSizeReservoir(t *testing.T) {
	b := NewBuilder(nil, nil, 1)
	_, err := b.Build([]byte(`{"name":"reservoir","size":0}`), NewCollectorSink())
	require.Error(t, err)
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
}

func TestBuilderBuildsMovingAverageAndMedian(t *testing.T) {
	b := NewBuilder(nil, nil, 1)
	sink := NewCollectorSink()

	avg, err := b.Build([]byte(`{"name":"moving-average"}`), sink)
	require.NoError(t, err)
	assert.Equal(t, TypeMovingAverage, avg.Type())

	median, err := b.Build([]byte(`{"name":"moving-median"}`), sink)
	require.NoError(t, err)
	assert.Equal(t, TypeMovingMedian, median.Type())
}

func TestBuilderBuildsFrequentItemsAndHeavyHitters(t *testing.T) {
	b := NewBuilder(nil, nil, 1)
	sink := NewCollectorSink()

	fi, err := b.Build([]byte(`{"name":"frequent-items","error":"0.05","portion":0.2}`), sink)
	require.NoError(t, err, "numeric-string params must coerce via cast")
	assert.Equal(t, TypeFrequentItems, fi.Type())

	hh, err := b.Build([]byte(`{"name":"heavy-hitters"}`), sink)
	require.NoError(t, err)
	assert.Equal(t, TypeHeavyHitters, hh.Type())
}

func TestBuilderRejectsInvalidErrorRange(t *testing.T) {
	b := NewBuilder(nil, nil, 1)
	_, err := b.Build([]byte(`{"name":"frequent-items","error":1.5}`), NewCollectorSink())
	require.Error(t, err)
}

func TestBuilderBuildsAnomalyDetector(t *testing.T) {
	b := NewBuilder(nil, nil, 1)
	sink := NewCollectorSink()

	n, err := b.Build([]byte(`{"name":"anomaly-detector","method":"sma","threshold":0.5,"window":4}`), sink)
	require.NoError(t, err)
	assert.Equal(t, TypeAnomalyDetector, n.Type())
}

func TestBuilderBuildsApproximateAnomalyDetector(t *testing.T) {
	b := NewBuilder(nil, nil, 1)
	sink := NewCollectorSink()

	n, err := b.Build([]byte(`{"name":"anomaly-detector","method":"ewma","threshold":0.5,"window":4,"approx":true,"bits":6,"hashes":2}`), sink)
	require.NoError(t, err)
	assert.Equal(t, TypeAnomalyDetector, n.Type())
}

func TestBuilderRejectsDoubleHoltWinters(t *testing.T) {
	b := NewBuilder(nil, nil, 1)
	_, err := b.Build([]byte(`{"name":"anomaly-detector","method":"double-hw","threshold":0.5}`), NewCollectorSink())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not implemented")
}

func TestBuilderRejectsUnknownSampler(t *testing.T) {
	b := NewBuilder(nil, nil, 1)
	_, err := b.Build([]byte(`{"name":"not-a-real-sampler"}`), NewCollectorSink())
	require.Error(t, err)
}

func TestBuilderRejectsMalformedJSON(t *testing.T) {
	b := NewBuilder(nil, nil, 1)
	_, err := b.Build([]byte(`not json`), NewCollectorSink())
	require.Error(t, err)
}

func TestBuilderFilterFactories(t *testing.T) {
	b := NewBuilder(nil, nil, 1)
	sink := NewCollectorSink()

	assert.Equal(t, TypeFilterByID, b.BuildFilterByID(1, sink).Type())
	assert.Equal(t, TypeFilterByIDList, b.BuildFilterByIDList([]uint64{1, 2}, sink).Type())
	assert.Equal(t, TypeFilterOutByIDList, b.BuildFilterOutByIDList([]uint64{1, 2}, sink).Type())
}
