package obs_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowmd/itchmd/internal/model"
	"github.com/flowmd/itchmd/internal/obs"
)

func TestMetricsSyncReflectsStatsSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := &model.Stats{}
	m := obs.NewMetrics(reg, stats)

	stats.PacketsReceived.Add(5)
	stats.ParseErrors.Add(2)
	m.Sync()

	families, err := reg.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				values[f.GetName()] = c.GetValue()
			}
		}
	}

	assert.Equal(t, 5.0, values["itchmd_packets_received_total"])
	assert.Equal(t, 2.0, values["itchmd_parse_errors_total"])
}

func TestMetricsObserveLatencyRecordsIntoHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := &model.Stats{}
	m := obs.NewMetrics(reg, stats)

	m.ObserveLatency(500)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() != "itchmd_dispatch_latency_seconds" {
			continue
		}
		for _, metric := range f.GetMetric() {
			if h := metric.GetHistogram(); h != nil {
				assert.EqualValues(t, 1, h.GetSampleCount())
				found = true
			}
		}
	}
	assert.True(t, found, "expected the dispatch latency histogram to be registered")
}

func TestNewLoggerReturnsUsableLogger(t *testing.T) {
	log, sync := obs.NewLogger(false)
	require.NotNil(t, log)
	log.Info("test message", "key", "value")
	_ = sync()
}
