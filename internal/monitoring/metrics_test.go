package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherUptime(t *testing.T, reg *prometheus.Registry) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == "bashserver_uptime_seconds" {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatal("uptime metric not registered")
	return 0
}

func TestUptimeAdvancesWithoutTraffic(t *testing.T) {
	reg := prometheus.NewRegistry()
	newMetrics(reg)

	first := gatherUptime(t, reg)
	time.Sleep(20 * time.Millisecond)
	second := gatherUptime(t, reg)

	assert.Greater(t, second, first)
}

func TestRecordCommandCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := newMetrics(reg)

	m.RecordCommand("foreground", "completed", 50*time.Millisecond)
	m.RecordCommand("foreground", "completed", 10*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == "bashserver_commands_total" {
			assert.Equal(t, float64(2), mf.GetMetric()[0].GetCounter().GetValue())
			return
		}
	}
	t.Fatal("command counter not registered")
}
