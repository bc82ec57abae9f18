package telemetry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evsecdev/orchestrator/internal/model"
)

func TestMetricsRecordTalliesByStatus(t *testing.T) {
	m := NewMetrics(nil)
	m.Record("host1", model.Result{Status: model.SUCCESS})
	m.Record("host2", model.Result{Status: model.FAIL, Message: "boom"})
	m.Record("host3", model.Result{Status: model.CHANGED})

	summary := m.Report()
	require.Equal(t, 1, summary.Counters["SUCCESS"])
	require.Equal(t, 1, summary.Counters["FAIL"])
	require.Equal(t, 1, summary.Counters["CHANGED"])
	require.Equal(t, "boom", summary.Failures["host2"])
}

func TestMetricsAddBytesAccumulates(t *testing.T) {
	m := NewMetrics(nil)
	m.AddBytes(100)
	m.AddBytes(250)

	require.Equal(t, 350, m.Report().BytesSent)
}

func TestMetricsReportJSONRoundTrips(t *testing.T) {
	m := NewMetrics(nil)
	m.Start()
	m.Record("host1", model.Result{Status: model.SUCCESS})
	m.End()

	out, err := m.ReportJSON()
	require.NoError(t, err)
	require.Contains(t, out, `"SUCCESS": 1`)
}
