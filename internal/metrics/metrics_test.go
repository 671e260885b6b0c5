package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAllCollectorsWithoutPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { New(reg) })
}

func TestNew_CountersStartAtZero(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ConnectionsTotal.Inc()
	m.BytesRead.Add(10)

	require.Equal(t, float64(1), counterValue(t, m.ConnectionsTotal))
	require.Equal(t, float64(10), counterValue(t, m.BytesRead))
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	pb := &dto.Metric{}
	require.NoError(t, c.Write(pb))
	return pb.GetCounter().GetValue()
}
