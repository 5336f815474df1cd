package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestAuthMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IncLogin("success")
	m.IncLogin("success")
	m.IncLogin("invalid_credentials")
	m.IncLogout("success")
	m.ObserveBackend("success", 30*time.Millisecond)

	require.Equal(t, 2.0, testutil.ToFloat64(m.Logins.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues("invalid_credentials")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Logouts.WithLabelValues("success")))
	require.Equal(t, 1, testutil.CollectAndCount(m.BackendDuration))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *AuthMetrics
	m.IncLogin("success")
	m.IncLogout("success")
	m.ObserveBackend("success", time.Second)
}

func TestRegisterPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	inUse := int64(3)
	RegisterPool(reg, func() int64 { return inUse }, 16)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, f := range families {
		values[f.GetName()] = f.GetMetric()[0].GetGauge().GetValue()
	}
	require.Equal(t, 3.0, values["authgate_backend_pool_in_use"])
	require.Equal(t, 16.0, values["authgate_backend_pool_capacity"])
}
