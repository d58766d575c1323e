package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRelay(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRelay(reg)

	m.Relayed(3)
	m.Relayed(2)
	m.Failed()
	m.Idle()
	m.Idle()

	require.Equal(t, 5.0, testutil.ToFloat64(m.relayed))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failed))
	require.Equal(t, 2.0, testutil.ToFloat64(m.idle))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestNilRelay(t *testing.T) {
	var m *Relay

	require.NotPanics(t, func() {
		m.Relayed(1)
		m.Failed()
		m.Idle()
	})
}
