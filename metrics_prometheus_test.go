package vecgo

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusMetricsCollector_RecordsOperations(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewPrometheusMetricsCollector(reg)

	vg, err := Open(testCfg(3), WithMetricsCollector(collector))
	require.NoError(t, err)

	id, err := vg.Insert([]float32{1, 2, 3}, nil)
	require.NoError(t, err)
	_, err = vg.SearchKNN([]float32{1, 2, 3}, 1)
	require.NoError(t, err)
	require.NoError(t, vg.Update(id, []float32{4, 5, 6}, nil))
	require.NoError(t, vg.Delete(id))

	metricFamilies, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, metricFamilies)

	var sawOperationsTotal bool
	for _, mf := range metricFamilies {
		if mf.GetName() == "vecgo_operations_total" {
			sawOperationsTotal = true
			assert.Len(t, mf.GetMetric(), 4) // insert, search, update, delete
		}
	}
	assert.True(t, sawOperationsTotal)
}
