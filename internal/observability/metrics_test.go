package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsForTesting_Independent(t *testing.T) {
	a := NewMetricsForTesting()
	b := NewMetricsForTesting()

	a.EstimatesTotal.WithLabelValues("selected").Inc()
	a.StageFailures.WithLabelValues("weighting").Add(2)

	assert.InDelta(t, 1, testutil.ToFloat64(a.EstimatesTotal.WithLabelValues("selected")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(a.StageFailures.WithLabelValues("weighting")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(b.EstimatesTotal.WithLabelValues("selected")), 0)
}
