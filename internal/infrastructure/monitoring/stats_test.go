package monitoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorEmpty(t *testing.T) {
	a := NewAggregator(0)
	assert.Empty(t, a.Summary())
}

func TestAggregatorSummary(t *testing.T) {
	a := NewAggregator(100)
	for _, ms := range []float64{10, 20, 30, 40, 50} {
		a.Record("code", ms)
	}
	a.Record("sql", 5)

	summary := a.Summary()
	require.Contains(t, summary, "code")
	require.Contains(t, summary, "sql")

	code := summary["code"]
	assert.Equal(t, 5, code.Count)
	assert.InDelta(t, 30, code.MeanMs, 0.001)
	assert.Equal(t, float64(50), code.MaxMs)
	assert.LessOrEqual(t, code.P50Ms, code.P95Ms)
	assert.LessOrEqual(t, code.P95Ms, code.MaxMs)

	assert.Equal(t, 1, summary["sql"].Count)
	assert.Equal(t, float64(5), summary["sql"].MaxMs)
}

func TestAggregatorWindowTrims(t *testing.T) {
	a := NewAggregator(3)
	for i := 0; i < 10; i++ {
		a.Record("code", float64(i))
	}

	summary := a.Summary()
	require.Contains(t, summary, "code")
	assert.Equal(t, 3, summary["code"].Count)
	// Only the last three samples (7, 8, 9) remain.
	assert.InDelta(t, 8, summary["code"].MeanMs, 0.001)
	assert.Equal(t, float64(9), summary["code"].MaxMs)
}
