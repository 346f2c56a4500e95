package monitoring

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"
)

// Aggregator keeps a bounded window of recent durations per kind and derives
// percentile summaries for the JSON metrics endpoint.
type Aggregator struct {
	mu        sync.Mutex
	durations map[string][]float64
	window    int
}

// KindSummary is the derived view for one kind.
type KindSummary struct {
	Count  int     `json:"count"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P95Ms  float64 `json:"p95_ms"`
	MaxMs  float64 `json:"max_ms"`
}

// NewAggregator creates an aggregator keeping the last window samples per kind.
func NewAggregator(window int) *Aggregator {
	if window <= 0 {
		window = 512
	}
	return &Aggregator{
		durations: make(map[string][]float64),
		window:    window,
	}
}

// Record adds one duration sample.
func (a *Aggregator) Record(kind string, ms float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	samples := append(a.durations[kind], ms)
	if len(samples) > a.window {
		samples = samples[len(samples)-a.window:]
	}
	a.durations[kind] = samples
}

// Summary derives per-kind statistics from the current window.
func (a *Aggregator) Summary() map[string]KindSummary {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make(map[string]KindSummary, len(a.durations))
	for kind, samples := range a.durations {
		if len(samples) == 0 {
			continue
		}
		sorted := append([]float64{}, samples...)
		sort.Float64s(sorted)

		out[kind] = KindSummary{
			Count:  len(sorted),
			MeanMs: stat.Mean(sorted, nil),
			P50Ms:  stat.Quantile(0.5, stat.Empirical, sorted, nil),
			P95Ms:  stat.Quantile(0.95, stat.Empirical, sorted, nil),
			MaxMs:  sorted[len(sorted)-1],
		}
	}
	return out
}
