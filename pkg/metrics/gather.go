package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Sum gathers the registry and returns the sum of every sample of the named
// counter or gauge family across all label sets.
func Sum(g prometheus.Gatherer, fullName string) (float64, error) {
	families, err := g.Gather()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGatherFailed, err)
	}
	for _, mf := range families {
		if mf.GetName() != fullName {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		return total, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrMetricNotFound, fullName)
}
