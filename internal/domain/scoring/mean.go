// Package scoring holds the pure arithmetic that turns graded events into
// running statistics. Nothing here performs I/O, reads the clock or locks;
// callers own persistence and serialise writes per aggregate.
//
// Degenerate denominators never produce errors: rates fall back to 0 and
// rates over time stay unchanged.
package scoring

// Mean is an O(1) running average: Count observations with mean Value.
type Mean struct {
	Count int64
	Value float64
}

// Add folds x into the mean using avg_n = avg_{n-1} + (x - avg_{n-1}) / n.
func (m *Mean) Add(x float64) {
	m.Count++
	m.Value += (x - m.Value) / float64(m.Count)
}

// incrementalMean returns the mean after adding x as the n-th observation
// to a mean built from n-1 observations. n <= 0 returns prev unchanged.
func incrementalMean(prev, x float64, n int64) float64 {
	if n <= 0 {
		return prev
	}
	return prev + (x-prev)/float64(n)
}

// percent returns part/whole*100, or 0 when whole is 0.
func percent(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
