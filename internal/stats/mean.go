// Package stats holds small accumulators for queue-health reporting.
package stats

// Mean is a cumulative arithmetic mean over observed samples.
// It is intentionally a plain long-run mean rather than an exponentially
// decayed one: the consumer multiplies it by queue length to estimate wait
// time, which wants the long-run average service time.
//
// Mean is not safe for concurrent use; callers serialize access.
type Mean struct {
	n   uint64
	avg float64
}

// Observe folds one sample into the mean.
func (m *Mean) Observe(v float64) {
	m.n++
	m.avg += (v - m.avg) / float64(m.n)
}

// Value returns the current mean, 0 when nothing was observed.
func (m *Mean) Value() float64 { return m.avg }

// Count returns the number of observed samples.
func (m *Mean) Count() uint64 { return m.n }
