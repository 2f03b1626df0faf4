package monitoring

import "time"

// Snapshot returns a copy of the current values for the JSON health API
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}

// AverageRequestDuration returns the mean HTTP request latency
func (m *Metrics) AverageRequestDuration() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.snapshot.RequestCount == 0 {
		return 0
	}
	avg := m.snapshot.TotalDuration / float64(m.snapshot.RequestCount)
	return time.Duration(avg * float64(time.Second))
}
