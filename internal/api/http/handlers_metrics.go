package http

import "github.com/GriffinCanCode/ProfileDeck/backend/internal/infrastructure/monitoring"

// HandlerMetrics wraps handlers with metrics tracking
type HandlerMetrics struct {
	metrics *monitoring.Metrics
}

// NewHandlerMetrics creates a metrics wrapper; a nil metrics disables tracking
func NewHandlerMetrics(metrics *monitoring.Metrics) *HandlerMetrics {
	return &HandlerMetrics{metrics: metrics}
}

// TrackSessionOperation times an orchestrator operation. The returned func
// takes the outcome label.
func (hm *HandlerMetrics) TrackSessionOperation(operation string) func(status string) {
	return hm.track("orchestrator", operation)
}

// TrackProfileOperation times a profile store operation
func (hm *HandlerMetrics) TrackProfileOperation(operation string) func(status string) {
	return hm.track("profile_store", operation)
}

func (hm *HandlerMetrics) track(service, operation string) func(string) {
	return monitoring.NewTimer(hm.metrics, service, operation).Stop
}
