package logging

import "sync"

// PerformanceTracker accumulates per-process counters across a run and
// emits a summary event on request. Grounded on the original project's
// PerformanceTracker: one mutex-guarded struct, tracked incrementally as
// directives and provider calls complete.
type PerformanceTracker struct {
	mu sync.Mutex

	directivesProcessed int
	directivesSucceeded int
	directivesFailed    int
	totalTokensIn        int
	totalTokensOut       int
	totalCost            float64
	totalProcessingTime  float64
	apiCalls             int
	apiErrors            int
}

// NewPerformanceTracker returns a zeroed tracker.
func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{}
}

// TrackDirective folds one directive's completion metrics into the totals.
func (t *PerformanceTracker) TrackDirective(success bool, durationSeconds float64, tokensIn, tokensOut int, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.directivesProcessed++
	if success {
		t.directivesSucceeded++
	} else {
		t.directivesFailed++
	}
	t.totalTokensIn += tokensIn
	t.totalTokensOut += tokensOut
	t.totalCost += cost
	t.totalProcessingTime += durationSeconds
}

// TrackAPICall folds one provider call's outcome into the totals.
func (t *PerformanceTracker) TrackAPICall(success bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.apiCalls++
	if !success {
		t.apiErrors++
	}
}

// Metrics is a snapshot of the tracker's current counters.
type Metrics struct {
	DirectivesProcessed int
	DirectivesSucceeded int
	DirectivesFailed    int
	TotalTokensIn        int
	TotalTokensOut       int
	TotalCost            float64
	TotalProcessingTime  float64
	APICalls             int
	APIErrors            int
}

// Snapshot returns the current counters without mutating them.
func (t *PerformanceTracker) Snapshot() Metrics {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Metrics{
		DirectivesProcessed: t.directivesProcessed,
		DirectivesSucceeded: t.directivesSucceeded,
		DirectivesFailed:    t.directivesFailed,
		TotalTokensIn:        t.totalTokensIn,
		TotalTokensOut:       t.totalTokensOut,
		TotalCost:            t.totalCost,
		TotalProcessingTime:  t.totalProcessingTime,
		APICalls:             t.apiCalls,
		APIErrors:            t.apiErrors,
	}
}

// LogSummary computes derived rates and emits a system_status event.
func (t *PerformanceTracker) LogSummary(l *Logger) {
	m := t.Snapshot()

	successRate := 0.0
	if m.DirectivesProcessed > 0 {
		successRate = float64(m.DirectivesSucceeded) / float64(m.DirectivesProcessed) * 100
	}
	avgDuration := 0.0
	if m.DirectivesProcessed > 0 {
		avgDuration = m.TotalProcessingTime / float64(m.DirectivesProcessed)
	}
	apiErrorRate := 0.0
	if m.APICalls > 0 {
		apiErrorRate = float64(m.APIErrors) / float64(m.APICalls) * 100
	}

	l.SystemStatus(map[string]any{
		"directives_processed":  m.DirectivesProcessed,
		"directives_succeeded":  m.DirectivesSucceeded,
		"directives_failed":     m.DirectivesFailed,
		"total_tokens_in":       m.TotalTokensIn,
		"total_tokens_out":      m.TotalTokensOut,
		"total_cost":            m.TotalCost,
		"total_processing_time": m.TotalProcessingTime,
		"api_calls":             m.APICalls,
		"api_errors":            m.APIErrors,
		"success_rate":          successRate,
		"avg_duration":          avgDuration,
		"api_error_rate":        apiErrorRate,
	})
}
