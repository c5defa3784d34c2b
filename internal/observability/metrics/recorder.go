// Package metrics provides custom Prometheus metrics for the VisoraX service.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it instead of concrete metric types so tests can
// capture what was recorded.
type Recorder interface {
	// RecordOperation records an operation with its status,
	// e.g. ("detect", "success").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type.
	// errorType is usually an error category such as "detector" or "network".
	RecordError(operation, errorType string)
}

// NopRecorder discards everything
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string)     {}
