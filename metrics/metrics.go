// Package metrics records pipeline counters and latencies behind a small
// Recorder interface, with Prometheus and no-op implementations.
package metrics

import "time"

// Recorder counts payment pipeline events (failures by error code,
// fulfillments) and observes settle/forward latencies. Label maps carry at
// least a "stage" key naming the pipeline stage.
type Recorder interface {
	IncCounter(name string, labels map[string]string)
	ObserveLatency(name string, duration time.Duration, labels map[string]string)
}
