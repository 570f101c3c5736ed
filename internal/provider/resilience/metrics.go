package resilience

import "time"

// Metrics records outbound provider calls and cache effectiveness.
type Metrics interface {
	RecordRequest(provider, operation string, duration time.Duration, err error)
	RecordCacheHit(provider, operation string)
	RecordCacheMiss(provider, operation string)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordRequest(string, string, time.Duration, error) {}
func (NopMetrics) RecordCacheHit(string, string)                      {}
func (NopMetrics) RecordCacheMiss(string, string)                     {}
