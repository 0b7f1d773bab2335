package rpc

import "time"

// Metrics is the optional instrumentation hook a Client reports to. It is
// defined here rather than imported from the stats package so rpc never
// depends on metrics wiring; stats.Registry implements it.
type Metrics interface {
	ObserveRequest(method string, dur time.Duration, errno int32)
}

// noopMetrics is installed by default so SendRequest never nil-checks.
type noopMetrics struct{}

func (noopMetrics) ObserveRequest(string, time.Duration, int32) {}
