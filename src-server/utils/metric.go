package utils

// MetricChans carries per-operation database latencies (in microseconds)
// from wherever a query runs to the Prometheus gauges in the metric package.
type MetricChans struct {
	DatabaseRead  chan float64
	DatabaseWrite chan float64
}
