// Package metrics exposes the progress of a Streamlet run as Prometheus
// metrics. A Collector is registered as an Observer of a Protocol and updates
// its gauges and counters at the end of every epoch.
package metrics
