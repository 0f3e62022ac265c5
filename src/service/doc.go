// Package service exposes a running simulation over HTTP.
//
// Endpoints:
//
//	/stats       stats of every node, indexed by id
//	/stats/{id}  stats of one node
//	/report      the full run report, as produced by RunReport.Marshal
//	/metrics     Prometheus metrics
package service
