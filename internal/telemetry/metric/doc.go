// Package metric provides Prometheus metrics for linkport.
//
// The Registry owns its own prometheus.Registry so tests and multiple
// listeners never collide on the global default registry. Metrics include:
//
//   - Accepted connections and listener bind state
//   - Rejected requests by reason
//   - Navigation dispatch outcomes
//
// Metrics are exposed at /metrics on an optional loopback address.
package metric
