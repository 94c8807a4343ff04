/*
Package metrics exposes Prometheus metrics for security-manager.

Counters and gauges cover the socket layer (accepted/open connections,
protocol violations per service) and the request path (requests by
operation and status, handling duration, store failures). The /metrics
endpoint is optional and bound to a loopback address from daemon
configuration.
*/
package metrics
