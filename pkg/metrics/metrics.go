package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Connection metrics
	ConnectionsAccepted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_manager_connections_accepted_total",
			Help: "Total number of accepted connections by service",
		},
		[]string{"service"},
	)

	ConnectionsOpen = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "security_manager_connections_open",
			Help: "Currently open connections by service",
		},
		[]string{"service"},
	)

	ProtocolErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_manager_protocol_errors_total",
			Help: "Total number of protocol violations that closed a connection, by service",
		},
		[]string{"service"},
	)

	// Request metrics
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_manager_requests_total",
			Help: "Total number of requests by operation and status",
		},
		[]string{"op", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "security_manager_request_duration_seconds",
			Help:    "Request handling duration in seconds by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	// Store metrics
	StoreErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "security_manager_store_errors_total",
			Help: "Total number of privilege store failures",
		},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(ConnectionsAccepted)
	prometheus.MustRegister(ConnectionsOpen)
	prometheus.MustRegister(ProtocolErrors)
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(StoreErrors)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics and /health on addr; blocks until the
// listener fails. Intended to run in its own goroutine when metrics
// are enabled.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})
	return http.ListenAndServe(addr, mux)
}
