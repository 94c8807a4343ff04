package privilege

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/krzsas/security-manager/pkg/metrics"
	"github.com/krzsas/security-manager/pkg/protocol"
)

// prometheusTimer starts a duration observation for one operation
func prometheusTimer(op protocol.Op) *prometheus.Timer {
	return prometheus.NewTimer(metrics.RequestDuration.WithLabelValues(op.String()))
}
