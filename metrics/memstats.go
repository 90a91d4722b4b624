package metrics

import (
	"time"

	"github.com/rcrowley/go-metrics"
)

// ReportMemstatsMetrics will capture runtime memory stats into the default
// registry every 10 seconds, and will block forever.
func ReportMemstatsMetrics() {
	metrics.RegisterRuntimeMemStats(metrics.DefaultRegistry)
	metrics.CaptureRuntimeMemStats(metrics.DefaultRegistry, 10*time.Second)
}
