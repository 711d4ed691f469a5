package base

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
)

// closeReason describes why a connection was released
type closeReason string

const (
	closeEOF       closeReason = "eof"
	closeIOError   closeReason = "io_error"
	closeViolation closeReason = "protocol_violation"
	closeIdle      closeReason = "idle_timeout"
	closeShutdown  closeReason = "shutdown"
)

var (
	connsAccepted   = metrics.GetOrCreateCounter(`skv_connections_accepted_total`)
	connsRejected   = metrics.GetOrCreateCounter(`skv_connections_rejected_total`)
	connsActive     = metrics.GetOrCreateCounter(`skv_connections_active`)
	requestsTotal   = metrics.GetOrCreateCounter(`skv_requests_total`)
	bytesRead       = metrics.GetOrCreateCounter(`skv_read_bytes_total`)
	bytesWritten    = metrics.GetOrCreateCounter(`skv_written_bytes_total`)
	pollWakeups     = metrics.GetOrCreateCounter(`skv_poll_wakeups_total`)
	requestDuration = metrics.GetOrCreateHistogram(`skv_request_duration_seconds`)
)

// connsClosed returns the close counter for reason
func connsClosed(reason closeReason) *metrics.Counter {
	return metrics.GetOrCreateCounter(fmt.Sprintf(`skv_connections_closed_total{reason=%q}`, reason))
}
