package store

import (
	"log/slog"
	"time"
)

// warningRatio is the fraction of the deadline at which a slow query
// earns a warning even though it succeeded.
const warningRatio = 0.8

// monitorDeadline logs queries that came close to their deadline, so an
// operator sees creeping latency before it turns into timeouts.
func monitorDeadline(logger *slog.Logger, operation string, elapsed, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	threshold := time.Duration(float64(timeout) * warningRatio)
	if elapsed >= threshold {
		logger.Warn("query approaching deadline",
			"operation", operation,
			"elapsed_seconds", elapsed.Seconds(),
			"timeout_seconds", timeout.Seconds(),
			"percent_used", (elapsed.Seconds()/timeout.Seconds())*100)
	}
}
