package host

import (
	"log/slog"
	"time"

	"github.com/aretw0/figflow/pkg/observability"
	"github.com/aretw0/figflow/pkg/ports"
)

// Option defines a functional option for configuring the Host.
type Option func(*Host)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Host) {
		h.logger = logger
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Host) {
		h.metrics = m
	}
}

// WithWriteDelay sets the pause between two inserted characters.
func WithWriteDelay(d time.Duration) Option {
	return func(h *Host) {
		h.delay = d
	}
}

// WithLocker serializes write-backs on the same document across processes.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(h *Host) {
		h.locker = locker
	}
}
