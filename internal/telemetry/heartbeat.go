package telemetry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Heartbeat logs a liveness line every interval until ctx is done. A
// non-positive interval disables it. When provider is set the line carries
// the current metric values.
func Heartbeat(ctx context.Context, interval time.Duration, metrics *Metrics, provider *Provider, logger *logrus.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			entry := logger.WithField("at", now.UTC().Format(time.RFC3339))
			if metrics != nil {
				entry = entry.WithField("uptime", metrics.Uptime().Round(time.Second).String())
			}
			if provider != nil {
				values, err := provider.Snapshot(ctx)
				if err != nil {
					logger.WithError(err).Warn("heartbeat metrics")
				}
				for name, value := range values {
					entry = entry.WithField(name, value)
				}
			}
			entry.Info("heartbeat")
		}
	}
}
