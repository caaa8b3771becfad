package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"user-service/internal/auth"
)

const meterName = "user-service"

// Metrics holds the instruments recorded by the service.
type Metrics struct {
	authOutcomes  metric.Int64Counter
	registrations metric.Int64Counter
	logins        metric.Int64Counter
	started       time.Time
}

// NewMetrics registers instruments on meter, or on the global provider when meter is nil.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(meterName)
	}

	authOutcomes, err := meter.Int64Counter(
		"usersvc.auth.outcome.count",
		metric.WithDescription("Authentication gate decisions"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	registrations, err := meter.Int64Counter(
		"usersvc.registration.count",
		metric.WithDescription("Accounts registered"),
		metric.WithUnit("{account}"),
	)
	if err != nil {
		return nil, err
	}

	logins, err := meter.Int64Counter(
		"usersvc.login.count",
		metric.WithDescription("Login attempts by result"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	m := &Metrics{
		authOutcomes:  authOutcomes,
		registrations: registrations,
		logins:        logins,
		started:       time.Now(),
	}

	_, err = meter.Float64ObservableGauge(
		"usersvc.uptime",
		metric.WithDescription("Seconds since the process started"),
		metric.WithUnit("s"),
		metric.WithFloat64Callback(func(_ context.Context, o metric.Float64Observer) error {
			o.Observe(m.Uptime().Seconds())
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAuth implements auth.Recorder.
func (m *Metrics) RecordAuth(ctx context.Context, outcome auth.Outcome, reason string) {
	attrs := []attribute.KeyValue{attribute.String("outcome", string(outcome))}
	if reason != "" {
		attrs = append(attrs, attribute.String("reason", reason))
	}
	m.authOutcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *Metrics) RecordRegistration(ctx context.Context) {
	m.registrations.Add(ctx, 1)
}

func (m *Metrics) RecordLogin(ctx context.Context, success bool) {
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.started)
}

var _ auth.Recorder = (*Metrics)(nil)
