package metrics

import (
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "signup-auth"

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	RegisterRequestsTotal   metric.Int64Counter
	RegisterDurationSeconds metric.Float64Histogram
	LoginRequestsTotal      metric.Int64Counter
	LoginDurationSeconds    metric.Float64Histogram
	TokenVerificationsTotal metric.Int64Counter
	DbQueryDurationSeconds  metric.Float64Histogram
	DbQueryErrorsTotal      metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	initErr    error
	once       sync.Once
)

// InitAppMetrics creates the instruments once, from the global MeterProvider.
// Without a configured provider otel hands out no-op instruments, which is
// what tests get.
func InitAppMetrics() (*AppMetrics, error) {
	once.Do(func() {
		appMetrics, initErr = newAppMetrics(otel.GetMeterProvider().Meter(meterName))
	})
	return appMetrics, initErr
}

func newAppMetrics(meter metric.Meter) (*AppMetrics, error) {
	var err error
	m := &AppMetrics{}

	if m.RegisterRequestsTotal, err = meter.Int64Counter(
		"register_requests_total",
		metric.WithDescription("Total number of register requests completed"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("metrics: register_requests_total: %w", err)
	}

	if m.RegisterDurationSeconds, err = meter.Float64Histogram(
		"register_duration_seconds",
		metric.WithDescription("Duration of register requests in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("metrics: register_duration_seconds: %w", err)
	}

	if m.LoginRequestsTotal, err = meter.Int64Counter(
		"login_requests_total",
		metric.WithDescription("Total number of login requests completed"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, fmt.Errorf("metrics: login_requests_total: %w", err)
	}

	if m.LoginDurationSeconds, err = meter.Float64Histogram(
		"login_duration_seconds",
		metric.WithDescription("Duration of login requests in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("metrics: login_duration_seconds: %w", err)
	}

	if m.TokenVerificationsTotal, err = meter.Int64Counter(
		"token_verifications_total",
		metric.WithDescription("Total number of access token verifications"),
		metric.WithUnit("{token}"),
	); err != nil {
		return nil, fmt.Errorf("metrics: token_verifications_total: %w", err)
	}

	if m.DbQueryDurationSeconds, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("Duration of database queries in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("metrics: db_query_duration_seconds: %w", err)
	}

	if m.DbQueryErrorsTotal, err = meter.Int64Counter(
		"db_query_errors_total",
		metric.WithDescription("Total number of database query errors"),
		metric.WithUnit("{error}"),
	); err != nil {
		return nil, fmt.Errorf("metrics: db_query_errors_total: %w", err)
	}

	return m, nil
}
