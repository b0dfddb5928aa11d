package metrics

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	SigninAttemptsTotal   metric.Int64Counter
	SigninDurationSeconds metric.Float64Histogram
	DbQueryErrorsTotal    metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metrics instruments only once.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() *AppMetrics {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("gestion-usuarios")
		var err error
		m := &AppMetrics{}

		m.SigninAttemptsTotal, err = meter.Int64Counter(
			"signin_attempts_total",
			metric.WithDescription("Total number of signin attempts"),
			metric.WithUnit("{request}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create signin_attempts_total: %v", err)
		}

		m.SigninDurationSeconds, err = meter.Float64Histogram(
			"signin_duration_seconds",
			metric.WithDescription("Duration of signin requests in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create signin_duration_seconds: %v", err)
		}

		m.DbQueryErrorsTotal, err = meter.Int64Counter(
			"db_query_errors_total",
			metric.WithDescription("Total number of database query errors"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create db_query_errors_total: %v", err)
		}

		appMetrics = m
	})
	return appMetrics
}

// RecordSignin records one signin attempt outcome.
func (m *AppMetrics) RecordSignin(ctx context.Context, success bool, seconds float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.SigninAttemptsTotal.Add(ctx, 1, attrs)
	m.SigninDurationSeconds.Record(ctx, seconds, attrs)
}
