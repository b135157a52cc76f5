package embeddings

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/ragd/internal/embeddings"

// Metrics holds embedding instruments.
type Metrics struct {
	duration  metric.Float64Histogram
	batchSize metric.Int64Histogram
	errors    metric.Int64Counter
}

// NewMetrics creates the embedding instruments on meter. Instruments that
// fail to register are logged and skipped.
func NewMetrics(meter metric.Meter, logger *zap.Logger) *Metrics {
	m := &Metrics{}
	var err error

	m.duration, err = meter.Float64Histogram(
		"ragd.embedding.duration",
		metric.WithDescription("Duration of embedding API calls in seconds, by model and operation"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		logger.Warn("failed to create duration histogram", zap.Error(err))
	}

	m.batchSize, err = meter.Int64Histogram(
		"ragd.embedding.batch_size",
		metric.WithDescription("Number of texts per embedding call"),
		metric.WithUnit("{text}"),
		metric.WithExplicitBucketBoundaries(1, 2, 5, 10, 25, 50, 100, 250, 500),
	)
	if err != nil {
		logger.Warn("failed to create batch size histogram", zap.Error(err))
	}

	m.errors, err = meter.Int64Counter(
		"ragd.embedding.errors",
		metric.WithDescription("Failed embedding calls by model and operation"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		logger.Warn("failed to create errors counter", zap.Error(err))
	}
	return m
}

// RecordGeneration records one embedding call.
func (m *Metrics) RecordGeneration(ctx context.Context, model, operation string, d time.Duration, batchSize int, err error) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("operation", operation),
	)
	if m.duration != nil {
		m.duration.Record(ctx, d.Seconds(), attrs)
	}
	if batchSize > 0 && m.batchSize != nil {
		m.batchSize.Record(ctx, int64(batchSize), attrs)
	}
	if err != nil && m.errors != nil {
		m.errors.Add(ctx, 1, attrs)
	}
}
