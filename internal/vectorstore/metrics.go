package vectorstore

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/ragd/internal/document"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

var (
	// OperationDuration tracks store call latency.
	// Labels: backend, op
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragd",
			Subsystem: "vectorstore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of vector store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)

	// OperationsTotal counts store calls.
	// Labels: backend, op, result (success, invalid, upstream_error, error)
	OperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ragd",
			Subsystem: "vectorstore",
			Name:      "operations_total",
			Help:      "Total number of vector store operations by result",
		},
		[]string{"backend", "op", "result"},
	)

	// SearchResults tracks how many chunks each search returned.
	SearchResults = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ragd",
			Subsystem: "vectorstore",
			Name:      "search_results",
			Help:      "Number of results returned per similarity search",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		},
		[]string{"backend"},
	)
)

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, v1.ErrInvalidInput):
		return "invalid"
	case errors.Is(err, v1.ErrUpstream):
		return "upstream_error"
	default:
		return "error"
	}
}

// instrumented decorates a Store with Prometheus metrics and spans.
type instrumented struct {
	Store
	backend string
	tracer  trace.Tracer
}

// Instrument wraps store so every call is timed, counted and traced.
func Instrument(store Store, backend string) Store {
	return &instrumented{
		Store:   store,
		backend: backend,
		tracer:  otel.Tracer("github.com/fyrsmithlabs/ragd/internal/vectorstore"),
	}
}

func (s *instrumented) observe(ctx context.Context, op string, fn func(ctx context.Context, span trace.Span) error) error {
	ctx, span := s.tracer.Start(ctx, "vectorstore."+op, trace.WithAttributes(
		attribute.String("vectorstore.backend", s.backend),
	))
	defer span.End()

	start := time.Now()
	err := fn(ctx, span)
	OperationDuration.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
	OperationsTotal.WithLabelValues(s.backend, op, resultLabel(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return err
}

func (s *instrumented) AddDocument(ctx context.Context, content string, metadata document.Metadata) (string, error) {
	var id string
	err := s.observe(ctx, "AddDocument", func(ctx context.Context, span trace.Span) error {
		span.SetAttributes(attribute.Int("document.content_length", len(content)))
		var err error
		id, err = s.Store.AddDocument(ctx, content, metadata)
		span.SetAttributes(attribute.String("document.id", id))
		return err
	})
	return id, err
}

func (s *instrumented) SimilaritySearch(ctx context.Context, query string, k int) ([]Result, error) {
	var results []Result
	err := s.observe(ctx, "SimilaritySearch", func(ctx context.Context, span trace.Span) error {
		span.SetAttributes(attribute.Int("search.k", k))
		var err error
		results, err = s.Store.SimilaritySearch(ctx, query, k)
		if err == nil {
			span.SetAttributes(attribute.Int("search.results", len(results)))
			SearchResults.WithLabelValues(s.backend).Observe(float64(len(results)))
		}
		return err
	})
	return results, err
}

func (s *instrumented) DeleteDocument(ctx context.Context, id string) error {
	return s.observe(ctx, "DeleteDocument", func(ctx context.Context, span trace.Span) error {
		span.SetAttributes(attribute.String("document.id", id))
		return s.Store.DeleteDocument(ctx, id)
	})
}

func (s *instrumented) Bootstrap(ctx context.Context) error {
	return s.observe(ctx, "Bootstrap", func(ctx context.Context, _ trace.Span) error {
		return s.Store.Bootstrap(ctx)
	})
}
