// Package telemetry wires the OpenTelemetry SDK for ragd.
//
// Traces and metrics go to an OTLP collector over gRPC or HTTP/protobuf.
// When telemetry is disabled the global no-op providers are used, so
// instrumented code never needs to check.
//
//	tel, err := telemetry.New(ctx, telemetry.FromConfig(cfg.Telemetry, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	embedder, err := embeddings.NewService(ecfg, embeddings.WithMeterProvider(tel.MeterProvider()))
//
// Tests use NewTestTelemetry, which records spans in memory and collects
// metrics through a ManualReader:
//
//	tt := telemetry.NewTestTelemetry()
//	// exercise code using tt.Tracer / tt.MeterProvider()
//	tt.AssertSpanExists(t, "vectorstore.SimilaritySearch")
//	rm := tt.Collect(t)
package telemetry
