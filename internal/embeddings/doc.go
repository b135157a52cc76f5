// Package embeddings turns text into vectors through the OpenAI embeddings
// API.
//
// Service wraps a langchaingo embedder with an optional outbound rate limit,
// a dimension check and OpenTelemetry metrics. Every failure is wrapped with
// v1.ErrUpstream so the HTTP layer reports it as a 500. Nothing is retried.
//
//	svc, err := embeddings.NewService(embeddings.ConfigFrom(cfg.OpenAI, cfg.VectorStore.Dimension),
//	    embeddings.WithLogger(logger.Underlying()),
//	    embeddings.WithMeterProvider(tel.MeterProvider()),
//	)
//	vec, err := svc.Embed(ctx, "what is retrieval augmented generation?")
//
// Service satisfies the langchaingo embeddings.Embedder interface, which is
// the Embedder the vector stores accept.
package embeddings
