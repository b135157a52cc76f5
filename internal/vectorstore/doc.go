// Package vectorstore persists document chunks with their embeddings and
// answers nearest-neighbour queries.
//
// Three backends implement Store:
//
//   - PostgresStore: pgvector column with an ivfflat cosine index (default)
//   - ChromemStore: embedded chromem-go, persistent or in-memory
//   - QdrantStore: external Qdrant over gRPC
//
// New picks one from config and wraps it with Instrument, which records
// Prometheus metrics and an OpenTelemetry span for every call.
//
// All backends share one error contract: bad input wraps v1.ErrInvalidInput,
// embedding failures wrap v1.ErrUpstream and datastore failures wrap
// v1.ErrPersistence. Nothing is retried.
package vectorstore
