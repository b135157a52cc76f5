package vectorstore

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/fyrsmithlabs/ragd/internal/document"
)

const (
	payloadContent  = "content"
	payloadMetadata = "metadata"
)

// QdrantConfig configures the Qdrant gRPC store.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int

	// MaxMessageSize bounds gRPC messages; 0 uses 50MB.
	MaxMessageSize int
}

// Validate validates the configuration.
func (c QdrantConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port %d", ErrInvalidConfig, c.Port)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection name required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: dimension must be positive", ErrInvalidConfig)
	}
	return nil
}

// QdrantStore keeps chunks as points in one Qdrant collection using cosine
// distance. The chunk text and metadata travel in the point payload.
type QdrantStore struct {
	client   *qdrant.Client
	embedder Embedder
	config   QdrantConfig
	logger   *zap.Logger
}

// NewQdrantStore creates the gRPC client.
func NewQdrantStore(cfg QdrantConfig, embedder Embedder, logger *zap.Logger) (*QdrantStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 50 * 1024 * 1024
	}
	if !cfg.UseTLS {
		logger.Warn("qdrant gRPC using plaintext, TLS disabled", zap.String("host", cfg.Host))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(cfg.MaxMessageSize),
				grpc.MaxCallSendMsgSize(cfg.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, persistenceErr("connecting to qdrant", err)
	}

	return &QdrantStore{client: client, embedder: embedder, config: cfg, logger: logger}, nil
}

// Bootstrap creates the collection when it does not exist.
func (s *QdrantStore) Bootstrap(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.config.Collection)
	if err != nil {
		return persistenceErr("checking collection", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.config.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.config.Dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return persistenceErr("creating collection", err)
	}
	s.logger.Info("qdrant collection created",
		zap.String("collection", s.config.Collection),
		zap.Int("dimension", s.config.Dimension),
	)
	return nil
}

// AddDocument embeds content and upserts it as a new point.
func (s *QdrantStore) AddDocument(ctx context.Context, content string, metadata document.Metadata) (string, error) {
	if err := checkAdd(content, metadata); err != nil {
		return "", err
	}

	vec, err := embedOne(ctx, s.embedder, content, s.config.Dimension, false)
	if err != nil {
		return "", err
	}
	meta, err := toQdrantValue(metadata.Map())
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.config.Collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(id),
			Vectors: qdrant.NewVectors(vec...),
			Payload: map[string]*qdrant.Value{
				payloadContent:  {Kind: &qdrant.Value_StringValue{StringValue: content}},
				payloadMetadata: meta,
			},
		}},
	})
	if err != nil {
		return "", persistenceErr("upserting point", err)
	}
	return id, nil
}

// SimilaritySearch queries the collection with the embedded query. Qdrant's
// cosine score is the similarity.
func (s *QdrantStore) SimilaritySearch(ctx context.Context, query string, k int) ([]Result, error) {
	if err := checkSearch(query, k); err != nil {
		return nil, err
	}

	vec, err := embedOne(ctx, s.embedder, query, s.config.Dimension, true)
	if err != nil {
		return nil, err
	}

	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.config.Collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, persistenceErr("querying points", err)
	}

	results := make([]Result, 0, len(points))
	for _, p := range points {
		r := Result{
			ID:         p.GetId().GetUuid(),
			Similarity: float64(p.GetScore()),
			Metadata:   document.Metadata{},
		}
		if v, ok := p.GetPayload()[payloadContent]; ok {
			r.Content = v.GetStringValue()
		}
		if v, ok := p.GetPayload()[payloadMetadata]; ok {
			if m, ok := fromQdrantValue(v).(map[string]any); ok {
				r.Metadata = m
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// DeleteDocument deletes a point by UUID.
func (s *QdrantStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.config.Collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrant.NewPointsSelector(qdrant.NewIDUUID(id)),
	})
	if err != nil {
		return persistenceErr("deleting point", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

// toQdrantValue converts a validated JSON value to a payload value.
func toQdrantValue(v any) (*qdrant.Value, error) {
	switch val := v.(type) {
	case nil:
		return &qdrant.Value{Kind: &qdrant.Value_NullValue{NullValue: qdrant.NullValue_NULL_VALUE}}, nil
	case string:
		return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: val}}, nil
	case bool:
		return &qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: val}}, nil
	case int:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}, nil
	case int64:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: val}}, nil
	case int32:
		return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}, nil
	case float32:
		return toQdrantValue(float64(val))
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(val)}}, nil
		}
		return &qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: val}}, nil
	case document.Metadata:
		return toQdrantValue(map[string]any(val))
	case map[string]any:
		fields := make(map[string]*qdrant.Value, len(val))
		for k, nested := range val {
			qv, err := toQdrantValue(nested)
			if err != nil {
				return nil, err
			}
			fields[k] = qv
		}
		return &qdrant.Value{Kind: &qdrant.Value_StructValue{StructValue: &qdrant.Struct{Fields: fields}}}, nil
	case []any:
		values := make([]*qdrant.Value, 0, len(val))
		for _, nested := range val {
			qv, err := toQdrantValue(nested)
			if err != nil {
				return nil, err
			}
			values = append(values, qv)
		}
		return &qdrant.Value{Kind: &qdrant.Value_ListValue{ListValue: &qdrant.ListValue{Values: values}}}, nil
	default:
		// Remaining integer kinds and json.Number go through the float path.
		f, err := toFloat(v)
		if err != nil {
			return nil, err
		}
		return toQdrantValue(f)
	}
}

// fromQdrantValue converts a payload value back to a JSON value.
func fromQdrantValue(v *qdrant.Value) any {
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_IntegerValue:
		return float64(kind.IntegerValue)
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_StructValue:
		out := make(map[string]any, len(kind.StructValue.GetFields()))
		for k, nested := range kind.StructValue.GetFields() {
			out[k] = fromQdrantValue(nested)
		}
		return out
	case *qdrant.Value_ListValue:
		out := make([]any, 0, len(kind.ListValue.GetValues()))
		for _, nested := range kind.ListValue.GetValues() {
			out = append(out, fromQdrantValue(nested))
		}
		return out
	default:
		return nil
	}
}
