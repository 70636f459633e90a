package vector

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/proto"

	"github.com/hyperjump/kensaku/internal/config"
	"github.com/hyperjump/kensaku/internal/models"
)

// pointsAPI is the subset of qdrant.PointsClient the index uses.
type pointsAPI interface {
	Search(ctx context.Context, in *qdrant.SearchPoints, opts ...grpc.CallOption) (*qdrant.SearchResponse, error)
	Upsert(ctx context.Context, in *qdrant.UpsertPoints, opts ...grpc.CallOption) (*qdrant.PointsOperationResponse, error)
	Count(ctx context.Context, in *qdrant.CountPoints, opts ...grpc.CallOption) (*qdrant.CountResponse, error)
}

// collectionsAPI is the subset of qdrant.CollectionsClient the index uses.
type collectionsAPI interface {
	CollectionExists(ctx context.Context, in *qdrant.CollectionExistsRequest, opts ...grpc.CallOption) (*qdrant.CollectionExistsResponse, error)
	Create(ctx context.Context, in *qdrant.CreateCollection, opts ...grpc.CallOption) (*qdrant.CollectionOperationResponse, error)
}

// QdrantIndex searches a Qdrant collection over gRPC.
type QdrantIndex struct {
	points      pointsAPI
	collections collectionsAPI
	conn        *grpc.ClientConn
	collection  string
	dimensions  int
	logger      *zap.Logger
}

// NewQdrantIndex connects to the Qdrant server described by cfg. The connection is
// established lazily; the first call reports an unreachable server.
func NewQdrantIndex(cfg config.QdrantConfig, dimensions int, logger *zap.Logger) (*QdrantIndex, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(creds),
		grpc.WithUserAgent("kensaku"),
	}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}
	conn, err := grpc.NewClient(cfg.Addr(), opts...)
	if err != nil {
		return nil, fmt.Errorf("could not connect to Qdrant: %w", err)
	}
	idx := newQdrantIndex(qdrant.NewPointsClient(conn), qdrant.NewCollectionsClient(conn), cfg.Collection, dimensions, logger)
	idx.conn = conn
	return idx, nil
}

func newQdrantIndex(points pointsAPI, collections collectionsAPI, collection string, dimensions int, logger *zap.Logger) *QdrantIndex {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QdrantIndex{
		points:      points,
		collections: collections,
		collection:  collection,
		dimensions:  dimensions,
		logger:      logger,
	}
}

func apiKeyInterceptor(apiKey string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", apiKey)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// Type returns the index type identifier.
func (q *QdrantIndex) Type() string {
	return TypeQdrant
}

// EnsureCollection creates the collection with cosine distance if it does not exist.
func (q *QdrantIndex) EnsureCollection(ctx context.Context) error {
	resp, err := q.collections.CollectionExists(ctx, &qdrant.CollectionExistsRequest{CollectionName: q.collection})
	if err != nil {
		return fmt.Errorf("check collection %s: %w", q.collection, err)
	}
	if resp.GetResult().GetExists() {
		return nil
	}
	q.logger.Info("Creating Qdrant collection", zap.String("collection", q.collection), zap.Int("dimensions", q.dimensions))
	_, err = q.collections.Create(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection %s: %w", q.collection, err)
	}
	return nil
}

// Search runs a nearest-neighbour query with payload and vectors included in the response.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, count int, filter Filter) ([]*models.RawCandidate, error) {
	if count <= 0 {
		return []*models.RawCandidate{}, nil
	}
	resp, err := q.points.Search(ctx, &qdrant.SearchPoints{
		CollectionName: q.collection,
		Vector:         vector,
		Filter:         buildFilter(filter),
		Limit:          uint64(count),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search: %w", err)
	}
	out := make([]*models.RawCandidate, 0, len(resp.GetResult()))
	for _, sp := range resp.GetResult() {
		out = append(out, convertScoredPoint(sp))
	}
	return out, nil
}

// Upsert writes points with their payload stored as string values, waiting for the write to apply.
func (q *QdrantIndex) Upsert(ctx context.Context, points []*models.Point) error {
	if len(points) == 0 {
		return nil
	}
	structs := make([]*qdrant.PointStruct, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != q.dimensions {
			return fmt.Errorf("vector dimension mismatch for %s: got %d, expected %d", p.ID, len(p.Vector), q.dimensions)
		}
		payload := make(map[string]*qdrant.Value, len(p.Payload))
		for k, v := range p.Payload {
			payload[k] = qdrant.NewValueString(v)
		}
		structs = append(structs, &qdrant.PointStruct{
			Id:      qdrant.NewID(p.ID),
			Payload: payload,
			Vectors: qdrant.NewVectorsDense(p.Vector),
		})
	}
	_, err := q.points.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           proto.Bool(true),
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert: %w", err)
	}
	return nil
}

// Count returns the exact number of points in the collection.
func (q *QdrantIndex) Count(ctx context.Context) (int64, error) {
	resp, err := q.points.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          proto.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant count: %w", err)
	}
	return int64(resp.GetResult().GetCount()), nil
}

// Close closes the gRPC connection.
func (q *QdrantIndex) Close() error {
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// buildFilter turns f into a Qdrant filter: each non-empty field is a Must
// condition whose alternatives are Should matches. Returns nil for an empty filter.
func buildFilter(f Filter) *qdrant.Filter {
	if f.IsEmpty() {
		return nil
	}
	var must []*qdrant.Condition
	if len(f.Repos) > 0 {
		must = append(must, qdrant.NewMatchKeywords(models.PayloadRepoName, f.Repos...))
	}
	if len(f.Langs) > 0 {
		must = append(must, qdrant.NewMatchKeywords(models.PayloadLang, f.Langs...))
	}
	if len(f.Refs) > 0 {
		must = append(must, qdrant.NewMatchKeywords(models.PayloadRepoRef, f.Refs...))
	}
	if len(f.Paths) > 0 {
		should := make([]*qdrant.Condition, len(f.Paths))
		for i, p := range f.Paths {
			should[i] = qdrant.NewMatchText(models.PayloadRelativePath, p)
		}
		must = append(must, qdrant.NewFilterAsCondition(&qdrant.Filter{Should: should}))
	}
	return &qdrant.Filter{Must: must}
}

func convertScoredPoint(sp *qdrant.ScoredPoint) *models.RawCandidate {
	c := &models.RawCandidate{
		Score:   sp.GetScore(),
		Vector:  convertVectors(sp.GetVectors()),
		Payload: make(map[string]models.PayloadValue, len(sp.GetPayload())),
	}
	for k, v := range sp.GetPayload() {
		c.Payload[k] = convertValue(v)
	}
	return c
}

func convertVectors(v *qdrant.VectorsOutput) *models.StoredVector {
	if v == nil {
		return nil
	}
	if v.GetVectors() != nil {
		return &models.StoredVector{Kind: models.VectorNamed}
	}
	out := v.GetVector()
	if out == nil {
		return nil
	}
	switch {
	case out.GetDense() != nil:
		return models.DenseVector(out.GetDense().GetData())
	case out.GetSparse() != nil:
		return &models.StoredVector{Kind: models.VectorSparse}
	case out.GetMultiDense() != nil:
		return &models.StoredVector{Kind: models.VectorMultiDense}
	}
	// servers predating the typed oneof fill only the flat data field
	if out.GetIndices() != nil {
		return &models.StoredVector{Kind: models.VectorSparse}
	}
	if out.GetVectorsCount() > 0 {
		return &models.StoredVector{Kind: models.VectorMultiDense}
	}
	return models.DenseVector(out.GetData())
}

func convertValue(v *qdrant.Value) models.PayloadValue {
	switch k := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return models.PayloadValue{Kind: models.ValueString, String: k.StringValue}
	case *qdrant.Value_IntegerValue:
		return models.PayloadValue{Kind: models.ValueInteger, Integer: k.IntegerValue}
	case *qdrant.Value_DoubleValue:
		return models.PayloadValue{Kind: models.ValueDouble, Double: k.DoubleValue}
	case *qdrant.Value_BoolValue:
		return models.PayloadValue{Kind: models.ValueBool, Bool: k.BoolValue}
	case *qdrant.Value_ListValue:
		return models.PayloadValue{Kind: models.ValueList}
	case *qdrant.Value_StructValue:
		return models.PayloadValue{Kind: models.ValueStruct}
	default:
		return models.PayloadValue{Kind: models.ValueNull}
	}
}
