// Package vectorsink persists extraction Vector events into Qdrant and
// serves the similarity search the control plane exposes, adapted from a
// generic content-chunk vector store to the extraction pipeline's
// per-event embedding shape.
package vectorsink

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/querent-ai/querent-go/internal/pipeline"
)

// Sink is the sole owner of all Qdrant operations for vector events.
type Sink struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
}

// New dials Qdrant at addr and targets the given collection.
func New(addr, collection string) (*Sink, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("vectorsink: dial qdrant %s: %w", addr, err)
	}
	return &Sink{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
	}, nil
}

// Close closes the underlying gRPC connection.
func (s *Sink) Close() error {
	return s.conn.Close()
}

// EnsureCollection creates the collection if it doesn't already exist.
func (s *Sink) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("vectorsink: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorsink: create collection %s: %w", s.collection, err)
	}
	return nil
}

// WriteRecord is one vector event plus whatever metadata the caller wants
// indexed alongside it (document_id, source_id, subject, predicate, ...).
type WriteRecord struct {
	EventID string
	Payload pipeline.VectorPayload
	Meta    map[string]any
}

// Write persists one vector event, keyed by its EventID so the sink stays
// idempotent under redelivery.
func (s *Sink) Write(ctx context.Context, eventID string, v pipeline.VectorPayload, payload map[string]any) error {
	return s.WriteBatch(ctx, []WriteRecord{{EventID: eventID, Payload: v, Meta: payload}})
}

// WriteBatch persists multiple vector events in one Qdrant upsert call.
func (s *Sink) WriteBatch(ctx context.Context, records []WriteRecord) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		payload := make(map[string]*pb.Value, len(r.Meta)+1)
		payload["score"] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: float64(r.Payload.Score)}}
		for k, val := range r.Meta {
			switch tv := val.(type) {
			case string:
				payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: tv}}
			case int:
				payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(tv)}}
			case int64:
				payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: tv}}
			case float64:
				payload[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: tv}}
			case bool:
				payload[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: tv}}
			default:
				payload[k] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: fmt.Sprint(tv)}}
			}
		}

		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: r.EventID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: r.Payload.Embeddings}}},
			Payload: payload,
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("vectorsink: upsert %d points: %w", len(records), err)
	}
	return nil
}

// SearchResult is one similarity-search hit against stored vector events.
type SearchResult struct {
	EventID string
	Score   float32
	Meta    map[string]string
}

// Search performs top-K cosine similarity search, optionally filtered by
// exact-match metadata fields (e.g. "document_id", "source_id"). This is
// the module's single canonical top-pairs-embeddings query; there is no
// separate unfiltered-then-intersect variant.
func (s *Sink) Search(ctx context.Context, embedding []float32, topK int, filters map[string]string) ([]SearchResult, error) {
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         embedding,
		Limit:          uint64(topK),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	}
	if len(filters) > 0 {
		must := make([]*pb.Condition, 0, len(filters))
		for k, v := range filters {
			must = append(must, fieldMatch(k, v))
		}
		req.Filter = &pb.Filter{Must: must}
	}

	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("vectorsink: search: %w", err)
	}

	results := make([]SearchResult, len(resp.GetResult()))
	for i, r := range resp.GetResult() {
		sr := SearchResult{EventID: r.GetId().GetUuid(), Score: r.GetScore(), Meta: make(map[string]string)}
		for k, val := range r.GetPayload() {
			sr.Meta[k] = val.GetStringValue()
		}
		results[i] = sr
	}
	return results, nil
}

// DeleteByDocumentID removes every vector event belonging to a document,
// used when a document is re-ingested or retracted.
func (s *Sink) DeleteByDocumentID(ctx context.Context, documentID string) error {
	wait := true
	_, err := s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{Must: []*pb.Condition{fieldMatch("document_id", documentID)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("vectorsink: delete by document_id %s: %w", documentID, err)
	}
	return nil
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}
