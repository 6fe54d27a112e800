package metastore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/querent-ai/querent-go/pkg/repo"
)

// configRecord is the Neo4j-mapped shape of one Store entry: the
// arbitrary value map is JSON-encoded into a single string property,
// since Neo4j node properties must be scalars or arrays of scalars.
type configRecord struct {
	ID   string
	Data string
}

func configToMap(c configRecord) map[string]any {
	return map[string]any{"id": c.ID, "data": c.Data}
}

func configFromRecord(rec *neo4j.Record) (configRecord, error) {
	n, ok := rec.Values[0].(map[string]any)
	if !ok {
		return configRecord{}, fmt.Errorf("metastore: unexpected record shape")
	}
	id, _ := n["id"].(string)
	data, _ := n["data"].(string)
	return configRecord{ID: id, Data: data}, nil
}

// Neo4j is a Store backed by a graph node per entry, labeled
// QuerentConfig. It reuses the teacher's generic repo.Neo4jRepo rather
// than hand-rolling session/cypher plumbing a second time.
type Neo4j struct {
	repo *repo.Neo4jRepo[configRecord, string]
}

// NewNeo4j builds a Neo4j-backed Store over an already-connected driver.
func NewNeo4j(driver neo4j.DriverWithContext) *Neo4j {
	return &Neo4j{
		repo: repo.NewNeo4jRepo[configRecord, string](
			driver, "QuerentConfig", configToMap, configFromRecord,
		),
	}
}

func (s *Neo4j) Get(ctx context.Context, id string) (map[string]any, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, ErrNotFound
	}
	return decodeConfig(rec.Data)
}

func (s *Neo4j) Put(ctx context.Context, id string, value map[string]any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	rec := configRecord{ID: id, Data: string(data)}
	if _, err := s.repo.Get(ctx, id); err != nil {
		_, err = s.repo.Create(ctx, rec)
		return err
	}
	_, err = s.repo.Update(ctx, rec)
	return err
}

func (s *Neo4j) List(ctx context.Context) (map[string]map[string]any, error) {
	recs, err := s.repo.List(ctx, repo.ListOpts{Limit: 1000})
	if err != nil {
		return nil, err
	}
	out := make(map[string]map[string]any, len(recs))
	for _, rec := range recs {
		v, err := decodeConfig(rec.Data)
		if err != nil {
			continue
		}
		out[rec.ID] = v
	}
	return out, nil
}

func (s *Neo4j) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

func decodeConfig(data string) (map[string]any, error) {
	var v map[string]any
	if data == "" {
		return map[string]any{}, nil
	}
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, err
	}
	return v, nil
}

var _ Store = (*Neo4j)(nil)
