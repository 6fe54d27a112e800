package metastore

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

func TestConfigRoundTripsThroughJSON(t *testing.T) {
	v, err := decodeConfig(`{"rate_limit":5,"enabled":true}`)
	if err != nil {
		t.Fatalf("decodeConfig: %v", err)
	}
	if v["enabled"] != true {
		t.Fatalf("expected enabled=true, got %v", v["enabled"])
	}
}

func TestDecodeConfigEmptyIsEmptyMap(t *testing.T) {
	v, err := decodeConfig("")
	if err != nil {
		t.Fatalf("decodeConfig: %v", err)
	}
	if len(v) != 0 {
		t.Fatalf("expected empty map, got %v", v)
	}
}

func TestConfigFromRecordExtractsIDAndData(t *testing.T) {
	rec := &neo4j.Record{
		Values: []any{map[string]any{"id": "c1", "data": `{"x":1}`}},
		Keys:   []string{"n"},
	}
	c, err := configFromRecord(rec)
	if err != nil {
		t.Fatalf("configFromRecord: %v", err)
	}
	if c.ID != "c1" || c.Data != `{"x":1}` {
		t.Fatalf("unexpected record %+v", c)
	}
}

func TestNewNeo4jSatisfiesStore(t *testing.T) {
	var _ Store = NewNeo4j(nil)
}
