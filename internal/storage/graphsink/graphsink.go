// Package graphsink persists extraction Graph events into Neo4j as
// subject-predicate-object triples, adapted from a generic component/edge
// graph store to the extraction pipeline's semantic-triple shape.
package graphsink

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/querent-ai/querent-go/internal/pipeline"
)

// Sink is the sole owner of all Neo4j operations for graph events.
type Sink struct {
	driver neo4j.DriverWithContext
}

// New creates a Sink against an already-open Neo4j driver.
func New(driver neo4j.DriverWithContext) *Sink {
	return &Sink{driver: driver}
}

// Write persists one graph event as a MERGEd triple: a Subject node, an
// Object node, and a typed edge between them carrying the event's
// provenance. Safe to call repeatedly with the same EventID; re-running
// only refreshes the edge's properties.
func (s *Sink) Write(ctx context.Context, g pipeline.GraphPayload) error {
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MERGE (subj:Entity {text: $subject, type: $subjectType})
		 MERGE (obj:Entity {text: $object, type: $objectType})
		 MERGE (subj)-[r:%s {event_id: $eventID}]->(obj)
		 SET r.sentence = $sentence, r.document_id = $documentID,
		     r.source_id = $sourceID, r.image_id = $imageID`,
		sanitizeRelType(g.Predicate),
	)
	_, err := sess.Run(ctx, cypher, map[string]any{
		"subject":     g.Subject,
		"subjectType": g.SubjectType,
		"object":      g.Object,
		"objectType":  g.ObjectType,
		"eventID":     g.EventID,
		"sentence":    g.Sentence,
		"documentID":  g.DocumentID,
		"sourceID":    g.SourceID,
		"imageID":     g.ImageID,
	})
	return err
}

// WriteBatch persists multiple graph events in one write transaction.
func (s *Sink) WriteBatch(ctx context.Context, events []pipeline.GraphPayload) error {
	if len(events) == 0 {
		return nil
	}
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, g := range events {
			cypher := fmt.Sprintf(
				`MERGE (subj:Entity {text: $subject, type: $subjectType})
				 MERGE (obj:Entity {text: $object, type: $objectType})
				 MERGE (subj)-[r:%s {event_id: $eventID}]->(obj)
				 SET r.sentence = $sentence, r.document_id = $documentID,
				     r.source_id = $sourceID, r.image_id = $imageID`,
				sanitizeRelType(g.Predicate),
			)
			if _, err := tx.Run(ctx, cypher, map[string]any{
				"subject":     g.Subject,
				"subjectType": g.SubjectType,
				"object":      g.Object,
				"objectType":  g.ObjectType,
				"eventID":     g.EventID,
				"sentence":    g.Sentence,
				"documentID":  g.DocumentID,
				"sourceID":    g.SourceID,
				"imageID":     g.ImageID,
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

// Neighbors returns the entities within traversal depth of a given entity
// text, for graph-exploration queries against the control plane.
func (s *Sink) Neighbors(ctx context.Context, entityText string, depth int) ([]string, error) {
	if depth <= 0 {
		depth = 1
	}
	sess := s.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH (start:Entity {text: $text})-[*1..%d]-(n:Entity)
		 WHERE n.text <> $text
		 RETURN DISTINCT n`, depth)
	result, err := sess.Run(ctx, cypher, map[string]any{"text": entityText})
	if err != nil {
		return nil, err
	}

	var texts []string
	for result.Next(ctx) {
		node, _, err := neo4j.GetRecordValue[dbtype.Node](result.Record(), "n")
		if err != nil {
			return nil, err
		}
		if t, ok := node.Props["text"].(string); ok {
			texts = append(texts, t)
		}
	}
	return texts, nil
}

func sanitizeRelType(t string) string {
	safe := make([]byte, 0, len(t))
	for i := 0; i < len(t); i++ {
		c := t[i]
		switch {
		case c >= 'a' && c <= 'z':
			safe = append(safe, c-32)
		case c >= 'A' && c <= 'Z':
			safe = append(safe, c)
		case c >= '0' && c <= '9':
			safe = append(safe, c)
		case c == ' ' || c == '-' || c == '_':
			safe = append(safe, '_')
		}
	}
	if len(safe) == 0 {
		return "RELATED_TO"
	}
	return string(safe)
}
