// Package pipeline holds the data model shared by the semantic extraction
// pipeline's stages (C9-C13): the shapes that flow from a source poller
// through ingestion, extraction, and finally the event sinks.
package pipeline

// CollectedBytes is one chunk of raw bytes read from a source, tagged with
// enough provenance to route it through ingestion and attribute the
// eventual knowledge back to where it came from.
type CollectedBytes struct {
	File      string
	DocSource string
	SourceID  string
	Data      []byte
	Extension string
	Eof       bool
}

// IngestedTokens is what the ingestion processor produces: either a block
// of decoded text ready for extraction, or an empty end-of-file marker
// that tells the extractor a logical document has ended.
type IngestedTokens struct {
	File      string
	DocSource string
	SourceID  string
	ImageID   string
	Data      []string
	IsEof     bool
}

// Entity is a span of text recognized inside a sentence, either supplied
// up front or discovered by a NER model.
type Entity struct {
	Text     string
	Label    string
	StartIdx int
	EndIdx   int
}

// ClassifiedSentence is one sentence-sized chunk together with its tokens
// and the entities found inside it, each located by token indices
// (StartIdx inclusive, EndIdx exclusive).
type ClassifiedSentence struct {
	Sentence string
	Tokens   []string
	Entities []Entity
}

// EntityPair is one candidate (head, tail) relation subject pulled out of
// a classified sentence by CreateBinaryPairs.
type EntityPair struct {
	Head    Entity
	Tail    Entity
	Context string
}

// AttentionMatrix is the head-averaged, [CLS]/[SEP]-stripped attention
// matrix for one classified sentence's tokens. Rows is nil when the model
// returned no rows beyond the two boundary rows.
type AttentionMatrix struct {
	Rows [][]float32
}

// PredicateScore is one candidate predicate (a joined run of tokens) and
// its beam-search score.
type PredicateScore struct {
	Predicate string
	Score     float32
}

// HeadTailRelations collects the predicate candidates found for one
// entity pair. After SelectHighestScoreRelation it holds at most one
// entry; after MergeSimilarRelations duplicates across the whole sentence
// have been folded together.
type HeadTailRelations struct {
	Pair      EntityPair
	Relations []PredicateScore
}

// ClassifiedSentenceWithRelations is a classified sentence plus every
// pair's resolved relation(s), the last stage before event emission.
type ClassifiedSentenceWithRelations struct {
	Sentence  ClassifiedSentence
	Relations []HeadTailRelations
}

// EventKind distinguishes the two payload shapes EmitEvents produces.
type EventKind int

const (
	EventGraph EventKind = iota
	EventVector
)

func (k EventKind) String() string {
	if k == EventVector {
		return "vector"
	}
	return "graph"
}

// GraphPayload is the semantic-knowledge row persisted by graphsink.
type GraphPayload struct {
	EventID       string
	DocumentID    string
	Subject       string
	SubjectType   string
	Predicate     string
	PredicateType string
	Object        string
	ObjectType    string
	Sentence      string
	SourceID      string
	ImageID       string
	CollectionID  string
	Blob          string
}

// VectorPayload is the embedding row persisted by vectorsink.
type VectorPayload struct {
	EventID    string
	Embeddings []float32
	Score      float32
}

// EventState is the unit EmitEvents yields: exactly one of Graph or
// Vector is set, selected by Kind. Invariant: for a given pair, the Graph
// event is always emitted before its matching Vector event.
type EventState struct {
	Kind      EventKind
	File      string
	DocSource string
	ImageID   string
	Timestamp float64
	Graph     *GraphPayload
	Vector    *VectorPayload
}
