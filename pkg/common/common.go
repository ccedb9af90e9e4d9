package common

// Document is a raw input text with a caller-supplied source identifier.
// Documents are immutable once submitted for indexing.
type Document struct {
	ID       string `json:"id"`
	SourceID string `json:"source_id"`
	Content  string `json:"content"`
}

// TextUnit is a contiguous, token-bounded slice of a document. Units are
// the atomic inputs for extraction and embedding and serve as provenance
// for entities and relationships. A unit is never mutated after creation.
type TextUnit struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Index      int       `json:"index"`
	Content    string    `json:"content"`
	TokenCount int       `json:"token_count"`
	Embedding  []float32 `json:"embedding,omitempty"`
}

// ExtractedEntity is a transient entity candidate produced by an Extractor
// for a single text unit. It is consumed by the graph merge and discarded.
type ExtractedEntity struct {
	Title       string  `json:"title"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// ExtractedRelationship is a transient relationship candidate produced by
// an Extractor. Source and target reference entity titles from the same
// extraction pass; resolution to entity ids happens during the merge.
type ExtractedRelationship struct {
	SourceTitle string  `json:"source_title"`
	TargetTitle string  `json:"target_title"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
}

// Entity is a resolved, deduplicated node in the knowledge graph. Its
// identity is the normalized (title, type) pair within one session. New
// extractions for the same identity append evidence to the description,
// bump the occurrence count and fold their vectors into the embedding.
type Entity struct {
	ID          uint64    `json:"id"`
	Title       string    `json:"title"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Occurrences int       `json:"occurrences"`
	Embedding   []float32 `json:"embedding,omitempty"`
	TextUnitIDs []string  `json:"text_unit_ids,omitempty"`
}

// Relationship is a resolved, weight-accumulating edge between two
// entities. The storage key is ordered so a reverse mention of the same
// pair merges into the existing edge instead of creating a duplicate.
type Relationship struct {
	ID          uint64  `json:"id"`
	SourceID    uint64  `json:"source_id"`
	TargetID    uint64  `json:"target_id"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Weight      float64 `json:"weight"`
	Occurrences int     `json:"occurrences"`
}

// Community is a cluster of entities produced by graph partitioning,
// together with a generated summary. Communities are recomputed wholesale
// on each detection pass; ids are stable only within one pass.
type Community struct {
	ID        uint64    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Size      int       `json:"size"`
	EntityIDs []uint64  `json:"entity_ids"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// IndexStats reports what one indexing call produced. The session keeps an
// accumulated copy covering all indexing calls so far.
type IndexStats struct {
	DocumentsIndexed       int     `json:"documents_indexed"`
	TextUnitsCreated       int     `json:"text_units_created"`
	EntitiesExtracted      int     `json:"entities_extracted"`
	RelationshipsExtracted int     `json:"relationships_extracted"`
	CommunitiesDetected    int     `json:"communities_detected"`
	UnitsRejected          int     `json:"units_rejected"`
	RelationshipsRejected  int     `json:"relationships_rejected"`
	IndexingTimeSeconds    float64 `json:"indexing_time_seconds"`
}

// Add accumulates the counters of another stats value. Counters and timing
// add up; CommunitiesDetected reflects the latest detection pass and is
// left untouched for the caller to set after detection.
func (s *IndexStats) Add(other IndexStats) {
	s.DocumentsIndexed += other.DocumentsIndexed
	s.TextUnitsCreated += other.TextUnitsCreated
	s.EntitiesExtracted += other.EntitiesExtracted
	s.RelationshipsExtracted += other.RelationshipsExtracted
	s.UnitsRejected += other.UnitsRejected
	s.RelationshipsRejected += other.RelationshipsRejected
	s.IndexingTimeSeconds += other.IndexingTimeSeconds
}

// ScoredEntity is an entity with its query similarity score.
type ScoredEntity struct {
	Entity Entity  `json:"entity"`
	Score  float64 `json:"score"`
}

// ScoredTextUnit is a text unit with its query similarity score.
type ScoredTextUnit struct {
	TextUnit TextUnit `json:"text_unit"`
	Score    float64  `json:"score"`
}

// ScoredCommunity is a community with its query similarity score.
type ScoredCommunity struct {
	Community Community `json:"community"`
	Score     float64   `json:"score"`
}

// QueryResult holds the ranked results of one query, one slice per facet,
// each sorted descending by score. A facet that was not requested stays an
// empty slice. ExecutionTimeMS covers query receipt to result assembly.
type QueryResult struct {
	Entities        []ScoredEntity    `json:"entities"`
	TextUnits       []ScoredTextUnit  `json:"text_units"`
	Communities     []ScoredCommunity `json:"communities"`
	ExecutionTimeMS float64           `json:"execution_time_ms"`
}
