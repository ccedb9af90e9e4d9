// Package store owns the per-session state: the deduplicated graph, the
// text-unit store, detected communities, vector indexes, and accumulated
// statistics. Sessions are the isolation boundary; nothing is shared
// across them.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/common"
	"github.com/graphweave/graphweave/pkg/community"
	"github.com/graphweave/graphweave/pkg/graph"
	"github.com/graphweave/graphweave/pkg/vector"
)

const (
	DefaultChunkSize    = 600
	DefaultChunkOverlap = 100
)

// SessionConfig is validated once at session creation, not per call.
type SessionConfig struct {
	// ChunkSize is the target text-unit size in tokens. Zero selects
	// the default; negative is an error.
	ChunkSize int

	// ChunkOverlap is the overlap between neighboring units, in the
	// same token measure. Must be strictly smaller than ChunkSize.
	ChunkOverlap int

	// AutoDetectCommunities reruns community detection after every
	// indexing call.
	AutoDetectCommunities bool

	Extractor ai.Extractor
	Embedder  ai.Embedder

	// WeightCap and MaxEvidenceLen tune the graph builder; zero values
	// select the builder defaults.
	WeightCap      float64
	MaxEvidenceLen int

	// Community tunes detection; zero values select the detector
	// defaults.
	Community community.Config

	// TTL bounds the session's absolute lifetime; IdleTTL its time
	// since last access. Zero disables the respective bound.
	TTL     time.Duration
	IdleTTL time.Duration
}

func (c *SessionConfig) withDefaults() SessionConfig {
	out := *c
	if out.ChunkSize == 0 {
		out.ChunkSize = DefaultChunkSize
		if out.ChunkOverlap == 0 {
			out.ChunkOverlap = DefaultChunkOverlap
		}
	}
	return out
}

// Validate checks the configuration, returning a *ConfigError on the
// first violation.
func (c *SessionConfig) Validate() error {
	resolved := c.withDefaults()
	if resolved.ChunkSize <= 0 {
		return &ConfigError{Field: "chunk_size", Reason: "must be positive"}
	}
	if resolved.ChunkOverlap < 0 {
		return &ConfigError{Field: "chunk_overlap", Reason: "must not be negative"}
	}
	if resolved.ChunkOverlap >= resolved.ChunkSize {
		return &ConfigError{Field: "chunk_overlap", Reason: "must be smaller than chunk_size"}
	}
	if resolved.Extractor == nil {
		return &ConfigError{Field: "extractor", Reason: "required"}
	}
	if resolved.Embedder == nil {
		return &ConfigError{Field: "embedder", Reason: "required"}
	}
	if resolved.Embedder.Dimensions() <= 0 {
		return &ConfigError{Field: "embedder", Reason: "dimensions must be positive"}
	}
	return nil
}

// Session holds one isolated graph plus its text units, communities,
// vector indexes, and statistics. Writes are serialized behind the
// session write lock; queries run under the read lock. Close drains any
// in-flight merge by acquiring the write lock before marking the
// session closed.
type Session struct {
	id        string
	cfg       SessionConfig
	createdAt time.Time

	accessMu   sync.Mutex
	lastAccess time.Time

	mu     sync.RWMutex
	closed bool

	graph   *graph.Graph
	builder *graph.Builder

	units     map[string]*common.TextUnit
	numToUnit map[uint64]string
	unitSeq   uint64

	communities []common.Community

	unitIndex      *vector.Index
	entityIndex    *vector.Index
	communityIndex *vector.Index

	stats common.IndexStats
}

func newSession(id string, cfg SessionConfig) *Session {
	now := time.Now()
	dims := cfg.Embedder.Dimensions()
	return &Session{
		id:         id,
		cfg:        cfg,
		createdAt:  now,
		lastAccess: now,
		graph:      graph.NewGraph(),
		builder: &graph.Builder{
			MaxEvidenceLen: cfg.MaxEvidenceLen,
			WeightCap:      cfg.WeightCap,
		},
		units:          make(map[string]*common.TextUnit),
		numToUnit:      make(map[uint64]string),
		unitIndex:      vector.NewIndex(dims),
		entityIndex:    vector.NewIndex(dims),
		communityIndex: vector.NewIndex(dims),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Config() SessionConfig {
	return s.cfg
}

// Touch records an access for idle-expiry purposes.
func (s *Session) Touch() {
	s.accessMu.Lock()
	s.lastAccess = time.Now()
	s.accessMu.Unlock()
}

// IsExpired reports whether the session exceeded its absolute or idle
// lifetime. Zero bounds never expire.
func (s *Session) IsExpired() bool {
	now := time.Now()
	if s.cfg.TTL > 0 && now.Sub(s.createdAt) > s.cfg.TTL {
		return true
	}
	if s.cfg.IdleTTL > 0 {
		s.accessMu.Lock()
		last := s.lastAccess
		s.accessMu.Unlock()
		if now.Sub(last) > s.cfg.IdleTTL {
			return true
		}
	}
	return false
}

// Commit applies one indexed batch: it stores the surviving text units,
// merges the extractions into the graph, refreshes the affected vector
// index entries, and folds the outcome into the session statistics. The
// whole commit is one critical section, so concurrent batches queue
// here and deduplication stays consistent.
func (s *Session) Commit(docs int, units []common.TextUnit, rejectedUnits int, batch []graph.Extraction) (common.IndexStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return common.IndexStats{}, ErrSessionClosed
	}

	for i := range units {
		u := units[i]
		if _, exists := s.units[u.ID]; exists {
			continue
		}
		s.units[u.ID] = &u
		s.unitSeq++
		num := s.unitSeq
		s.numToUnit[num] = u.ID
		if len(u.Embedding) > 0 {
			if err := s.unitIndex.Add(num, u.Embedding); err != nil {
				return common.IndexStats{}, err
			}
		}
	}

	ms, touched := s.builder.Merge(s.graph, batch)

	// Refresh index entries for every entity the batch touched. The
	// merge reports ids directly; a title lookup would miss an entity
	// sharing its title with an earlier one of a different type.
	for _, id := range touched {
		e, ok := s.graph.EntityByID(id)
		if !ok || len(e.Embedding) == 0 {
			continue
		}
		if err := s.entityIndex.Add(id, e.Embedding); err != nil {
			return common.IndexStats{}, err
		}
	}

	delta := common.IndexStats{
		DocumentsIndexed:       docs,
		TextUnitsCreated:       len(units),
		EntitiesExtracted:      ms.EntitiesMerged,
		RelationshipsExtracted: ms.RelationshipsMerged,
		UnitsRejected:          rejectedUnits,
		RelationshipsRejected:  ms.RelationshipsRejected,
	}
	s.stats.Add(delta)

	s.Touch()
	return delta, nil
}

// AddIndexingTime folds wall-clock indexing time into the statistics.
func (s *Session) AddIndexingTime(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.stats.IndexingTimeSeconds += d.Seconds()
}

// GraphSnapshot returns a consistent copy of entities and weighted
// edges for community detection.
func (s *Session) GraphSnapshot() ([]common.Entity, []graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, nil, ErrSessionClosed
	}
	s.Touch()
	return s.graph.Entities(), s.graph.Edges(), nil
}

// SetCommunities replaces the session's communities with the result of
// a detection pass and rebuilds the community index.
func (s *Session) SetCommunities(comms []common.Community) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	for _, c := range s.communities {
		s.communityIndex.Remove(c.ID)
	}
	s.communities = comms
	for _, c := range comms {
		if len(c.Embedding) == 0 {
			continue
		}
		if err := s.communityIndex.Add(c.ID, c.Embedding); err != nil {
			return err
		}
	}
	s.stats.CommunitiesDetected = len(comms)
	s.Touch()
	return nil
}

// Communities returns the current detection result.
func (s *Session) Communities() ([]common.Community, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	out := make([]common.Community, len(s.communities))
	copy(out, s.communities)
	return out, nil
}

// Stats returns a copy of the accumulated session statistics.
func (s *Session) Stats() (common.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return common.IndexStats{}, ErrSessionClosed
	}
	return s.stats, nil
}

// IsEmpty reports whether the session has neither text units nor
// entities.
func (s *Session) IsEmpty() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrSessionClosed
	}
	return len(s.units) == 0 && s.graph.EntityCount() == 0, nil
}

// SearchEntities ranks entities by cosine similarity to the query
// vector. Ties break by higher occurrence count, then by title.
func (s *Session) SearchEntities(queryVec []float32, topK int) ([]common.ScoredEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if topK <= 0 {
		return []common.ScoredEntity{}, nil
	}

	// Rank over the full candidate set so the entity tie-break applies
	// before the top-k cut, not after it.
	results := s.entityIndex.Search(queryVec, s.entityIndex.Count())
	scored := make([]common.ScoredEntity, 0, len(results))
	for _, r := range results {
		e, ok := s.graph.EntityByID(r.ID)
		if !ok {
			continue
		}
		scored = append(scored, common.ScoredEntity{Entity: e, Score: r.Similarity})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		if scored[i].Entity.Occurrences != scored[j].Entity.Occurrences {
			return scored[i].Entity.Occurrences > scored[j].Entity.Occurrences
		}
		return scored[i].Entity.Title < scored[j].Entity.Title
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	s.Touch()
	return scored, nil
}

// SearchTextUnits ranks text units by cosine similarity to the query
// vector, ties broken by insertion order.
func (s *Session) SearchTextUnits(queryVec []float32, topK int) ([]common.ScoredTextUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if topK <= 0 {
		return []common.ScoredTextUnit{}, nil
	}

	results := s.unitIndex.Search(queryVec, topK)
	scored := make([]common.ScoredTextUnit, 0, len(results))
	for _, r := range results {
		id, ok := s.numToUnit[r.ID]
		if !ok {
			continue
		}
		u := s.units[id]
		scored = append(scored, common.ScoredTextUnit{TextUnit: *u, Score: r.Similarity})
	}
	s.Touch()
	return scored, nil
}

// SearchCommunities ranks communities by cosine similarity of their
// summary embeddings to the query vector, ties broken by community id.
func (s *Session) SearchCommunities(queryVec []float32, topK int) ([]common.ScoredCommunity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if topK <= 0 {
		return []common.ScoredCommunity{}, nil
	}

	byID := make(map[uint64]*common.Community, len(s.communities))
	for i := range s.communities {
		byID[s.communities[i].ID] = &s.communities[i]
	}

	results := s.communityIndex.Search(queryVec, topK)
	scored := make([]common.ScoredCommunity, 0, len(results))
	for _, r := range results {
		c, ok := byID[r.ID]
		if !ok {
			continue
		}
		scored = append(scored, common.ScoredCommunity{Community: *c, Score: r.Similarity})
	}
	s.Touch()
	return scored, nil
}

// Close drains any in-flight merge by taking the write lock, marks the
// session closed, and releases its memory. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.graph = graph.NewGraph()
	s.units = nil
	s.numToUnit = nil
	s.communities = nil
	s.unitIndex.Clear()
	s.entityIndex.Clear()
	s.communityIndex.Clear()
	return nil
}
