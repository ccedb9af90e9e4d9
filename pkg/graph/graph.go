// Package graph holds the per-session entity/relationship graph and the
// builder that merges extraction batches into it with deduplication.
//
// A Graph is not safe for concurrent use; the owning session serializes
// writes behind its lock and snapshots under a read lock.
package graph

import (
	"sort"
	"strings"

	"github.com/graphweave/graphweave/pkg/common"
)

type entityKey struct {
	title string
	typ   string
}

type relKey struct {
	low  uint64
	high uint64
	typ  string
}

type entityRecord struct {
	entity common.Entity

	// embedContribs counts vectors folded into the incremental mean.
	// It can lag Occurrences when a candidate arrives without a vector.
	embedContribs int
	unitSeen      map[string]struct{}
}

// Graph is the deduplicated entity/relationship store for one session.
type Graph struct {
	entities map[uint64]*entityRecord
	byKey    map[entityKey]uint64
	byTitle  map[string]uint64

	relationships map[uint64]*common.Relationship
	relByKey      map[relKey]uint64

	nextEntityID       uint64
	nextRelationshipID uint64
}

func NewGraph() *Graph {
	return &Graph{
		entities:      make(map[uint64]*entityRecord),
		byKey:         make(map[entityKey]uint64),
		byTitle:       make(map[string]uint64),
		relationships: make(map[uint64]*common.Relationship),
		relByKey:      make(map[relKey]uint64),
	}
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

func (g *Graph) EntityCount() int {
	return len(g.entities)
}

func (g *Graph) RelationshipCount() int {
	return len(g.relationships)
}

// EntityByID returns a copy of the entity with the given id.
func (g *Graph) EntityByID(id uint64) (common.Entity, bool) {
	rec, ok := g.entities[id]
	if !ok {
		return common.Entity{}, false
	}
	return copyEntity(&rec.entity), true
}

// EntityByTitle resolves a title to an entity id the way the builder
// does for relationship endpoints.
func (g *Graph) EntityByTitle(title string) (uint64, bool) {
	id, ok := g.byTitle[normalizeTitle(title)]
	return id, ok
}

// Entities returns copies of all entities sorted ascending by id.
func (g *Graph) Entities() []common.Entity {
	out := make([]common.Entity, 0, len(g.entities))
	for _, rec := range g.entities {
		out = append(out, copyEntity(&rec.entity))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Relationships returns copies of all relationships sorted ascending by id.
func (g *Graph) Relationships() []common.Relationship {
	out := make([]common.Relationship, 0, len(g.relationships))
	for _, rel := range g.relationships {
		out = append(out, *rel)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edge is one undirected weighted edge of the entity graph, as consumed
// by community detection.
type Edge struct {
	A      uint64
	B      uint64
	Weight float64
}

// Edges returns the undirected edge list with weights accumulated
// across relationship types, sorted for deterministic traversal.
func (g *Graph) Edges() []Edge {
	acc := make(map[[2]uint64]float64, len(g.relationships))
	for _, rel := range g.relationships {
		a, b := rel.SourceID, rel.TargetID
		if a > b {
			a, b = b, a
		}
		acc[[2]uint64{a, b}] += rel.Weight
	}
	out := make([]Edge, 0, len(acc))
	for pair, w := range acc {
		out = append(out, Edge{A: pair[0], B: pair[1], Weight: w})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

func copyEntity(e *common.Entity) common.Entity {
	out := *e
	if e.Embedding != nil {
		out.Embedding = make([]float32, len(e.Embedding))
		copy(out.Embedding, e.Embedding)
	}
	if e.TextUnitIDs != nil {
		out.TextUnitIDs = make([]string, len(e.TextUnitIDs))
		copy(out.TextUnitIDs, e.TextUnitIDs)
	}
	return out
}
