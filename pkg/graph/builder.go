package graph

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/graphweave/graphweave/pkg/common"
)

const (
	DefaultMaxEvidenceLen = 4096
	DefaultWeightCap      = 10.0

	evidenceSeparator = "\n\n"
)

// Extraction is the merge input produced from one text unit.
// EntityVectors is parallel to Entities; a nil vector means the
// candidate carries no embedding contribution.
type Extraction struct {
	UnitID        string
	Entities      []common.ExtractedEntity
	EntityVectors [][]float32
	Relationships []common.ExtractedRelationship
}

// MergeStats reports what one Merge call did.
type MergeStats struct {
	EntitiesMerged        int
	RelationshipsMerged   int
	RelationshipsRejected int
}

// Builder merges extraction batches into a Graph. The zero value is
// usable; zero fields select the package defaults.
type Builder struct {
	// MaxEvidenceLen bounds accumulated description evidence per
	// entity and relationship; oldest evidence is truncated first.
	MaxEvidenceLen int

	// WeightCap bounds accumulated relationship weight.
	WeightCap float64
}

func NewBuilder() *Builder {
	return &Builder{
		MaxEvidenceLen: DefaultMaxEvidenceLen,
		WeightCap:      DefaultWeightCap,
	}
}

func (b *Builder) maxEvidenceLen() int {
	if b.MaxEvidenceLen > 0 {
		return b.MaxEvidenceLen
	}
	return DefaultMaxEvidenceLen
}

func (b *Builder) weightCap() float64 {
	if b.WeightCap > 0 {
		return b.WeightCap
	}
	return DefaultWeightCap
}

// Merge folds a batch of extractions into g. All entities of the batch
// are inserted before any relationship endpoint is resolved, so edges
// between entities introduced in the same batch never dangle.
// Relationships with unresolvable endpoints or identical endpoints are
// dropped and counted in RelationshipsRejected. The second return lists
// the distinct ids of every entity the batch created or updated, sorted
// ascending, so the caller can refresh derived state for exactly those.
func (b *Builder) Merge(g *Graph, batch []Extraction) (MergeStats, []uint64) {
	var stats MergeStats

	touchedSet := make(map[uint64]struct{})
	for _, ex := range batch {
		for i, cand := range ex.Entities {
			var vec []float32
			if i < len(ex.EntityVectors) {
				vec = ex.EntityVectors[i]
			}
			if id, ok := b.mergeEntity(g, cand, vec, ex.UnitID); ok {
				touchedSet[id] = struct{}{}
			}
			stats.EntitiesMerged++
		}
	}

	for _, ex := range batch {
		for _, cand := range ex.Relationships {
			if b.mergeRelationship(g, cand) {
				stats.RelationshipsMerged++
			} else {
				stats.RelationshipsRejected++
			}
		}
	}

	touched := make([]uint64, 0, len(touchedSet))
	for id := range touchedSet {
		touched = append(touched, id)
	}
	sort.Slice(touched, func(i, j int) bool { return touched[i] < touched[j] })
	return stats, touched
}

func (b *Builder) mergeEntity(g *Graph, cand common.ExtractedEntity, vec []float32, unitID string) (uint64, bool) {
	title := strings.TrimSpace(cand.Title)
	if title == "" {
		return 0, false
	}
	key := entityKey{title: normalizeTitle(title), typ: strings.TrimSpace(cand.Type)}
	desc := strings.TrimSpace(cand.Description)

	id, ok := g.byKey[key]
	if !ok {
		g.nextEntityID++
		id = g.nextEntityID
		rec := &entityRecord{
			entity: common.Entity{
				ID:          id,
				Title:       title,
				Type:        key.typ,
				Description: desc,
				Occurrences: 1,
			},
			unitSeen: make(map[string]struct{}),
		}
		if vec != nil {
			rec.entity.Embedding = make([]float32, len(vec))
			copy(rec.entity.Embedding, vec)
			rec.embedContribs = 1
		}
		if unitID != "" {
			rec.unitSeen[unitID] = struct{}{}
			rec.entity.TextUnitIDs = []string{unitID}
		}
		g.entities[id] = rec
		g.byKey[key] = id
		if _, exists := g.byTitle[key.title]; !exists {
			g.byTitle[key.title] = id
		}
		return id, true
	}

	rec := g.entities[id]
	rec.entity.Occurrences++
	if unitID != "" {
		if _, seen := rec.unitSeen[unitID]; !seen {
			rec.unitSeen[unitID] = struct{}{}
			rec.entity.TextUnitIDs = append(rec.entity.TextUnitIDs, unitID)
		}
	}

	// Re-delivered identical evidence bumps the occurrence count only.
	if desc != "" && strings.Contains(rec.entity.Description, desc) {
		return id, true
	}

	if desc != "" {
		if rec.entity.Description == "" {
			rec.entity.Description = desc
		} else {
			rec.entity.Description = truncateEvidence(
				rec.entity.Description+evidenceSeparator+desc,
				b.maxEvidenceLen(),
			)
		}
	}

	if vec != nil {
		b.foldEmbedding(rec, vec)
	}
	return id, true
}

// foldEmbedding updates the entity embedding as an incremental mean of
// the contributing vectors. Vectors of a different length are ignored.
func (b *Builder) foldEmbedding(rec *entityRecord, vec []float32) {
	if rec.embedContribs == 0 || rec.entity.Embedding == nil {
		rec.entity.Embedding = make([]float32, len(vec))
		copy(rec.entity.Embedding, vec)
		rec.embedContribs = 1
		return
	}
	if len(vec) != len(rec.entity.Embedding) {
		return
	}
	rec.embedContribs++
	n := float32(rec.embedContribs)
	for i, v := range vec {
		rec.entity.Embedding[i] += (v - rec.entity.Embedding[i]) / n
	}
}

func (b *Builder) mergeRelationship(g *Graph, cand common.ExtractedRelationship) bool {
	sourceID, ok := g.EntityByTitle(cand.SourceTitle)
	if !ok {
		return false
	}
	targetID, ok := g.EntityByTitle(cand.TargetTitle)
	if !ok {
		return false
	}
	if sourceID == targetID {
		return false
	}

	typ := strings.TrimSpace(cand.Type)
	key := relKey{low: sourceID, high: targetID, typ: typ}
	if key.low > key.high {
		key.low, key.high = key.high, key.low
	}
	desc := strings.TrimSpace(cand.Description)
	weight := cand.Weight
	if weight < 0 {
		weight = 0
	}

	id, exists := g.relByKey[key]
	if !exists {
		g.nextRelationshipID++
		id = g.nextRelationshipID
		if weight > b.weightCap() {
			weight = b.weightCap()
		}
		g.relationships[id] = &common.Relationship{
			ID:          id,
			SourceID:    sourceID,
			TargetID:    targetID,
			Type:        typ,
			Description: desc,
			Weight:      weight,
			Occurrences: 1,
		}
		g.relByKey[key] = id
		return true
	}

	rel := g.relationships[id]
	rel.Occurrences++
	rel.Weight += weight
	if rel.Weight > b.weightCap() {
		rel.Weight = b.weightCap()
	}
	if desc != "" && !strings.Contains(rel.Description, desc) {
		if rel.Description == "" {
			rel.Description = desc
		} else {
			rel.Description = truncateEvidence(
				rel.Description+evidenceSeparator+desc,
				b.maxEvidenceLen(),
			)
		}
	}
	return true
}

// truncateEvidence drops the oldest evidence when the accumulated text
// exceeds max, preferring to cut at a separator boundary and otherwise
// at a rune boundary.
func truncateEvidence(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[len(s)-max:]
	if idx := strings.Index(cut, evidenceSeparator); idx >= 0 && idx+len(evidenceSeparator) < len(cut) {
		return cut[idx+len(evidenceSeparator):]
	}
	for len(cut) > 0 && !utf8.RuneStart(cut[0]) {
		cut = cut[1:]
	}
	return cut
}
