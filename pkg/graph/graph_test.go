package graph

import (
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/graphweave/graphweave/pkg/common"
)

func entity(title, typ, desc string) common.ExtractedEntity {
	return common.ExtractedEntity{Title: title, Type: typ, Description: desc, Weight: 1}
}

func relation(source, target, typ string, weight float64) common.ExtractedRelationship {
	return common.ExtractedRelationship{
		SourceTitle: source,
		TargetTitle: target,
		Type:        typ,
		Description: source + " relates to " + target,
		Weight:      weight,
	}
}

func TestMergeDeduplicatesEntities(t *testing.T) {
	g := NewGraph()
	b := NewBuilder()

	b.Merge(g, []Extraction{
		{UnitID: "u1", Entities: []common.ExtractedEntity{
			entity("Ada Lovelace", "PERSON", "Mathematician."),
		}},
		{UnitID: "u2", Entities: []common.ExtractedEntity{
			entity("  ada lovelace ", "PERSON", "Wrote the first program."),
			entity("Ada Lovelace", "CONCEPT", "A name."),
		}},
	})

	if g.EntityCount() != 2 {
		t.Fatalf("got %d entities, want 2 (same title different type stays distinct)", g.EntityCount())
	}

	id, ok := g.EntityByTitle("Ada Lovelace")
	if !ok {
		t.Fatal("title lookup failed")
	}
	e, _ := g.EntityByID(id)
	if e.Occurrences != 2 {
		t.Errorf("got occurrences %d, want 2", e.Occurrences)
	}
	if !strings.Contains(e.Description, "Mathematician.") || !strings.Contains(e.Description, "first program") {
		t.Errorf("evidence not accumulated: %q", e.Description)
	}
	if len(e.TextUnitIDs) != 2 {
		t.Errorf("got %d source units, want 2", len(e.TextUnitIDs))
	}
}

func TestMergeIdempotentEvidence(t *testing.T) {
	g := NewGraph()
	b := NewBuilder()

	batch := []Extraction{
		{UnitID: "u1", Entities: []common.ExtractedEntity{
			entity("Grace Hopper", "PERSON", "Invented the compiler."),
		}},
	}
	b.Merge(g, batch)
	b.Merge(g, batch)

	id, _ := g.EntityByTitle("Grace Hopper")
	e, _ := g.EntityByID(id)
	if e.Occurrences != 2 {
		t.Errorf("got occurrences %d, want 2", e.Occurrences)
	}
	if e.Description != "Invented the compiler." {
		t.Errorf("identical evidence duplicated: %q", e.Description)
	}
}

func TestMergeEmbeddingIncrementalMean(t *testing.T) {
	g := NewGraph()
	b := NewBuilder()

	b.Merge(g, []Extraction{
		{
			UnitID:        "u1",
			Entities:      []common.ExtractedEntity{entity("Turing", "PERSON", "first")},
			EntityVectors: [][]float32{{1, 0}},
		},
		{
			UnitID:        "u2",
			Entities:      []common.ExtractedEntity{entity("Turing", "PERSON", "second")},
			EntityVectors: [][]float32{{0, 1}},
		},
	})

	id, _ := g.EntityByTitle("Turing")
	e, _ := g.EntityByID(id)
	if len(e.Embedding) != 2 {
		t.Fatalf("got embedding dim %d, want 2", len(e.Embedding))
	}
	for i, want := range []float32{0.5, 0.5} {
		if math.Abs(float64(e.Embedding[i]-want)) > 1e-6 {
			t.Errorf("embedding[%d] = %v, want %v", i, e.Embedding[i], want)
		}
	}
}

func TestMergeRelationshipsSamePassResolution(t *testing.T) {
	g := NewGraph()
	b := NewBuilder()

	stats, _ := b.Merge(g, []Extraction{
		{
			UnitID: "u1",
			Entities: []common.ExtractedEntity{
				entity("Alice", "PERSON", ""),
			},
			Relationships: []common.ExtractedRelationship{
				relation("Alice", "Bob", "KNOWS", 1),
			},
		},
		{
			UnitID: "u2",
			Entities: []common.ExtractedEntity{
				entity("Bob", "PERSON", ""),
			},
		},
	})

	if stats.RelationshipsRejected != 0 {
		t.Errorf("edge between same-batch entities rejected: %+v", stats)
	}
	if g.RelationshipCount() != 1 {
		t.Fatalf("got %d relationships, want 1", g.RelationshipCount())
	}
}

func TestMergeRelationshipRejections(t *testing.T) {
	g := NewGraph()
	b := NewBuilder()

	stats, _ := b.Merge(g, []Extraction{
		{
			UnitID:   "u1",
			Entities: []common.ExtractedEntity{entity("Alice", "PERSON", "")},
			Relationships: []common.ExtractedRelationship{
				relation("Alice", "Nobody", "KNOWS", 1),
				relation("Alice", "alice", "KNOWS", 1),
			},
		},
	})

	if stats.RelationshipsRejected != 2 {
		t.Errorf("got %d rejected, want 2 (dangling endpoint, self-loop)", stats.RelationshipsRejected)
	}
	if g.RelationshipCount() != 0 {
		t.Errorf("got %d relationships, want 0", g.RelationshipCount())
	}
}

func TestMergeReverseDuplicateRelationships(t *testing.T) {
	g := NewGraph()
	b := NewBuilder()

	b.Merge(g, []Extraction{
		{
			UnitID: "u1",
			Entities: []common.ExtractedEntity{
				entity("Alice", "PERSON", ""),
				entity("Bob", "PERSON", ""),
			},
			Relationships: []common.ExtractedRelationship{
				relation("Alice", "Bob", "KNOWS", 2),
				relation("Bob", "Alice", "KNOWS", 3),
			},
		},
	})

	rels := g.Relationships()
	if len(rels) != 1 {
		t.Fatalf("got %d relationships, want 1 (reverse duplicate merges)", len(rels))
	}
	if rels[0].Weight != 5 {
		t.Errorf("got weight %v, want 5", rels[0].Weight)
	}
	if rels[0].Occurrences != 2 {
		t.Errorf("got occurrences %d, want 2", rels[0].Occurrences)
	}
}

func TestMergeWeightCap(t *testing.T) {
	g := NewGraph()
	b := &Builder{WeightCap: 4}

	batch := []Extraction{
		{
			UnitID: "u1",
			Entities: []common.ExtractedEntity{
				entity("Alice", "PERSON", ""),
				entity("Bob", "PERSON", ""),
			},
			Relationships: []common.ExtractedRelationship{
				relation("Alice", "Bob", "KNOWS", 3),
			},
		},
	}
	b.Merge(g, batch)
	b.Merge(g, batch)

	rels := g.Relationships()
	if rels[0].Weight != 4 {
		t.Errorf("got weight %v, want cap 4", rels[0].Weight)
	}
}

func TestMergeTouchedIDsCoverSharedTitles(t *testing.T) {
	g := NewGraph()
	b := NewBuilder()

	_, touched := b.Merge(g, []Extraction{
		{UnitID: "u1", Entities: []common.ExtractedEntity{
			entity("Python", "ANIMAL", "A large snake."),
			entity("Python", "LANGUAGE", "A programming language."),
		}},
	})

	if len(touched) != 2 {
		t.Fatalf("got touched ids %v, want both same-title entities", touched)
	}
	for i := 1; i < len(touched); i++ {
		if touched[i-1] >= touched[i] {
			t.Fatalf("touched ids not sorted ascending: %v", touched)
		}
	}
	seen := map[string]bool{}
	for _, id := range touched {
		e, ok := g.EntityByID(id)
		if !ok {
			t.Fatalf("touched id %d unknown to graph", id)
		}
		seen[e.Type] = true
	}
	if !seen["ANIMAL"] || !seen["LANGUAGE"] {
		t.Errorf("touched ids must cover both types, got %v", seen)
	}

	// An update to an existing entity reports its id again.
	_, touched = b.Merge(g, []Extraction{
		{UnitID: "u2", Entities: []common.ExtractedEntity{
			entity("Python", "LANGUAGE", "Used for data work."),
		}},
	})
	if len(touched) != 1 {
		t.Fatalf("got touched ids %v, want exactly the updated entity", touched)
	}
}

func TestTruncateEvidence(t *testing.T) {
	long := strings.Repeat("a", 10) + evidenceSeparator + strings.Repeat("b", 10)
	got := truncateEvidence(long, 15)
	if len(got) > 15 {
		t.Errorf("len %d exceeds max 15", len(got))
	}
	if !strings.HasSuffix(got, strings.Repeat("b", 10)) {
		t.Errorf("newest evidence lost: %q", got)
	}
	if strings.Contains(got, "a") {
		t.Errorf("expected oldest evidence dropped at separator: %q", got)
	}

	short := "abc"
	if truncateEvidence(short, 15) != short {
		t.Error("short evidence must pass through unchanged")
	}

	// A cut without a separator may not split a multi-byte rune.
	multibyte := strings.Repeat("ü", 20)
	got = truncateEvidence(multibyte, 15)
	if !utf8.ValidString(got) {
		t.Errorf("truncation produced invalid UTF-8: %q", got)
	}
	if len(got) > 15 {
		t.Errorf("len %d exceeds max 15", len(got))
	}
}

func TestEdgesAccumulateAcrossTypes(t *testing.T) {
	g := NewGraph()
	b := NewBuilder()

	b.Merge(g, []Extraction{
		{
			UnitID: "u1",
			Entities: []common.ExtractedEntity{
				entity("Alice", "PERSON", ""),
				entity("Bob", "PERSON", ""),
			},
			Relationships: []common.ExtractedRelationship{
				relation("Alice", "Bob", "KNOWS", 1),
				relation("Bob", "Alice", "WORKS_WITH", 2),
			},
		},
	})

	if g.RelationshipCount() != 2 {
		t.Fatalf("got %d relationships, want 2 (distinct types)", g.RelationshipCount())
	}
	edges := g.Edges()
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	if edges[0].Weight != 3 {
		t.Errorf("got edge weight %v, want 3", edges[0].Weight)
	}
	if edges[0].A >= edges[0].B {
		t.Errorf("edge endpoints not ordered: %+v", edges[0])
	}
}
