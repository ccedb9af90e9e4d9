package store

import (
	"errors"
	"testing"
	"time"

	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/common"
	"github.com/graphweave/graphweave/pkg/graph"
)

func testConfig() SessionConfig {
	return SessionConfig{
		ChunkSize:    100,
		ChunkOverlap: 10,
		Extractor:    ai.RegexExtractor{},
		Embedder:     ai.NewHashEmbedder(8),
	}
}

func testStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(StoreParams{CleanupInterval: -1})
	t.Cleanup(s.Close)
	return s
}

func TestSessionConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*SessionConfig)
		wantErr bool
	}{
		{"valid", func(c *SessionConfig) {}, false},
		{"defaults fill zero chunking", func(c *SessionConfig) { c.ChunkSize = 0; c.ChunkOverlap = 0 }, false},
		{"negative chunk size", func(c *SessionConfig) { c.ChunkSize = -1 }, true},
		{"overlap equals chunk size", func(c *SessionConfig) { c.ChunkOverlap = c.ChunkSize }, true},
		{"overlap exceeds chunk size", func(c *SessionConfig) { c.ChunkOverlap = c.ChunkSize + 1 }, true},
		{"negative overlap", func(c *SessionConfig) { c.ChunkOverlap = -1 }, true},
		{"missing extractor", func(c *SessionConfig) { c.Extractor = nil }, true},
		{"missing embedder", func(c *SessionConfig) { c.Embedder = nil }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("got %v, want *ConfigError", err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestGetOrCreate(t *testing.T) {
	s := testStore(t)

	if _, _, err := s.GetOrCreate("", testConfig()); err == nil {
		t.Fatal("empty session id must fail")
	}

	first, created, err := s.GetOrCreate("alpha", testConfig())
	if err != nil || !created {
		t.Fatalf("create failed: created=%v err=%v", created, err)
	}
	second, created, err := s.GetOrCreate("alpha", testConfig())
	if err != nil || created {
		t.Fatalf("second call must return existing: created=%v err=%v", created, err)
	}
	if first != second {
		t.Error("same id must resolve to the same session")
	}

	got, err := s.Get("alpha")
	if err != nil || got != first {
		t.Errorf("Get: %v %v", got, err)
	}
	if _, err := s.Get("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}
	if s.Count() != 1 {
		t.Errorf("got count %d, want 1", s.Count())
	}
}

func commitBatch(t *testing.T, session *Session, unitID, title string) common.IndexStats {
	t.Helper()
	emb := make([]float32, 8)
	emb[0] = 1
	units := []common.TextUnit{
		{ID: unitID, DocumentID: "d1", Index: 0, Content: title + " did things.", Embedding: emb},
	}
	batch := []graph.Extraction{
		{
			UnitID: unitID,
			Entities: []common.ExtractedEntity{
				{Title: title, Type: "PERSON", Description: title + " did things."},
			},
			EntityVectors: [][]float32{emb},
		},
	}
	delta, err := session.Commit(1, units, 0, batch)
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	return delta
}

func TestSessionCommitAccumulatesStats(t *testing.T) {
	s := testStore(t)
	session, _, err := s.GetOrCreate("alpha", testConfig())
	if err != nil {
		t.Fatal(err)
	}

	delta := commitBatch(t, session, "u1", "Ada Lovelace")
	if delta.DocumentsIndexed != 1 || delta.TextUnitsCreated != 1 || delta.EntitiesExtracted != 1 {
		t.Errorf("unexpected delta: %+v", delta)
	}

	commitBatch(t, session, "u2", "Ada Lovelace")
	stats, err := session.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.DocumentsIndexed != 2 || stats.TextUnitsCreated != 2 || stats.EntitiesExtracted != 2 {
		t.Errorf("unexpected cumulative stats: %+v", stats)
	}

	entities, _, err := session.GraphSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	if len(entities) != 1 {
		t.Fatalf("got %d entities, want 1 deduplicated", len(entities))
	}
	if entities[0].Occurrences != 2 {
		t.Errorf("got occurrences %d, want 2", entities[0].Occurrences)
	}
}

func TestSearchEntitiesTieBreaks(t *testing.T) {
	s := testStore(t)
	session, _, err := s.GetOrCreate("alpha", testConfig())
	if err != nil {
		t.Fatal(err)
	}

	vec := make([]float32, 8)
	vec[0] = 1
	batch := []graph.Extraction{
		{
			UnitID: "u1",
			Entities: []common.ExtractedEntity{
				{Title: "Zoe", Type: "PERSON", Description: "z"},
				{Title: "Anna", Type: "PERSON", Description: "a"},
				{Title: "Anna", Type: "PERSON", Description: "a again"},
			},
			EntityVectors: [][]float32{vec, vec, vec},
		},
	}
	if _, err := session.Commit(0, nil, 0, batch); err != nil {
		t.Fatal(err)
	}

	got, err := session.SearchEntities(vec, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	// Equal scores: higher occurrence count first, then title order.
	if got[0].Entity.Title != "Anna" || got[1].Entity.Title != "Zoe" {
		t.Errorf("tie-break order wrong: %q then %q", got[0].Entity.Title, got[1].Entity.Title)
	}
}

func TestSessionCloseDrainsAndRejects(t *testing.T) {
	s := testStore(t)
	session, _, err := s.GetOrCreate("alpha", testConfig())
	if err != nil {
		t.Fatal(err)
	}
	commitBatch(t, session, "u1", "Ada Lovelace")

	if err := s.Delete("alpha"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get("alpha"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound", err)
	}

	if _, err := session.Stats(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Stats after close: got %v, want ErrSessionClosed", err)
	}
	if _, err := session.Commit(0, nil, 0, nil); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Commit after close: got %v, want ErrSessionClosed", err)
	}
	if err := session.Close(); err != nil {
		t.Errorf("second close must be a no-op: %v", err)
	}
}

func TestSessionIdleExpiry(t *testing.T) {
	s := testStore(t)
	cfg := testConfig()
	cfg.IdleTTL = 10 * time.Millisecond

	session, _, err := s.GetOrCreate("alpha", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if session.IsExpired() {
		t.Fatal("fresh session must not be expired")
	}

	time.Sleep(25 * time.Millisecond)
	if !session.IsExpired() {
		t.Fatal("idle session must expire")
	}
	if _, err := s.Get("alpha"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("got %v, want ErrSessionNotFound for expired session", err)
	}

	// Re-creating under the same id starts a fresh session and closes
	// the stale one.
	replacement, created, err := s.GetOrCreate("alpha", cfg)
	if err != nil || !created {
		t.Fatalf("recreate: created=%v err=%v", created, err)
	}
	if replacement == session {
		t.Error("expired session must be replaced")
	}
	if _, err := session.Stats(); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("replaced session: got %v, want ErrSessionClosed", err)
	}
}
