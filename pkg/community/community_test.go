package community

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/graphweave/graphweave/pkg/common"
	"github.com/graphweave/graphweave/pkg/graph"
)

func makeEntities(n int) []common.Entity {
	out := make([]common.Entity, n)
	for i := range out {
		out[i] = common.Entity{
			ID:          uint64(i + 1),
			Title:       string(rune('A' + i)),
			Type:        "PERSON",
			Description: "entity " + string(rune('A'+i)),
		}
	}
	return out
}

func TestDetectEmpty(t *testing.T) {
	d := NewDetector(DefaultConfig())
	if got := d.Detect(nil, nil); got != nil {
		t.Errorf("got %v, want nil for empty graph", got)
	}
}

func TestDetectNoEdgesSingletons(t *testing.T) {
	d := NewDetector(DefaultConfig())
	groups := d.Detect(makeEntities(4), nil)
	if len(groups) != 4 {
		t.Fatalf("got %d groups, want 4 singletons", len(groups))
	}
	for i, g := range groups {
		if len(g) != 1 || g[0] != uint64(i+1) {
			t.Errorf("group %d = %v, want singleton [%d]", i, g, i+1)
		}
	}
}

func TestDetectTwoClusters(t *testing.T) {
	// Two triangles joined by nothing: {1,2,3} and {4,5,6}.
	entities := makeEntities(6)
	edges := []graph.Edge{
		{A: 1, B: 2, Weight: 5}, {A: 2, B: 3, Weight: 5}, {A: 1, B: 3, Weight: 5},
		{A: 4, B: 5, Weight: 5}, {A: 5, B: 6, Weight: 5}, {A: 4, B: 6, Weight: 5},
	}

	d := NewDetector(DefaultConfig())
	groups := d.Detect(entities, edges)

	want := [][]uint64{{1, 2, 3}, {4, 5, 6}}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("got %v, want %v", groups, want)
	}
}

func TestDetectDeterministic(t *testing.T) {
	entities := makeEntities(8)
	edges := []graph.Edge{
		{A: 1, B: 2, Weight: 3}, {A: 2, B: 3, Weight: 3}, {A: 3, B: 4, Weight: 1},
		{A: 4, B: 5, Weight: 3}, {A: 5, B: 6, Weight: 3}, {A: 6, B: 7, Weight: 1},
		{A: 7, B: 8, Weight: 3},
	}

	d := NewDetector(DefaultConfig())
	first := d.Detect(entities, edges)
	for i := 0; i < 5; i++ {
		if got := d.Detect(entities, edges); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs: %v vs %v", i, got, first)
		}
	}
}

func TestDetectIgnoresUnknownEndpoints(t *testing.T) {
	entities := makeEntities(2)
	edges := []graph.Edge{
		{A: 1, B: 99, Weight: 5},
		{A: 1, B: 2, Weight: 5},
	}

	d := NewDetector(DefaultConfig())
	groups := d.Detect(entities, edges)
	want := [][]uint64{{1, 2}}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("got %v, want %v", groups, want)
	}
}

func TestSummarize(t *testing.T) {
	entities := []common.Entity{
		{ID: 1, Title: "Alice", Description: "Leads the team."},
		{ID: 2, Title: "Bob", Description: "Writes the code."},
		{ID: 3, Title: "Carol", Description: ""},
		{ID: 4, Title: "Dave", Description: "Runs the ops."},
	}
	groups := [][]uint64{{1, 2, 3, 4}}

	communities := Summarize(entities, groups)
	if len(communities) != 1 {
		t.Fatalf("got %d communities, want 1", len(communities))
	}
	c := communities[0]
	if c.ID != 1 {
		t.Errorf("got id %d, want renumbering from 1", c.ID)
	}
	if c.Size != 4 {
		t.Errorf("got size %d, want 4", c.Size)
	}
	if c.Title != "Alice, Bob, Carol" {
		t.Errorf("got title %q, want first three member titles", c.Title)
	}
	if !strings.Contains(c.Summary, "4 entities") {
		t.Errorf("summary missing member count: %q", c.Summary)
	}
	if !strings.Contains(c.Summary, "Leads the team.") {
		t.Errorf("summary missing member evidence: %q", c.Summary)
	}
	if len(c.Embedding) != 0 {
		t.Error("embedding must be left for the caller")
	}
}

func TestSummarizeKeepsValidUTF8(t *testing.T) {
	// The leading ASCII byte puts every two-byte rune off the fragment
	// boundary, so a byte-offset cut would split one.
	entities := []common.Entity{
		{ID: 1, Title: "Zürich", Description: "a" + strings.Repeat("ü", 100)},
	}

	communities := Summarize(entities, [][]uint64{{1}})
	if len(communities) != 1 {
		t.Fatalf("got %d communities, want 1", len(communities))
	}
	if !utf8.ValidString(communities[0].Summary) {
		t.Errorf("fragment cut produced invalid UTF-8: %q", communities[0].Summary)
	}
}
