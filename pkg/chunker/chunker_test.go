package chunker

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

// wordCounter counts whitespace-separated words so tests do not depend on
// a tokenizer download.
type wordCounter struct{}

func (wordCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func TestSplitIntoSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: []string(nil),
		},
		{
			name: "single sentence",
			text: "Hello world.",
			want: []string{"Hello world."},
		},
		{
			name: "multiple sentences",
			text: "Hello world. This is a test! How are you?",
			want: []string{
				"Hello world.",
				"This is a test!",
				"How are you?",
			},
		},
		{
			name: "sentences with empty lines",
			text: "First sentence.\n\nSecond sentence.\n\nThird sentence.",
			want: []string{
				"First sentence.",
				"Second sentence.",
				"Third sentence.",
			},
		},
		{
			name: "multi-line sentence",
			text: "This is a long\nsentence that spans\nmultiple lines.",
			want: []string{"This is a long sentence that spans multiple lines."},
		},
		{
			name: "text with no punctuation",
			text: "Just some text without punctuation\nMore text here",
			want: []string{"Just some text without punctuation More text here"},
		},
		{
			name: "numeric listing stays in one sentence",
			text: "Today we discuss three points. 1. First item 2. Second item 3. Third item. Done!",
			want: []string{
				"Today we discuss three points.",
				"1. First item 2. Second item 3. Third item.",
				"Done!",
			},
		},
		{
			name: "closing quote after period",
			text: `He said "stop." Then he left.`,
			want: []string{
				`He said "stop."`,
				"Then he left.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitIntoSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitIntoSentences() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
		wantErr error
	}{
		{name: "valid", size: 100, overlap: 20, wantErr: nil},
		{name: "zero overlap", size: 100, overlap: 0, wantErr: nil},
		{name: "zero size", size: 0, overlap: 0, wantErr: ErrChunkSizeInvalid},
		{name: "negative size", size: -1, overlap: 0, wantErr: ErrChunkSizeInvalid},
		{name: "overlap equals size", size: 50, overlap: 50, wantErr: ErrOverlapTooLarge},
		{name: "overlap above size", size: 50, overlap: 80, wantErr: ErrOverlapTooLarge},
		{name: "negative overlap", size: 50, overlap: -1, wantErr: ErrOverlapTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(Params{ChunkSize: tt.size, ChunkOverlap: tt.overlap, Counter: wordCounter{}})
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("New() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSplitBounds(t *testing.T) {
	c, err := New(Params{ChunkSize: 10, ChunkOverlap: 3, Counter: wordCounter{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text := "One two three four five. Six seven eight nine ten. " +
		"Eleven twelve thirteen. Fourteen fifteen sixteen seventeen. Eighteen nineteen twenty."
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Split produced %d chunks, want at least 2", len(chunks))
	}

	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		if ch.TokenCount > 10 {
			t.Errorf("chunk %d has %d tokens, budget is 10: %q", i, ch.TokenCount, ch.Content)
		}
		if strings.TrimSpace(ch.Content) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}

func TestSplitCoversDocument(t *testing.T) {
	c, err := New(Params{ChunkSize: 8, ChunkOverlap: 2, Counter: wordCounter{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text := "Alpha beta gamma delta. Epsilon zeta eta theta. Iota kappa lambda mu. Nu xi omicron pi."
	chunks := c.Split(text)

	// Every sentence must appear in at least one chunk.
	for _, sentence := range splitIntoSentences(text) {
		found := false
		for _, ch := range chunks {
			if strings.Contains(ch.Content, sentence) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("sentence %q missing from all chunks", sentence)
		}
	}
}

func TestSplitOverlap(t *testing.T) {
	c, err := New(Params{ChunkSize: 8, ChunkOverlap: 4, Counter: wordCounter{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text := "Alpha beta gamma. Delta epsilon zeta. Eta theta iota. Kappa lambda mu."
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("Split produced %d chunks, want at least 2", len(chunks))
	}

	// Consecutive chunks share their boundary sentence.
	for i := 1; i < len(chunks); i++ {
		prev := splitIntoSentences(chunks[i-1].Content)
		cur := splitIntoSentences(chunks[i].Content)
		if len(prev) == 0 || len(cur) == 0 {
			continue
		}
		if prev[len(prev)-1] != cur[0] {
			t.Errorf("chunk %d does not start with tail of chunk %d: %q vs %q",
				i, i-1, cur[0], prev[len(prev)-1])
		}
	}
}

func TestSplitOversizedSentence(t *testing.T) {
	c, err := New(Params{ChunkSize: 5, ChunkOverlap: 0, Counter: wordCounter{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text := "one two three four five six seven eight nine ten eleven twelve"
	chunks := c.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("oversized sentence not hard-cut, got %d chunks", len(chunks))
	}
	for i, ch := range chunks {
		if ch.TokenCount > 5 {
			t.Errorf("chunk %d has %d tokens after hard cut", i, ch.TokenCount)
		}
	}

	joined := strings.Join(strings.Fields(text), " ")
	var rebuilt []string
	for _, ch := range chunks {
		rebuilt = append(rebuilt, ch.Content)
	}
	if strings.Join(rebuilt, " ") != joined {
		t.Errorf("hard cut lost words: %q", strings.Join(rebuilt, " "))
	}
}

func TestSplitEmptyAndBlank(t *testing.T) {
	c, err := New(Params{ChunkSize: 10, ChunkOverlap: 2, Counter: wordCounter{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if got := c.Split(""); got != nil {
		t.Errorf("Split(\"\") = %v, want nil", got)
	}
	if got := c.Split("   \n\n  "); got != nil {
		t.Errorf("Split(blank) = %v, want nil", got)
	}
	if got := c.Split("word"); len(got) != 1 {
		t.Errorf("Split(single word) = %d chunks, want 1", len(got))
	}
}

func TestSplitRestartable(t *testing.T) {
	c, err := New(Params{ChunkSize: 8, ChunkOverlap: 2, Counter: wordCounter{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text := "Alpha beta gamma delta. Epsilon zeta eta theta. Iota kappa lambda mu."
	first := c.Split(text)
	second := c.Split(text)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Split is not deterministic across calls")
	}
}
