// Package chunker splits raw document text into token-bounded, overlapping
// chunks. Boundaries prefer sentence breaks; a single sentence above the
// budget is hard-cut by words.
package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

var (
	// ErrChunkSizeInvalid is returned for a non-positive chunk size.
	ErrChunkSizeInvalid = errors.New("chunk size must be positive")

	// ErrOverlapTooLarge is returned when the overlap is not strictly
	// smaller than the chunk size.
	ErrOverlapTooLarge = errors.New("chunk overlap must be smaller than chunk size")
)

// TokenCounter measures text length in the same unit as the chunk budget.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts tokens with a tiktoken encoding.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter creates a counter for the given encoding name,
// e.g. "cl100k_base".
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load token encoding %q: %w", encoding, err)
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count returns the number of tokens in text.
func (c *TiktokenCounter) Count(text string) int {
	return len(c.enc.Encode(text, nil, nil))
}

// Chunk is one bounded slice of a document. Index is the sequence position
// within the document.
type Chunk struct {
	Index      int
	Content    string
	TokenCount int
}

// Chunker produces chunks of at most ChunkSize tokens where each chunk
// starts with roughly ChunkOverlap tokens of its predecessor's tail.
type Chunker struct {
	chunkSize int
	overlap   int
	counter   TokenCounter
}

// Params configures a Chunker.
type Params struct {
	ChunkSize    int
	ChunkOverlap int
	Counter      TokenCounter
}

// New validates the parameters and creates a Chunker. The overlap must be
// strictly smaller than the chunk size.
func New(params Params) (*Chunker, error) {
	if params.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrChunkSizeInvalid, params.ChunkSize)
	}
	if params.ChunkOverlap < 0 || params.ChunkOverlap >= params.ChunkSize {
		return nil, fmt.Errorf("%w: overlap %d, chunk size %d", ErrOverlapTooLarge, params.ChunkOverlap, params.ChunkSize)
	}
	if params.Counter == nil {
		return nil, errors.New("token counter is required")
	}
	return &Chunker{
		chunkSize: params.ChunkSize,
		overlap:   params.ChunkOverlap,
		counter:   params.Counter,
	}, nil
}

type piece struct {
	text   string
	tokens int
}

// Split chunks the document text. The result covers the whole document in
// order with no gaps; non-blank text yields at least one chunk. Split is a
// pure function of its input and can be called repeatedly.
func (c *Chunker) Split(text string) []Chunk {
	sentences := splitIntoSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	// Pre-measure, cutting sentences that alone exceed the budget.
	pieces := make([]piece, 0, len(sentences))
	for _, s := range sentences {
		n := c.counter.Count(s)
		if n <= c.chunkSize {
			pieces = append(pieces, piece{text: s, tokens: n})
			continue
		}
		for _, part := range c.hardCut(s) {
			pieces = append(pieces, piece{text: part, tokens: c.counter.Count(part)})
		}
	}

	var chunks []Chunk
	var current []piece
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		parts := make([]string, len(current))
		for i, p := range current {
			parts[i] = p.text
		}
		content := strings.TrimSpace(strings.Join(parts, " "))
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Content:    content,
			TokenCount: currentTokens,
		})
	}

	for _, p := range pieces {
		if currentTokens+p.tokens > c.chunkSize && len(current) > 0 {
			flush()

			// Carry the tail of the finished chunk as overlap, leaving
			// room for the sentence that triggered the flush.
			tail, tailTokens := overlapTail(current, c.overlap, c.chunkSize-p.tokens)
			current = tail
			currentTokens = tailTokens
		}
		current = append(current, p)
		currentTokens += p.tokens
	}
	flush()

	return chunks
}

// overlapTail picks trailing pieces worth at most `overlap` tokens, further
// bounded by `room` so the next sentence still fits the chunk budget.
func overlapTail(current []piece, overlap, room int) ([]piece, int) {
	budget := overlap
	if room < budget {
		budget = room
	}
	if budget <= 0 {
		return nil, 0
	}

	start := len(current)
	tailTokens := 0
	for i := len(current) - 1; i >= 0; i-- {
		if tailTokens+current[i].tokens > budget {
			break
		}
		tailTokens += current[i].tokens
		start = i
	}

	tail := make([]piece, len(current)-start)
	copy(tail, current[start:])
	return tail, tailTokens
}

// hardCut splits an oversized sentence into word runs under the budget.
func (c *Chunker) hardCut(sentence string) []string {
	words := strings.Fields(sentence)
	if len(words) == 0 {
		return nil
	}

	var parts []string
	var current []string
	currentTokens := 0

	for _, w := range words {
		n := c.counter.Count(w)
		if currentTokens+n > c.chunkSize && len(current) > 0 {
			parts = append(parts, strings.Join(current, " "))
			current = nil
			currentTokens = 0
		}
		current = append(current, w)
		currentTokens += n
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, " "))
	}
	return parts
}
