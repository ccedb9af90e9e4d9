package ai

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"regexp"

	"github.com/graphweave/graphweave/pkg/common"
)

var (
	rePerson = regexp.MustCompile(`\b([A-Z][a-z]+ [A-Z][a-z]+)\b`)
	reYear   = regexp.MustCompile(`\b(1[0-9]{3}|20[0-9]{2})\b`)
)

// RegexExtractor is a toy Extractor that finds capitalized two-word names
// and four-digit years and links every name to every year it co-occurs
// with. It exists for tests and demos; production use should go through
// an LLM-backed provider.
type RegexExtractor struct{}

// Extract implements the Extractor contract.
func (RegexExtractor) Extract(ctx context.Context, text string) ([]common.ExtractedEntity, []common.ExtractedRelationship, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	persons := uniqueMatches(rePerson, text)
	years := uniqueMatches(reYear, text)

	entities := make([]common.ExtractedEntity, 0, len(persons)+len(years))
	for _, p := range persons {
		entities = append(entities, common.ExtractedEntity{
			Title:       p,
			Type:        "PERSON",
			Description: fmt.Sprintf("Person mentioned: %s", p),
			Weight:      1.0,
		})
	}
	for _, y := range years {
		entities = append(entities, common.ExtractedEntity{
			Title:       y,
			Type:        "YEAR",
			Description: fmt.Sprintf("Year mentioned: %s", y),
			Weight:      1.0,
		})
	}

	var relationships []common.ExtractedRelationship
	for _, p := range persons {
		for _, y := range years {
			relationships = append(relationships, common.ExtractedRelationship{
				SourceTitle: p,
				TargetTitle: y,
				Type:        "MENTIONED_IN",
				Description: fmt.Sprintf("%s mentioned in context of %s", p, y),
				Weight:      0.5,
			})
		}
	}

	return entities, relationships, nil
}

func uniqueMatches(re *regexp.Regexp, text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range re.FindAllString(text, -1) {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// HashEmbedder is a toy Embedder deriving deterministic vectors from a
// sha256 hash of the text. Identical text always yields the identical
// vector; there is no semantic signal.
type HashEmbedder struct {
	Dims int
}

// NewHashEmbedder creates a HashEmbedder with the given dimensionality
// (default 64 for a non-positive value).
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = 64
	}
	return &HashEmbedder{Dims: dims}
}

// Dimensions implements the Embedder contract.
func (h *HashEmbedder) Dimensions() int {
	return h.Dims
}

// Embed implements the Embedder contract.
func (h *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = h.embedOne(text)
	}
	return out, nil
}

func (h *HashEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, h.Dims)
	var block [8]byte
	for i := 0; i < h.Dims; i += 8 {
		binary.BigEndian.PutUint64(block[:], uint64(i))
		sum := sha256.Sum256(append([]byte(text), block[:]...))
		for j := 0; j < 8 && i+j < h.Dims; j++ {
			word := binary.BigEndian.Uint32(sum[j*4 : j*4+4])
			// Map to [-1, 1).
			vec[i+j] = float32(int64(word)-1<<31) / float32(1<<31)
		}
	}
	return vec
}
