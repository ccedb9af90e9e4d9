// Package ai defines the two pluggable capability contracts the engine
// depends on: extraction of entities and relationships from text, and
// embedding of text into fixed-dimension vectors. Default LLM-backed
// providers live in the openai and ollama subpackages; toy implementations
// for tests and demos live here.
package ai

import (
	"context"

	"github.com/graphweave/graphweave/pkg/common"
)

// Extractor turns a piece of text into entity and relationship candidates.
// Extract is a pure function of its input and must be safe to call
// concurrently. Failures are isolated per text unit by the caller.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]common.ExtractedEntity, []common.ExtractedRelationship, error)
}

// Embedder turns a batch of texts into one vector per text, same order,
// with a fixed dimensionality per instance. Identical text through the
// same instance may be cached. A dimensionality change across calls is a
// contract violation and is not retried.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// EmbedSingle embeds one text via a one-element batch.
func EmbedSingle(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, &EmbeddingError{Reason: "embedder returned wrong batch size", Err: nil}
	}
	return vecs[0], nil
}
