package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphweave/graphweave/pkg/ai"

	"github.com/openai/openai-go/v3"
)

// Embed generates one vector per input text, preserving order. Blank
// inputs map to zero vectors without being sent to the API. Vectors are
// truncated or zero-padded to the configured dimensionality so callers
// always see a consistent size.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	idxMap := make([]int, 0, len(texts))
	inputs := make([]string, 0, len(texts))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			out[i] = make([]float32, c.dimensions)
			continue
		}
		idxMap = append(idxMap, i)
		inputs = append(inputs, t)
	}
	if len(inputs) == 0 {
		return out, nil
	}

	body := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model: openai.EmbeddingModel(c.embeddingModel),
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	response, err := c.api.Embeddings.New(rCtx, body)
	if err != nil {
		return nil, &ai.EmbeddingError{Reason: "embeddings request failed", Err: err}
	}
	if len(response.Data) != len(inputs) {
		return nil, &ai.EmbeddingError{
			Reason: fmt.Sprintf("response size mismatch: got %d want %d", len(response.Data), len(inputs)),
		}
	}

	for _, embedding := range response.Data {
		dataIdx := int(embedding.Index)
		if dataIdx < 0 || dataIdx >= len(inputs) {
			return nil, &ai.EmbeddingError{
				Reason: fmt.Sprintf("embedding index out of range: %d", embedding.Index),
			}
		}
		vec := make([]float32, 0, c.dimensions)
		for _, v := range embedding.Embedding {
			if len(vec) >= c.dimensions {
				break
			}
			vec = append(vec, float32(v))
		}
		if len(vec) < c.dimensions {
			padded := make([]float32, c.dimensions)
			copy(padded, vec)
			vec = padded
		}
		out[idxMap[dataIdx]] = vec
	}

	return out, nil
}
