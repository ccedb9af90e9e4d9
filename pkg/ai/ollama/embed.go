package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphweave/graphweave/pkg/ai"

	"github.com/ollama/ollama/api"
)

// Embed generates one vector per input text, preserving order. Blank
// inputs map to zero vectors without being sent to the server. Vectors
// are truncated or zero-padded to the configured dimensionality.
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

	req := &api.EmbedRequest{
		Model: c.embeddingModel,
		Input: inputs,
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	res, err := c.api.Embed(rCtx, req)
	if err != nil {
		return nil, &ai.EmbeddingError{Reason: "embed request failed", Err: err}
	}
	if len(res.Embeddings) != len(inputs) {
		return nil, &ai.EmbeddingError{
			Reason: fmt.Sprintf("response size mismatch: got %d want %d", len(res.Embeddings), len(inputs)),
		}
	}

	for i, raw := range res.Embeddings {
		vec := make([]float32, 0, c.dimensions)
		for _, v := range raw {
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
		out[idxMap[i]] = vec
	}

	return out, nil
}
