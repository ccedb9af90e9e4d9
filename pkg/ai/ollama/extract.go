package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/common"

	"github.com/ollama/ollama/api"
)

// Extract asks the extraction model for entities and relationships in
// text. The response format is constrained by a JSON schema; malformed
// output is repaired before parsing.
func (c *Client) Extract(
	ctx context.Context,
	text string,
) ([]common.ExtractedEntity, []common.ExtractedRelationship, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, nil
	}

	types := strings.Join(c.entityTypes, ", ")
	prompt := fmt.Sprintf(ai.ExtractPrompt, types, types, types, text)

	schemaObj := ai.GenerateSchema(ai.ExtractionResponse{})
	formatBytes, err := json.Marshal(schemaObj)
	if err != nil {
		return nil, nil, &ai.ExtractionError{Reason: "schema marshal failed", Err: err}
	}

	stream := false
	req := &api.ChatRequest{
		Model: c.extractionModel,
		Messages: []api.Message{
			{Role: "user", Content: prompt},
		},
		Stream:  &stream,
		Format:  json.RawMessage(formatBytes),
		Options: map[string]any{"temperature": 0.1},
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, nil, err
	}
	defer c.reqLock.Release(1)

	var final api.ChatResponse
	if err := c.api.Chat(rCtx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
		}
		return nil
	}); err != nil {
		return nil, nil, &ai.ExtractionError{Reason: "chat request failed", Err: err}
	}
	if final.Message.Content == "" {
		return nil, nil, &ai.ExtractionError{Reason: "empty model response"}
	}

	var out ai.ExtractionResponse
	if err := ai.UnmarshalFlexible(final.Message.Content, &out); err != nil {
		return nil, nil, &ai.ExtractionError{Reason: "malformed model output", Err: err}
	}

	entities, relationships := out.ToCandidates()
	return entities, relationships, nil
}
