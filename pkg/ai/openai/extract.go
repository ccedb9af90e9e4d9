package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/graphweave/graphweave/pkg/ai"
	"github.com/graphweave/graphweave/pkg/common"

	"github.com/openai/openai-go/v3"
)

// Extract asks the extraction model for entities and relationships in
// text, constrained by a JSON schema. Empty input yields empty results
// without a network call.
func (c *Client) Extract(
	ctx context.Context,
	text string,
) ([]common.ExtractedEntity, []common.ExtractedRelationship, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, nil
	}

	types := strings.Join(c.entityTypes, ", ")
	prompt := fmt.Sprintf(ai.ExtractPrompt, types, types, types, text)

	schema := ai.GenerateSchema(ai.ExtractionResponse{})
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "extraction",
		Description: openai.String("Entities and relationships extracted from a text unit"),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	body := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.extractionModel),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.1),
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, nil, err
	}
	defer c.reqLock.Release(1)

	response, err := c.api.Chat.Completions.New(rCtx, body)
	if err != nil {
		return nil, nil, &ai.ExtractionError{Reason: "chat completion request failed", Err: err}
	}
	if len(response.Choices) == 0 {
		return nil, nil, &ai.ExtractionError{Reason: "no choices in model response"}
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return nil, nil, &ai.ExtractionError{
			Reason: fmt.Sprintf("empty model response (finish_reason: %s)", response.Choices[0].FinishReason),
		}
	}

	var out ai.ExtractionResponse
	if err := ai.UnmarshalFlexible(message, &out); err != nil {
		return nil, nil, &ai.ExtractionError{Reason: "malformed model output", Err: err}
	}

	entities, relationships := out.ToCandidates()
	return entities, relationships, nil
}
