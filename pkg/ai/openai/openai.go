// Package openai provides the default hosted-API extractor and embedder.
// It talks to the OpenAI chat-completions and embeddings endpoints, or
// any compatible server via a custom base URL.
package openai

import (
	"fmt"
	"time"

	"github.com/graphweave/graphweave/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/sync/semaphore"
)

const (
	defaultExtractionModel = "gpt-4o-mini"
	defaultEmbeddingModel  = "text-embedding-3-small"
	defaultDimensions      = 1536
	defaultTimeout         = 2 * time.Minute
	defaultMaxConcurrent   = 8
)

// Client implements ai.Extractor and ai.Embedder against an
// OpenAI-compatible API. Create one with New.
type Client struct {
	extractionModel string
	embeddingModel  string
	dimensions      int
	entityTypes     []string
	timeout         time.Duration

	reqLock *semaphore.Weighted

	api *openai.Client
}

// Params configures a new Client. APIKey is required. Zero values for
// the remaining fields select the defaults above.
type Params struct {
	BaseURL string
	APIKey  string

	ExtractionModel string
	EmbeddingModel  string

	// Dimensions is the vector size reported by Dimensions() and
	// enforced on every embedding response.
	Dimensions int

	// EntityTypes seeds the extraction prompt. Defaults to
	// ai.DefaultEntityTypes.
	EntityTypes []string

	Timeout               time.Duration
	MaxConcurrentRequests int64
}

// New creates a Client from params. It fails with
// ai.ErrMissingCredentials when no API key is provided; no network
// traffic happens until the first call.
func New(params Params) (*Client, error) {
	if params.APIKey == "" {
		return nil, fmt.Errorf("openai: %w", ai.ErrMissingCredentials)
	}

	options := []option.RequestOption{
		option.WithAPIKey(params.APIKey),
	}
	if params.BaseURL != "" {
		options = append(options, option.WithBaseURL(params.BaseURL))
	}
	apiClient := openai.NewClient(options...)

	c := &Client{
		extractionModel: params.ExtractionModel,
		embeddingModel:  params.EmbeddingModel,
		dimensions:      params.Dimensions,
		entityTypes:     params.EntityTypes,
		timeout:         params.Timeout,
		api:             &apiClient,
	}
	if c.extractionModel == "" {
		c.extractionModel = defaultExtractionModel
	}
	if c.embeddingModel == "" {
		c.embeddingModel = defaultEmbeddingModel
	}
	if c.dimensions <= 0 {
		c.dimensions = defaultDimensions
	}
	if len(c.entityTypes) == 0 {
		c.entityTypes = ai.DefaultEntityTypes
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}
	c.reqLock = semaphore.NewWeighted(maxConcurrent)

	return c, nil
}

// Dimensions returns the configured embedding vector size.
func (c *Client) Dimensions() int {
	return c.dimensions
}
