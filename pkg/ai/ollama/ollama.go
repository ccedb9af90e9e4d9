// Package ollama provides an extractor and embedder backed by a local
// or remote Ollama server. It mirrors the openai package contracts so
// the two are interchangeable.
package ollama

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/graphweave/graphweave/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

const (
	defaultBaseURL         = "http://localhost:11434"
	defaultExtractionModel = "llama3.1"
	defaultEmbeddingModel  = "nomic-embed-text"
	defaultDimensions      = 768
	defaultTimeout         = 5 * time.Minute
	defaultMaxConcurrent   = 2
)

// Client implements ai.Extractor and ai.Embedder against an Ollama
// server. Create one with New.
type Client struct {
	extractionModel string
	embeddingModel  string
	dimensions      int
	entityTypes     []string
	timeout         time.Duration

	reqLock *semaphore.Weighted

	api *api.Client
}

// Params configures a new Client. All fields are optional; zero values
// select the defaults above and the standard local server address.
type Params struct {
	BaseURL string
	APIKey  string

	ExtractionModel string
	EmbeddingModel  string

	Dimensions  int
	EntityTypes []string

	Timeout               time.Duration
	MaxConcurrentRequests int64
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// New creates a Client from params. An invalid base URL is a
// construction error; server reachability is only checked on first use.
func New(params Params) (*Client, error) {
	base := params.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base url %q: %w", base, err)
	}

	httpClient := http.DefaultClient
	if params.APIKey != "" {
		httpClient = &http.Client{
			Transport: &headerTransport{
				headers: map[string]string{
					"Authorization": "Bearer " + params.APIKey,
				},
				rt: http.DefaultTransport,
			},
		}
	}

	c := &Client{
		extractionModel: params.ExtractionModel,
		embeddingModel:  params.EmbeddingModel,
		dimensions:      params.Dimensions,
		entityTypes:     params.EntityTypes,
		timeout:         params.Timeout,
		api:             api.NewClient(u, httpClient),
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
