// Package client is a thin HTTP client for a running engine instance.
// It distinguishes failures to reach the server at all from failures
// mid-request, so callers can decide what is safe to retry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/graphweave/graphweave/pkg/common"
)

var (
	// ErrConnectionFailed means the server could not be reached; the
	// request never started and is always safe to retry.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrRequestFailed means the request failed after the connection
	// was established.
	ErrRequestFailed = errors.New("request failed")
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

const defaultTimeout = 5 * time.Minute

// Client talks to one engine instance.
type Client struct {
	baseURL string
	http    *http.Client
}

// Params configures a Client. BaseURL is required.
type Params struct {
	BaseURL string
	Timeout time.Duration
}

func New(params Params) (*Client, error) {
	if params.BaseURL == "" {
		return nil, errors.New("client: base url is required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: params.BaseURL,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// IndexRequest is the payload for IndexDocuments.
type IndexRequest struct {
	Documents             []common.Document `json:"documents"`
	BatchSize             int               `json:"batch_size,omitempty"`
	ChunkSize             int               `json:"chunk_size,omitempty"`
	ChunkOverlap          int               `json:"chunk_overlap,omitempty"`
	AutoDetectCommunities *bool             `json:"auto_detect_communities,omitempty"`
}

// QueryRequest is the payload for Query. Nil booleans leave the server
// defaults in place.
type QueryRequest struct {
	Query              string `json:"query"`
	TopK               *int   `json:"top_k,omitempty"`
	IncludeEntities    *bool  `json:"include_entities,omitempty"`
	IncludeTextUnits   *bool  `json:"include_text_units,omitempty"`
	IncludeCommunities *bool  `json:"include_communities,omitempty"`
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// IndexDocuments submits documents for indexing into sessionID.
func (c *Client) IndexDocuments(ctx context.Context, sessionID string, req IndexRequest) (common.IndexStats, error) {
	var stats common.IndexStats
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/index", req, &stats)
	return stats, err
}

// Query resolves a query against sessionID.
func (c *Client) Query(ctx context.Context, sessionID string, req QueryRequest) (common.QueryResult, error) {
	var result common.QueryResult
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/query", req, &result)
	return result, err
}

// DetectCommunities triggers an explicit detection pass.
func (c *Client) DetectCommunities(ctx context.Context, sessionID string) (int, error) {
	var resp struct {
		CommunitiesDetected int `json:"communities_detected"`
	}
	err := c.do(ctx, http.MethodPost, "/api/sessions/"+sessionID+"/communities", nil, &resp)
	return resp.CommunitiesDetected, err
}

// Sessions lists live session ids.
func (c *Client) Sessions(ctx context.Context) ([]string, error) {
	var resp struct {
		Sessions []string `json:"sessions"`
	}
	err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &resp)
	return resp.Sessions, err
}

// SessionStats fetches the accumulated statistics for sessionID.
func (c *Client) SessionStats(ctx context.Context, sessionID string) (common.IndexStats, error) {
	var stats common.IndexStats
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+sessionID+"/stats", nil, &stats)
	return stats, err
}

// CloseSession flushes and releases sessionID on the server.
func (c *Client) CloseSession(ctx context.Context, sessionID string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+sessionID, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%w: encode body: %v", ErrRequestFailed, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", ErrRequestFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiResp struct {
			Error string `json:"error"`
		}
		message := string(data)
		if json.Unmarshal(data, &apiResp) == nil && apiResp.Error != "" {
			message = apiResp.Error
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrRequestFailed, err)
	}
	return nil
}

// classify separates dial failures, where the server was never reached,
// from failures after the connection was up.
func classify(err error) error {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return fmt.Errorf("%w: %v", ErrRequestFailed, err)
}
