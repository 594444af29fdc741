// Package azure is a minimal REST client for Azure AI Search implementing
// store.Service. Each book index carries an HNSW and an exhaustive kNN
// vector profile plus a semantic configuration named "default".
package azure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Yates-Labs/folio/internal/apperror"
	"github.com/Yates-Labs/folio/internal/rag/store"
)

const (
	// DefaultAPIVersion is the REST API version requests are pinned to.
	DefaultAPIVersion = "2024-07-01"

	hnswProfile       = "myHnswProfile"
	exhaustiveProfile = "myExhaustiveKnnProfile"
	semanticConfig    = "default"

	// uploadBatchSize keeps each indexing request well under the 16 MB cap
	// with 3072-wide vectors.
	uploadBatchSize = 100
)

var selectFields = strings.Join([]string{
	store.FieldID, store.FieldOrdinal, store.FieldContent,
	store.FieldTitle, store.FieldFilepath, store.FieldURL,
}, ",")

// Config holds the service endpoint and credentials.
type Config struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Timeout    time.Duration
}

// Client implements store.Service over the Azure AI Search REST API.
type Client struct {
	endpoint   string
	apiKey     string
	apiVersion string
	http       *http.Client
}

var _ store.Service = (*Client)(nil)

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, apperror.Validationf("azure search endpoint is required (AZURE_SEARCH_ENDPOINT)")
	}
	if cfg.APIKey == "" {
		return nil, apperror.Validationf("azure search api key is required (AZURE_SEARCH_KEY)")
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		apiVersion: cfg.APIVersion,
		http:       &http.Client{Timeout: timeout},
	}, nil
}

// CreateIndex creates the index schema for def.
func (c *Client) CreateIndex(ctx context.Context, def store.IndexDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	status, body, err := c.do(ctx, http.MethodPost, "/indexes", nil, buildIndexSchema(def))
	if err != nil {
		return store.Upstream(store.ErrIndexFailed, err)
	}
	switch {
	case status == http.StatusConflict:
		return store.Upstream(store.ErrIndexExists, errors.New(def.Name))
	case status >= 300:
		return store.Upstream(store.ErrIndexFailed, apiError(status, body))
	}
	return nil
}

// DeleteIndex drops the named index.
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	status, body, err := c.do(ctx, http.MethodDelete, "/indexes/"+url.PathEscape(name), nil, nil)
	if err != nil {
		return store.Upstream(store.ErrIndexFailed, err)
	}
	switch {
	case status == http.StatusNotFound:
		return store.NotFound(name)
	case status >= 300:
		return store.Upstream(store.ErrIndexFailed, apiError(status, body))
	}
	return nil
}

// ListIndexes returns every index name on the service.
func (c *Client) ListIndexes(ctx context.Context) ([]string, error) {
	status, body, err := c.do(ctx, http.MethodGet, "/indexes", url.Values{"$select": {"name"}}, nil)
	if err != nil {
		return nil, store.Upstream(store.ErrIndexFailed, err)
	}
	if status >= 300 {
		return nil, store.Upstream(store.ErrIndexFailed, apiError(status, body))
	}

	var resp struct {
		Value []struct {
			Name string `json:"name"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, store.Upstream(store.ErrIndexFailed, err)
	}

	names := make([]string, len(resp.Value))
	for i, v := range resp.Value {
		names[i] = v.Name
	}
	return names, nil
}

// Upload sends docs in batches. Any rejected document fails the call.
func (c *Client) Upload(ctx context.Context, index string, docs []store.Document) error {
	if err := store.ValidateDocuments(docs, 0); err != nil {
		return err
	}

	path := "/indexes/" + url.PathEscape(index) + "/docs/index"
	for start := 0; start < len(docs); start += uploadBatchSize {
		end := min(start+uploadBatchSize, len(docs))

		actions := make([]uploadAction, 0, end-start)
		for _, d := range docs[start:end] {
			actions = append(actions, uploadAction{Action: "upload", Document: d})
		}

		status, body, err := c.do(ctx, http.MethodPost, path, nil, map[string]any{"value": actions})
		if err != nil {
			return store.Upstream(store.ErrUploadFailed, err)
		}
		if status == http.StatusNotFound {
			return store.NotFound(index)
		}
		if status >= 300 && status != http.StatusMultiStatus {
			return store.Upstream(store.ErrUploadFailed, apiError(status, body))
		}

		var resp struct {
			Value []struct {
				Key          string `json:"key"`
				Status       bool   `json:"status"`
				ErrorMessage string `json:"errorMessage"`
			} `json:"value"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return store.Upstream(store.ErrUploadFailed, err)
		}
		for _, r := range resp.Value {
			if !r.Status {
				return store.Upstream(store.ErrUploadFailed, fmt.Errorf("document %s: %s", r.Key, r.ErrorMessage))
			}
		}
	}
	return nil
}

// Search runs q against the named index.
func (c *Client) Search(ctx context.Context, index string, q store.Query) ([]store.Hit, error) {
	if q.Top <= 0 {
		return []store.Hit{}, nil
	}

	status, body, err := c.do(ctx, http.MethodPost, "/indexes/"+url.PathEscape(index)+"/docs/search", nil, buildSearchRequest(q))
	if err != nil {
		return nil, store.Upstream(store.ErrSearchFailed, err)
	}
	if status == http.StatusNotFound {
		return nil, store.NotFound(index)
	}
	if status >= 300 {
		return nil, store.Upstream(store.ErrSearchFailed, apiError(status, body))
	}

	var resp struct {
		Value []searchResult `json:"value"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, store.Upstream(store.ErrSearchFailed, err)
	}

	hits := make([]store.Hit, len(resp.Value))
	for i, r := range resp.Value {
		hits[i] = store.Hit{Document: r.Document, Score: r.Score}
		if r.RerankerScore != nil {
			hits[i].RerankerScore = *r.RerankerScore
		}
	}
	return hits, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (int, []byte, error) {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.apiVersion)

	var reader io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path+"?"+query.Encode(), reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("api-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}
	return resp.StatusCode, body, nil
}

func apiError(status int, body []byte) error {
	var e struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error.Message != "" {
		return fmt.Errorf("status %d: %s", status, e.Error.Message)
	}
	return fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(body)))
}
