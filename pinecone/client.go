// Package pinecone is a minimal REST client for the Pinecone control and
// data planes, covering only the operations the indexing pipeline needs:
// list/create/describe index, upsert, query, delete-by-filter, delete-all.
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultControlURL = "https://api.pinecone.io"

// Client talks to the Pinecone control plane (index lifecycle).
type Client struct {
	apiKey     string
	controlURL string
	http       *http.Client
}

// NewClient returns a control-plane client for the given API key.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		controlURL: defaultControlURL,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// NewClientWithURL is used by tests to point the client at a local server.
func NewClientWithURL(apiKey, controlURL string) *Client {
	c := NewClient(apiKey)
	c.controlURL = strings.TrimRight(controlURL, "/")
	return c
}

// IndexStatus is the subset of the describe-index response we act on.
type IndexStatus struct {
	Name  string
	Host  string
	Ready bool
}

// ListIndexes returns the names of all indexes in the project.
func (c *Client) ListIndexes(ctx context.Context) ([]string, error) {
	var resp struct {
		Indexes []struct {
			Name string `json:"name"`
		} `json:"indexes"`
	}
	if err := c.do(ctx, http.MethodGet, c.controlURL+"/indexes", nil, &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Indexes))
	for _, ix := range resp.Indexes {
		names = append(names, ix.Name)
	}
	return names, nil
}

// CreateIndex creates a serverless cosine index with the given dimension.
func (c *Client) CreateIndex(ctx context.Context, name string, dimension int) error {
	body := map[string]any{
		"name":      name,
		"dimension": dimension,
		"metric":    "cosine",
		"spec": map[string]any{
			"serverless": map[string]any{"cloud": "aws", "region": "us-east-1"},
		},
	}
	return c.do(ctx, http.MethodPost, c.controlURL+"/indexes", body, nil)
}

// DescribeIndex reports readiness and the data-plane host of an index.
func (c *Client) DescribeIndex(ctx context.Context, name string) (*IndexStatus, error) {
	var resp struct {
		Name   string `json:"name"`
		Host   string `json:"host"`
		Status struct {
			Ready bool `json:"ready"`
		} `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, c.controlURL+"/indexes/"+name, nil, &resp); err != nil {
		return nil, err
	}
	return &IndexStatus{Name: resp.Name, Host: resp.Host, Ready: resp.Status.Ready}, nil
}

// Index returns a data-plane handle for the host reported by DescribeIndex.
func (c *Client) Index(host string) *Index {
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return &Index{apiKey: c.apiKey, baseURL: strings.TrimRight(host, "/"), http: c.http}
}

// Vector is one embedded chunk with its metadata payload.
type Vector struct {
	ID       string         `json:"id"`
	Values   []float32      `json:"values"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Match is one query hit.
type Match struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Index is a data-plane handle bound to one index host.
type Index struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// Upsert writes vectors, overwriting any existing vector with the same id.
func (i *Index) Upsert(ctx context.Context, vectors []Vector) error {
	body := map[string]any{"vectors": vectors}
	return do(ctx, i.http, i.apiKey, http.MethodPost, i.baseURL+"/vectors/upsert", body, nil)
}

// Query returns the topK nearest vectors with metadata.
func (i *Index) Query(ctx context.Context, vector []float32, topK int) ([]Match, error) {
	body := map[string]any{
		"vector":          vector,
		"topK":            topK,
		"includeMetadata": true,
	}
	var resp struct {
		Matches []Match `json:"matches"`
	}
	if err := do(ctx, i.http, i.apiKey, http.MethodPost, i.baseURL+"/query", body, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

// DeleteByFilter removes every vector whose metadata matches the filter.
// Deleting with a filter that matches nothing is not an error.
func (i *Index) DeleteByFilter(ctx context.Context, filter map[string]any) error {
	body := map[string]any{"filter": filter}
	return do(ctx, i.http, i.apiKey, http.MethodPost, i.baseURL+"/vectors/delete", body, nil)
}

// DeleteAll removes every vector in the index.
func (i *Index) DeleteAll(ctx context.Context) error {
	body := map[string]any{"deleteAll": true}
	return do(ctx, i.http, i.apiKey, http.MethodPost, i.baseURL+"/vectors/delete", body, nil)
}

func (c *Client) do(ctx context.Context, method, url string, body, out any) error {
	return do(ctx, c.http, c.apiKey, method, url, body, out)
}

func do(ctx context.Context, client *http.Client, apiKey, method, url string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("pinecone %s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(snippet)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
