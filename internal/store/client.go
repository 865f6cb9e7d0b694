package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/memfleet/agent-coord/internal/model"
)

const defaultTimeout = 10 * time.Second

// Client implements Store against the memory store REST API. Every request
// carries the bearer token plus org and project slugs.
type Client struct {
	baseURL string
	token   string
	org     string
	project string
	httpc   *http.Client
	logger  *slog.Logger
}

// NewClient creates a store client for the given server and scope.
func NewClient(baseURL, token, org, project string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		org:     org,
		project: project,
		httpc:   &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}
}

// Put creates or overwrites a memory via POST /memories.
func (c *Client) Put(ctx context.Context, p PutParams) (*model.Memory, error) {
	if p.Key == "" {
		return nil, fmt.Errorf("key is required")
	}
	body := map[string]any{
		"key":     p.Key,
		"content": p.Content,
	}
	if p.Metadata != nil {
		body["metadata"] = p.Metadata
	}
	if len(p.Tags) > 0 {
		body["tags"] = p.Tags
	}
	if p.Priority != 0 {
		body["priority"] = p.Priority
	}
	if p.ExpiresAt != nil {
		body["expiresAt"] = p.ExpiresAt.UTC().Format(time.RFC3339)
	}
	var mem model.Memory
	if err := c.do(ctx, http.MethodPost, "/memories", nil, body, &mem); err != nil {
		return nil, err
	}
	return &mem, nil
}

// Get retrieves a memory via GET /memories/{key}.
func (c *Client) Get(ctx context.Context, key string) (*model.Memory, error) {
	var mem model.Memory
	if err := c.do(ctx, http.MethodGet, "/memories/"+url.PathEscape(key), nil, nil, &mem); err != nil {
		return nil, err
	}
	return &mem, nil
}

// Patch applies a partial update via PATCH /memories/{key}.
func (c *Client) Patch(ctx context.Context, key string, p PatchParams) (*model.Memory, error) {
	body := map[string]any{}
	if p.Content != nil {
		body["content"] = *p.Content
	}
	if p.Priority != nil {
		body["priority"] = *p.Priority
	}
	if p.Pinned != nil {
		body["pinned"] = *p.Pinned
	}
	if p.Archived != nil {
		body["archived"] = *p.Archived
	}
	if p.Helpful != nil {
		body["helpful"] = *p.Helpful
	}
	var mem model.Memory
	if err := c.do(ctx, http.MethodPatch, "/memories/"+url.PathEscape(key), nil, body, &mem); err != nil {
		return nil, err
	}
	return &mem, nil
}

// Delete removes a memory via DELETE /memories/{key}.
func (c *Client) Delete(ctx context.Context, key string) error {
	return c.do(ctx, http.MethodDelete, "/memories/"+url.PathEscape(key), nil, nil, nil)
}

// List returns memories via GET /memories with filter query params.
func (c *Client) List(ctx context.Context, p ListParams) ([]model.Memory, error) {
	q := url.Values{}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	if p.Prefix != "" {
		q.Set("prefix", p.Prefix)
	}
	if len(p.Tags) > 0 {
		q.Set("tags", strings.Join(p.Tags, ","))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	var out struct {
		Memories []model.Memory `json:"memories"`
	}
	if err := c.do(ctx, http.MethodGet, "/memories", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Memories, nil
}

// Capacity returns the live usage snapshot via GET /memories/capacity.
func (c *Client) Capacity(ctx context.Context) (*model.Capacity, error) {
	var view model.Capacity
	if err := c.do(ctx, http.MethodGet, "/memories/capacity", nil, nil, &view); err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-Org-Slug", c.org)
	req.Header.Set("X-Project-Slug", c.project)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("store request failed", "method", method, "path", path, "status", resp.StatusCode)
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func errorMessage(data []byte) string {
	var e struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(data, &e) == nil {
		if e.Error != "" {
			return e.Error
		}
		if e.Message != "" {
			return e.Message
		}
	}
	return strings.TrimSpace(string(data))
}
