// Package solr talks to a standalone Solr server over its core admin, schema,
// config and update APIs.
package solr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/davidschrooten/index-bootstrap/config"
	"github.com/davidschrooten/index-bootstrap/internal/engine"
	"github.com/davidschrooten/index-bootstrap/internal/schema"
)

// Client is a Solr client bound to one core.
type Client struct {
	http     *retryablehttp.Client
	baseURL  string
	core     string
	username string
	password string
	logger   *slog.Logger
}

var _ engine.Engine = (*Client)(nil)

// NewClient creates a client for core on the Solr server in cfg.
func NewClient(cfg config.SolrConfig, core string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid solr url %q: %w", cfg.URL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid solr url %q: scheme and host are required", cfg.URL)
	}

	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = cfg.RetryMax
	httpClient.RetryWaitMin = 250 * time.Millisecond
	httpClient.RetryWaitMax = 2 * time.Second
	httpClient.HTTPClient.Timeout = time.Duration(cfg.Timeout) * time.Second
	// Keep the last response so Solr's own error message reaches the caller.
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	httpClient.Logger = logger

	return &Client{
		http:     httpClient,
		baseURL:  strings.TrimRight(cfg.URL, "/"),
		core:     core,
		username: cfg.Username,
		password: cfg.Password,
		logger:   logger,
	}, nil
}

// Core returns the name of the core the client is bound to.
func (c *Client) Core() string {
	return c.core
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.HTTPClient.CloseIdleConnections()
	return nil
}

type coreStatusResponse struct {
	Status map[string]struct {
		Name   string `json:"name"`
		Uptime *int64 `json:"uptime"`
	} `json:"status"`
}

// CoreStatus reports whether the core is loaded. A core without an uptime
// entry is not running and counts as absent.
func (c *Client) CoreStatus(ctx context.Context, core string) (engine.CoreStatus, error) {
	params := url.Values{"action": {"STATUS"}, "core": {core}}

	var resp coreStatusResponse
	if err := c.do(ctx, "core status", http.MethodGet, c.adminURL(params), nil, &resp); err != nil {
		return engine.CoreStatus{}, err
	}

	status := engine.CoreStatus{Name: core}
	if entry, ok := resp.Status[core]; ok && entry.Uptime != nil {
		status.Present = true
		status.Uptime = time.Duration(*entry.Uptime) * time.Millisecond
	}
	return status, nil
}

// UnloadCore unloads the core and deletes its instance directory.
func (c *Client) UnloadCore(ctx context.Context, core string) error {
	params := url.Values{"action": {"UNLOAD"}, "core": {core}, "deleteInstanceDir": {"true"}}
	return c.do(ctx, "unload core", http.MethodGet, c.adminURL(params), nil, nil)
}

// CreateCore creates the core from a config set.
func (c *Client) CreateCore(ctx context.Context, core, configSet string) error {
	params := url.Values{"action": {"CREATE"}, "name": {core}, "configSet": {configSet}}
	return c.do(ctx, "create core", http.MethodGet, c.adminURL(params), nil, nil)
}

// Schema reads the field types, fields and copy fields of the core.
func (c *Client) Schema(ctx context.Context) (schema.Snapshot, error) {
	var snap schema.Snapshot

	var types struct {
		FieldTypes []schema.FieldTypeDefinition `json:"fieldTypes"`
	}
	if err := c.do(ctx, "get field types", http.MethodGet, c.coreURL("schema/fieldtypes", nil), nil, &types); err != nil {
		return snap, err
	}

	var fields struct {
		Fields []schema.FieldDefinition `json:"fields"`
	}
	if err := c.do(ctx, "get fields", http.MethodGet, c.coreURL("schema/fields", nil), nil, &fields); err != nil {
		return snap, err
	}

	var copyFields struct {
		CopyFields []schema.CopyFieldRule `json:"copyFields"`
	}
	if err := c.do(ctx, "get copy fields", http.MethodGet, c.coreURL("schema/copyfields", nil), nil, &copyFields); err != nil {
		return snap, err
	}

	snap.FieldTypes = types.FieldTypes
	snap.Fields = fields.Fields
	snap.CopyFields = copyFields.CopyFields
	return snap, nil
}

// ApplySchema posts one command to the schema API.
func (c *Client) ApplySchema(ctx context.Context, cmd schema.Command) error {
	return c.postJSON(ctx, cmd.Op, c.coreURL("schema", nil), cmd)
}

// ApplyConfig posts one command to the config API.
func (c *Client) ApplyConfig(ctx context.Context, cmd schema.Command) error {
	return c.postJSON(ctx, cmd.Op, c.coreURL("config", nil), cmd)
}

// Submit adds documents to the core. They become visible on Commit.
func (c *Client) Submit(ctx context.Context, docs []map[string]any) error {
	if len(docs) == 0 {
		return nil
	}
	return c.postJSON(ctx, "update", c.coreURL("update", url.Values{"wt": {"json"}}), docs)
}

// Commit makes submitted documents searchable.
func (c *Client) Commit(ctx context.Context) error {
	body := map[string]any{"commit": map[string]any{}}
	return c.postJSON(ctx, "commit", c.coreURL("update", url.Values{"wt": {"json"}}), body)
}

func (c *Client) adminURL(params url.Values) string {
	params.Set("wt", "json")
	return c.baseURL + "/admin/cores?" + params.Encode()
}

func (c *Client) coreURL(path string, params url.Values) string {
	u := c.baseURL + "/" + url.PathEscape(c.core) + "/" + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

func (c *Client) postJSON(ctx context.Context, op, u string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", op, err)
	}
	return c.do(ctx, op, http.MethodPost, u, body, nil)
}

// do issues a request and decodes a JSON response into out when non-nil.
// Responses outside 2xx become *engine.Error.
func (c *Client) do(ctx context.Context, op, method, u string, body []byte, out any) error {
	var reqBody any
	if body != nil {
		reqBody = body
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	c.logger.Debug("solr request", "op", op, "method", method, "url", u)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &engine.Error{Op: op, Status: resp.StatusCode, Message: errorMessage(data, resp.Status)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return nil
}

type errorResponse struct {
	Error struct {
		Msg     string `json:"msg"`
		Details []struct {
			ErrorMessages []string `json:"errorMessages"`
		} `json:"details"`
	} `json:"error"`
}

// errorMessage extracts Solr's error message and any per-command details.
func errorMessage(data []byte, fallback string) string {
	var resp errorResponse
	if err := json.Unmarshal(data, &resp); err != nil || resp.Error.Msg == "" {
		if text := strings.TrimSpace(string(data)); text != "" {
			return text
		}
		return fallback
	}

	parts := []string{resp.Error.Msg}
	for _, d := range resp.Error.Details {
		for _, m := range d.ErrorMessages {
			parts = append(parts, strings.TrimSpace(m))
		}
	}
	return strings.Join(parts, ": ")
}
