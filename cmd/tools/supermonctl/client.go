package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/supermon-ng/supermon-ng/internal/models"
)

// apiClient calls the console HTTP API
type apiClient struct {
	base   string
	key    string
	client *http.Client
}

func newAPIClient() *apiClient {
	return &apiClient{
		base:   strings.TrimRight(serverURL, "/"),
		key:    apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx console response
type APIError struct {
	Status int
	Detail models.ErrorDetail
}

func (e *APIError) Error() string {
	if e.Detail.Message == "" {
		return fmt.Sprintf("console returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("%s (%s, HTTP %d)", e.Detail.Message, e.Detail.Code, e.Status)
}

func (c *apiClient) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *apiClient) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *apiClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.key != "" {
		req.Header.Set("X-API-Key", c.key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var env models.ErrorResponse
		if json.NewDecoder(resp.Body).Decode(&env) == nil {
			apiErr.Detail = env.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// render prints v in the selected output format
func render(w io.Writer, v interface{}) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		// Round-trip through JSON so yaml keys follow the json tags
		data, err := json.Marshal(v)
		if err != nil {
			return err
		}
		var generic interface{}
		if err := yaml.Unmarshal(data, &generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(generic)
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}
