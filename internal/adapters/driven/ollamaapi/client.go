// Package ollamaapi is the HTTP client the Ollama embedding and LLM adapters
// share. It speaks JSON requests, single JSON replies and NDJSON streams.
package ollamaapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is where a local Ollama listens.
const DefaultBaseURL = "http://localhost:11434"

// maxLineBytes bounds one NDJSON line of a streamed reply.
const maxLineBytes = 1 << 20

// ErrIncompleteStream is returned when a stream closes without a done line.
var ErrIncompleteStream = errors.New("ollama: stream ended before completion")

// StatusError is a non-200 reply.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ollama error (status %d): %s", e.Code, e.Body)
}

// Client talks to one Ollama server.
type Client struct {
	http    *http.Client
	baseURL string

	// unavailable wraps transport failures so callers can match the
	// domain error for their service.
	unavailable error
}

// New returns a client for baseURL (default DefaultBaseURL). Transport
// failures are wrapped with unavailable.
func New(baseURL string, timeout time.Duration, unavailable error) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		http:        &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		unavailable: unavailable,
	}
}

// BaseURL returns the server address without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the per-request timeout, streamed bodies included.
func (c *Client) Timeout() time.Duration { return c.http.Timeout }

// Post sends in as JSON to path and decodes the reply into out.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	resp, err := c.do(ctx, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Stream sends in as JSON to path and hands each non-empty reply line to
// onLine until it reports done. A body that ends first is
// ErrIncompleteStream.
func (c *Client) Stream(ctx context.Context, path string, in any, onLine func(line []byte) (done bool, err error)) error {
	resp, err := c.do(ctx, http.MethodPost, path, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		done, err := onLine(line)
		if err != nil || done {
			return err
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	return ErrIncompleteStream
}

// Model is one entry of /api/tags.
type Model struct {
	Name  string `json:"name"`
	Model string `json:"model"`
}

// Tags is the /api/tags reply.
type Tags struct {
	Models []Model `json:"models"`
}

// Has reports whether model is pulled. A name without a tag matches ":latest".
func (t Tags) Has(model string) bool {
	want := model
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	for _, m := range t.Models {
		if m.Name == model || m.Name == want || m.Model == model || m.Model == want {
			return true
		}
	}
	return false
}

// Tags lists the pulled models. It doubles as a health check.
func (c *Client) Tags(ctx context.Context) (Tags, error) {
	var tags Tags
	resp, err := c.do(ctx, http.MethodGet, "/api/tags", nil)
	if err != nil {
		return tags, err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return tags, fmt.Errorf("ollama: decode tags: %w", err)
	}
	return tags, nil
}

// RequireModel fails unless model is pulled.
func (c *Client) RequireModel(ctx context.Context, model string) error {
	tags, err := c.Tags(ctx)
	if err != nil {
		return err
	}
	if !tags.Has(model) {
		return fmt.Errorf("ollama: model %q not found (run: ollama pull %s)", model, model)
	}
	return nil
}

// do returns a 200 response; the caller closes its body.
func (c *Client) do(ctx context.Context, method, path string, in any) (*http.Response, error) {
	body := io.Reader(http.NoBody)
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if c.unavailable != nil {
			return nil, fmt.Errorf("%w: %w", c.unavailable, err)
		}
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return nil, &StatusError{Code: resp.StatusCode, Body: "unreadable response"}
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return resp, nil
}
