package agent

import (
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

// ErrNoEndpoint is returned when the client was built without an agent URL.
var ErrNoEndpoint = errors.New("agent endpoint is not configured")

const maxResponseBytes = 1 << 20

// Invoker sends one message to an agent and returns its structured reply.
// Transport failures are returned as errors; application failures come back
// as a Result without a success marker.
type Invoker interface {
	Invoke(ctx context.Context, message, agentID string) (Result, error)
}

// Result mirrors the agent API envelope.
type Result struct {
	Success  bool      `json:"success"`
	Response *Response `json:"response,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// Response is the agent-level payload. Only Status is interpreted here.
type Response struct {
	Status  string          `json:"status,omitempty"`
	Message string          `json:"message,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// Succeeded reports whether the reply explicitly signals success.
func (r Result) Succeeded() bool {
	return r.Success || (r.Response != nil && r.Response.Status == "success")
}

type request struct {
	Message string `json:"message"`
	AgentID string `json:"agent_id"`
}

// Client invokes agents over HTTP with a JSON POST.
type Client struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

type Config struct {
	Endpoint string
	APIKey   string
	// HTTPClient overrides the default client. Deadlines should come from
	// the request context rather than the client timeout.
	HTTPClient *http.Client
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   5 * time.Second,
				ExpectContinueTimeout: time.Second,
			},
		}
	}
	return &Client{
		endpoint: strings.TrimSpace(cfg.Endpoint),
		apiKey:   cfg.APIKey,
		client:   httpClient,
	}
}

func (c *Client) Endpoint() string {
	return c.endpoint
}

func (c *Client) Invoke(ctx context.Context, message, agentID string) (Result, error) {
	if c.endpoint == "" {
		return Result{}, ErrNoEndpoint
	}

	body, err := json.Marshal(request{Message: message, AgentID: agentID})
	if err != nil {
		return Result{}, fmt.Errorf("encode agent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("build agent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("invoke agent %s: %w", agentID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Result{}, fmt.Errorf("read agent response: %w", err)
	}

	var result Result
	decodeErr := json.Unmarshal(data, &result)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr != nil || result.Error == "" {
			result.Error = fmt.Sprintf("agent returned %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		// A non-2xx reply never counts as success, whatever its body claims.
		result.Success = false
		if result.Response != nil {
			result.Response.Status = ""
		}
		return result, nil
	}
	if decodeErr != nil {
		return Result{Error: "malformed agent response"}, nil
	}
	return result, nil
}
