package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Client is a Go client for the agent's HTTP tool-call boundary.
type Client struct {
	Logger     *zap.SugaredLogger
	HTTPClient *http.Client

	baseURL      string
	waitInterval time.Duration

	customizeRetryableClient func(*retryablehttp.Client)
}

type ClientOption func(c *Client)

func WithClientWaitInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		c.waitInterval = d
	}
}

func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		c.Logger = l.Named("agent_client").Sugar()
	}
}

func WithCustomizeRetryableClient(f func(r *retryablehttp.Client)) ClientOption {
	return func(c *Client) {
		c.customizeRetryableClient = f
	}
}

type logAdapter struct {
	*zap.SugaredLogger
}

func (a *logAdapter) Printf(msg string, args ...interface{}) { a.Debugf(msg, args...) }

// NewClient builds a client for the agent at the given host and port.
func NewClient(log *zap.SugaredLogger, host string, port int, opts ...ClientOption) *Client {
	c := &Client{
		Logger:       log.Named("agent_client"),
		baseURL:      fmt.Sprintf("http://%s:%d", host, port),
		waitInterval: 100 * time.Millisecond,
	}

	for _, opt := range opts {
		opt(c)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Backoff = func(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
		return 10 * time.Millisecond
	}
	retryClient.RetryMax = 10
	retryClient.Logger = &logAdapter{SugaredLogger: c.Logger}

	if c.customizeRetryableClient != nil {
		c.customizeRetryableClient(retryClient)
	}

	c.HTTPClient = retryClient.StandardClient()

	return c
}

// WaitForServer polls the health endpoint until the agent responds or the
// context is done.
func (c *Client) WaitForServer(ctx context.Context) error {
	for {
		if _, err := c.Health(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for agent: %w", ctx.Err())
		case <-time.After(c.waitInterval):
		}
	}
}

// Health fetches the agent's health status.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.getJSON(ctx, "/healthz", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Tools lists the tools registered on the agent.
func (c *Client) Tools(ctx context.Context) ([]ToolDescriptor, error) {
	var resp []ToolDescriptor
	if err := c.getJSON(ctx, "/tools", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RunPowerShell invokes the run_powershell tool and returns its response.
// Execution failures are inside the response's Result string; the returned
// error covers transport-level failures only.
func (c *Client) RunPowerShell(ctx context.Context, req RunPowerShellRequest) (*RunPowerShellResponse, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	u := c.baseURL + "/tools/" + RunPowerShellTool
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.prepReq(httpReq)

	httpResp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP error: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(httpResp.Body)
		if readErr != nil {
			body = []byte(fmt.Sprintf("error reading body: %s", readErr))
		}
		return nil, fmt.Errorf("non-200 HTTP status code %d received from tool call: %s", httpResp.StatusCode, body)
	}

	var resp RunPowerShellResponse
	dec := json.NewDecoder(httpResp.Body)
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &resp, nil
}

func (c *Client) getJSON(ctx context.Context, urlPath string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+urlPath, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.prepReq(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code %d for %s", resp.StatusCode, urlPath)
	}

	dec := json.NewDecoder(resp.Body)
	return dec.Decode(out)
}

func (c *Client) prepReq(r *http.Request) {
	r.Header.Add("Content-Type", "application/json")
	r.Close = true
}
