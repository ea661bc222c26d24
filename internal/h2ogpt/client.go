// Package h2ogpt talks to a self-hosted h2oGPT server through its gradio API.
package h2ogpt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrCannotConnect marks reachability failures: transport errors and any
// non-200 status on the probe. The setup flow maps it to its "cannot_connect"
// form error; everything else stays "unknown".
var ErrCannotConnect = errors.New("cannot connect to h2ogpt")

// nochatEndpoint is the non-streaming single-instruction API exposed by
// h2oGPT's gradio server.
const nochatEndpoint = "/api/submit_nochat_api"

// maxTimeSeconds is the generation budget requested from the remote server.
// No client-side deadline is applied on top of it; cancellation is the
// caller's context.
const maxTimeSeconds = 360

// ParseError reports a remote reply that was not in the expected structured
// form.
type ParseError struct {
	Payload string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unexpected h2ogpt reply %q: %v", e.Payload, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Client is a thin client over one h2oGPT server.
type Client struct {
	baseURL string
	httpc   *http.Client
}

// NewClient builds a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, httpc: http.DefaultClient}
}

// CheckReachable probes the server root. Exactly status 200 counts as
// reachable; anything else is reported as ErrCannotConnect so callers can
// distinguish "cannot connect" from an unknown failure.
func (c *Client) CheckReachable(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("build probe request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCannotConnect, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrCannotConnect, resp.StatusCode)
	}
	return nil
}

// nochatParams is the parameter mapping the endpoint expects, shipped to the
// server as a single JSON-encoded string.
type nochatParams struct {
	StreamOutput      bool   `json:"stream_output"`
	MaxTime           int    `json:"max_time"`
	InstructionNochat string `json:"instruction_nochat"`
}

type gradioRequest struct {
	Data []string `json:"data"`
}

type gradioResponse struct {
	Data []string `json:"data"`
}

type nochatReply struct {
	Response string `json:"response"`
}

// Generate submits a prompt and returns the extracted response text. The
// remote result is a stringified mapping; anything that does not decode to an
// object with a "response" field comes back as *ParseError.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	params, err := json.Marshal(nochatParams{
		StreamOutput:      false,
		MaxTime:           maxTimeSeconds,
		InstructionNochat: prompt,
	})
	if err != nil {
		return "", fmt.Errorf("encode request params: %w", err)
	}

	body, err := json.Marshal(gradioRequest{Data: []string{string(params)}})
	if err != nil {
		return "", fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+nochatEndpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit_nochat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read submit_nochat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("submit_nochat returned status %d", resp.StatusCode)
	}

	var gr gradioResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", &ParseError{Payload: string(raw), Err: err}
	}
	if len(gr.Data) == 0 {
		return "", &ParseError{Payload: string(raw), Err: errors.New("empty data array")}
	}

	return extractResponse(gr.Data[0])
}

// extractResponse decodes the stringified result mapping and pulls out its
// "response" field.
func extractResponse(payload string) (string, error) {
	var reply nochatReply
	if err := json.Unmarshal([]byte(payload), &reply); err != nil {
		return "", &ParseError{Payload: payload, Err: err}
	}
	return reply.Response, nil
}
