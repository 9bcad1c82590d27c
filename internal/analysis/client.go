package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"modgate/internal/gate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Job states reported by the analysis service.
const (
	jobRunning = "running"
	jobDone    = "done"
	jobFailed  = "failed"
)

type submitRequest struct {
	URI      string         `json:"uri"`
	Features []gate.Feature `json:"features"`
}

type submitResponse struct {
	ID string `json:"id"`
}

type jobResponse struct {
	ID          string            `json:"id"`
	State       string            `json:"state"`
	Error       string            `json:"error,omitempty"`
	Annotations *gate.Annotations `json:"annotations,omitempty"`
}

// HTTPClient talks to an analysis service over its job API:
//
//	POST {base}/v1/jobs        submit {uri, features} and receive {id}
//	GET  {base}/v1/jobs/{id}   poll {id, state, error, annotations}
type HTTPClient struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	httpClient   *http.Client
	logger       gate.Logger
}

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	BaseURL        string
	APIKey         string
	RequestTimeout time.Duration
	PollInterval   time.Duration
}

// NewHTTPClient creates an analysis client for the service at opts.BaseURL.
func NewHTTPClient(opts HTTPOptions, logger gate.Logger) (*HTTPClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("analysis client requires base_url to be set")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid analysis base_url: %w", err)
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:      strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		pollInterval: opts.PollInterval,
		httpClient:   &http.Client{Timeout: opts.RequestTimeout},
		logger:       logger,
	}, nil
}

// Submit starts an analysis job for uri.
func (c *HTTPClient) Submit(ctx context.Context, uri string, features []gate.Feature) (gate.JobHandle, error) {
	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, "/v1/jobs", submitRequest{URI: uri, Features: features}, &resp); err != nil {
		return gate.JobHandle{}, err
	}
	if resp.ID == "" {
		return gate.JobHandle{}, fmt.Errorf("analysis service returned an empty job id")
	}
	c.logger.Debug("analysis job submitted", "job_id", resp.ID, "uri", uri)
	return gate.JobHandle{ID: resp.ID, Modality: gate.ModalityFor(features)}, nil
}

// Await polls the job until it finishes, ctx ends or timeout elapses.
func (c *HTTPClient) Await(ctx context.Context, job gate.JobHandle, timeout time.Duration) (*gate.Annotations, error) {
	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		var resp jobResponse
		if err := c.do(ctx, http.MethodGet, "/v1/jobs/"+url.PathEscape(job.ID), nil, &resp); err != nil {
			return nil, err
		}
		switch resp.State {
		case jobDone:
			if resp.Annotations == nil {
				return nil, fmt.Errorf("job %s finished without annotations", job.ID)
			}
			return resp.Annotations, nil
		case jobFailed:
			// A failed job says nothing about the content; resubmitting may succeed.
			return nil, gate.Transient(fmt.Errorf("job %s failed: %s", job.ID, resp.Error))
		case jobRunning, "":
		default:
			return nil, fmt.Errorf("job %s reported unknown state %q", job.ID, resp.State)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			return nil, gate.ErrAwaitTimeout
		case <-ticker.C:
		}
	}
}

// do sends one request and decodes a JSON response into out.
// Rate limits, server errors and network failures are transient.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return gate.Transient(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		if err.Retryable() {
			return gate.Transient(err)
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s %s: empty response body", method, path)
		}
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// StatusError is a non-2xx response from the analysis service.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.Code)
}

// Retryable reports whether the status is a rate limit or server error.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code == http.StatusRequestTimeout || e.Code >= 500
}

// Compile-time check that HTTPClient implements gate.AnalysisService interface
var _ gate.AnalysisService = (*HTTPClient)(nil)
