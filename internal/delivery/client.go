package delivery

import (
	"bytes"
	"context"
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

type createAssetRequest struct {
	Input string `json:"input"`
	Title string `json:"title,omitempty"`
}

type assetResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HTTPClient talks to a video delivery network:
//
//	POST {base}/assets        ingest {input, title} and receive {id, status}
//	GET  {base}/assets/{id}   poll {id, status}
//
// Playback and thumbnails are served from the CDN by convention.
type HTTPClient struct {
	baseURL    string
	cdnBaseURL string
	apiKey     string
	httpClient *http.Client
	logger     gate.Logger
}

// HTTPOptions configures an HTTPClient.
type HTTPOptions struct {
	BaseURL        string
	CDNBaseURL     string
	APIKey         string
	RequestTimeout time.Duration
}

// NewHTTPClient creates a delivery network client.
func NewHTTPClient(opts HTTPOptions, logger gate.Logger) (*HTTPClient, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("delivery client requires base_url to be set")
	}
	if opts.CDNBaseURL == "" {
		return nil, fmt.Errorf("delivery client requires cdn_base_url to be set")
	}
	for _, raw := range []string{opts.BaseURL, opts.CDNBaseURL} {
		if _, err := url.Parse(raw); err != nil {
			return nil, fmt.Errorf("invalid delivery url %q: %w", raw, err)
		}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		cdnBaseURL: strings.TrimSuffix(opts.CDNBaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: opts.RequestTimeout},
		logger:     logger,
	}, nil
}

// CreateAsset asks the network to pull sourceURI and returns the asset id.
func (c *HTTPClient) CreateAsset(ctx context.Context, sourceURI, title string) (string, error) {
	var resp assetResponse
	if err := c.do(ctx, http.MethodPost, "/assets", createAssetRequest{Input: sourceURI, Title: title}, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("delivery network returned an empty asset id")
	}
	c.logger.Info("delivery asset created", "asset_id", resp.ID, "source", sourceURI)
	return resp.ID, nil
}

// PollStatus returns the processing status of an asset.
func (c *HTTPClient) PollStatus(ctx context.Context, assetID string) (gate.AssetStatus, error) {
	var resp assetResponse
	if err := c.do(ctx, http.MethodGet, "/assets/"+url.PathEscape(assetID), nil, &resp); err != nil {
		return "", err
	}
	switch status := gate.AssetStatus(resp.Status); status {
	case gate.AssetProcessing, gate.AssetReady, gate.AssetError:
		return status, nil
	case "queued", "preparing":
		return gate.AssetProcessing, nil
	default:
		return "", fmt.Errorf("asset %s reported unknown status %q", assetID, resp.Status)
	}
}

func (c *HTTPClient) PlaybackURL(assetID string) string {
	return fmt.Sprintf("%s/%s/playlist.m3u8", c.cdnBaseURL, url.PathEscape(assetID))
}

func (c *HTTPClient) ThumbnailURL(assetID string) string {
	return fmt.Sprintf("%s/%s/thumbnail.jpg", c.cdnBaseURL, url.PathEscape(assetID))
}

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
		req.Header.Set("AccessKey", c.apiKey)
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
		err := fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return gate.Transient(err)
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

// Compile-time check that HTTPClient implements gate.DeliveryNetwork interface
var _ gate.DeliveryNetwork = (*HTTPClient)(nil)
