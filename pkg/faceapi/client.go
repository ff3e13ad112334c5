// Package faceapi talks to the Azure Face API detect endpoint.
package faceapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"github.com/menta2k/face-emotion/internal/httpc"
	"github.com/menta2k/face-emotion/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SubscriptionKeyHeader carries the static API key
const SubscriptionKeyHeader = "Ocp-Apim-Subscription-Key"

// DefaultAttributes are the face attributes requested when none are configured
var DefaultAttributes = []string{"age", "gender", "emotion"}

// Config holds the Face API connection settings
type Config struct {
	Endpoint            string
	SubscriptionKey     string
	ReturnFaceID        bool
	ReturnFaceLandmarks bool
	Attributes          []string
	Timeout             time.Duration
	RequestsPerMinute   int // 0 disables the local budget
}

// DefaultConfig returns the request shape used by the overlay
func DefaultConfig(endpoint, key string) Config {
	return Config{
		Endpoint:            endpoint,
		SubscriptionKey:     key,
		ReturnFaceID:        true,
		ReturnFaceLandmarks: false,
		Attributes:          DefaultAttributes,
		Timeout:             httpc.DefaultTimeout,
	}
}

// Client posts raw image bytes to the detect endpoint
type Client struct {
	requestURL string
	key        string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Face API client
func NewClient(cfg Config) (*Client, error) {
	parsed, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported endpoint scheme: %q (only http and https are supported)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("endpoint %q has no host", cfg.Endpoint)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = httpc.DefaultTimeout
	}

	c := &Client{
		requestURL: buildRequestURL(cfg),
		key:        cfg.SubscriptionKey,
		timeout:    timeout,
		httpClient: httpc.NewClient(timeout),
	}
	if cfg.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	return c, nil
}

// buildRequestURL keeps the query parameters in a fixed order; url.Values would sort and escape them
func buildRequestURL(cfg Config) string {
	attrs := cfg.Attributes
	if len(attrs) == 0 {
		attrs = DefaultAttributes
	}
	query := "returnFaceId=" + strconv.FormatBool(cfg.ReturnFaceID) +
		"&returnFaceLandmarks=" + strconv.FormatBool(cfg.ReturnFaceLandmarks) +
		"&returnFaceAttributes=" + strings.Join(attrs, ",")

	sep := "?"
	if strings.Contains(cfg.Endpoint, "?") {
		sep = "&"
	}
	return cfg.Endpoint + sep + query
}

// RequestURL returns the full detect URL including query parameters
func (c *Client) RequestURL() string {
	return c.requestURL
}

// DetectFaces submits one image and returns the faces found in it
func (c *Client) DetectFaces(ctx context.Context, image []byte) ([]types.FaceModel, error) {
	if len(image) == 0 {
		return nil, ErrEmptyImage
	}
	if c.limiter != nil && !c.limiter.Allow() {
		return nil, ErrRateLimited
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.requestURL, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set(SubscriptionKeyHeader, c.key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, body)
	}

	var faces []types.FaceModel
	if err := json.Unmarshal(body, &faces); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return faces, nil
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{StatusCode: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		apiErr.Code = env.Error.Code
		apiErr.Message = env.Error.Message
	}
	if apiErr.Code == "" && apiErr.Message == "" && len(body) > 0 {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
