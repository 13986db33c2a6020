package matchdex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matchdex/matchdex/internal/version"
)

const (
	defaultTimeout = 10 * time.Second
	apiPrefix      = "/api/v1"
)

// Client is the matchdex HTTP API client.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
	obs       *observer
}

// New creates a matchdex API client.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		userAgent: version.UserAgent(),
		timeout:   defaultTimeout,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.baseURL == "" {
		return nil, errors.New("matchdex: base URL required (use WithBaseURL)")
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.baseURL, "/"),
		token:     cfg.token,
		userAgent: cfg.userAgent,
		http:      hc,
		obs:       obs,
	}, nil
}

// Resumes returns the service for the resume population.
func (c *Client) Resumes() *RecordService {
	return &RecordService{c: c, name: "resumes", base: apiPrefix + "/resumes"}
}

// Jobs returns the service for the job posting population.
func (c *Client) Jobs() *RecordService {
	return &RecordService{c: c, name: "jobs", base: apiPrefix + "/jobs"}
}

// do runs one API request: marshal the body, send, decode into out on
// success, or map the error payload to an *APIError. Response headers
// are returned so callers can pick up the X-Embedding-Tokens count.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (http.Header, error) {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("matchdex: encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("matchdex: build request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("matchdex: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.Header, decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("matchdex: decode response: %w", err)
		}
	}
	return resp.Header, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
}

// embeddingTokens reads the token count the request consumed server-side.
func embeddingTokens(h http.Header) int {
	n, _ := strconv.Atoi(h.Get("X-Embedding-Tokens"))
	return n
}
