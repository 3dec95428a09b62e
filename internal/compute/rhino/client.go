// Package rhino evaluates Grasshopper definitions on a Rhino Compute server.
package rhino

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/turtacn/Massing-Sim/internal/compute/datatree"
	"github.com/turtacn/Massing-Sim/internal/compute/definition"
	"github.com/turtacn/Massing-Sim/internal/config"
	"github.com/turtacn/Massing-Sim/internal/infrastructure/monitoring/logging"
)

var (
	ErrComputeUnavailable = errors.New("rhino: compute server unavailable")
	ErrEvaluationFailed   = errors.New("rhino: evaluation failed")
	ErrInvalidResponse    = errors.New("rhino: invalid response")
	ErrClientClosed       = errors.New("rhino: client closed")
)

// DefaultURL is the address of a locally running Rhino Compute.
const DefaultURL = "http://localhost:6500/"

// Client evaluates definitions on a compute backend.
type Client interface {
	// Evaluate runs definition with the given input trees and returns the raw
	// result.  Transport and remote errors are returned to the caller.
	Evaluate(ctx context.Context, definition string, trees []datatree.Tree) (*datatree.Result, error)
	Healthy(ctx context.Context) error
	Close() error
}

// Recorder receives one observation per evaluation.
type Recorder interface {
	ObserveEvaluation(definition, outcome string, d time.Duration)
}

// Config is the explicit connection configuration of a Client.
type Config struct {
	URL          string
	APIKey       string
	AuthToken    string
	Timeout      time.Duration
	MaxRetries   int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
	UserAgent    string
}

// DefaultConfig returns a Config for a local compute server with no key.
func DefaultConfig() Config {
	return Config{
		URL:          DefaultURL,
		Timeout:      5 * time.Minute,
		MaxRetries:   2,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 5 * time.Second,
		UserAgent:    "massing-sim/rhino",
	}
}

// ConfigFrom maps the compute section of the service configuration.
func ConfigFrom(cc config.ComputeConfig) Config {
	return Config{
		URL:          cc.URL,
		APIKey:       cc.APIKey,
		AuthToken:    cc.AuthToken,
		Timeout:      cc.Timeout,
		MaxRetries:   cc.MaxRetries,
		RetryWaitMin: cc.RetryWaitMin,
		RetryWaitMax: cc.RetryWaitMax,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryWaitMin <= 0 {
		c.RetryWaitMin = d.RetryWaitMin
	}
	if c.RetryWaitMax < c.RetryWaitMin {
		c.RetryWaitMax = c.RetryWaitMin * 10
	}
	if c.UserAgent == "" {
		c.UserAgent = d.UserAgent
	}
}

// Option customises an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRecorder attaches an evaluation metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *HTTPClient) { c.recorder = r }
}

// HTTPClient talks to Rhino Compute over its REST API.
type HTTPClient struct {
	cfg      Config
	base     *url.URL
	resolver *definition.Resolver
	http     *http.Client
	logger   logging.Logger
	recorder Recorder

	mu     sync.RWMutex
	closed bool
}

// NewHTTPClient validates cfg and returns a client that resolves definition
// names through resolver.
func NewHTTPClient(cfg Config, resolver *definition.Resolver, logger logging.Logger, opts ...Option) (*HTTPClient, error) {
	cfg.applyDefaults()
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rhino: invalid url %q: %w", cfg.URL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("rhino: url scheme must be http or https, got %q", base.Scheme)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	if resolver == nil {
		resolver = definition.NewResolver()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &HTTPClient{
		cfg:      cfg,
		base:     base,
		resolver: resolver,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger.Named("rhino"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type evaluateRequest struct {
	Algo    *string         `json:"algo"`
	Pointer *string         `json:"pointer"`
	Values  []datatree.Tree `json:"values"`
}

// Evaluate resolves name, uploads the definition (or passes its URL) and
// returns the decoded result.
func (c *HTTPClient) Evaluate(ctx context.Context, name string, trees []datatree.Tree) (*datatree.Result, error) {
	if c.isClosed() {
		return nil, ErrClientClosed
	}
	start := time.Now()
	res, err := c.evaluate(ctx, name, trees)
	if c.recorder != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		c.recorder.ObserveEvaluation(name, outcome, time.Since(start))
	}
	return res, err
}

func (c *HTTPClient) evaluate(ctx context.Context, name string, trees []datatree.Tree) (*datatree.Result, error) {
	loc, err := c.resolver.Resolve(name)
	if err != nil {
		return nil, err
	}

	req := evaluateRequest{Values: trees}
	if req.Values == nil {
		req.Values = []datatree.Tree{}
	}
	if loc.IsRemote() {
		p := loc.Pointer
		req.Pointer = &p
	} else {
		raw, err := os.ReadFile(loc.Path)
		if err != nil {
			return nil, fmt.Errorf("rhino: read definition %s: %w", loc.Path, err)
		}
		algo := base64.StdEncoding.EncodeToString(raw)
		req.Algo = &algo
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("rhino: encode request for %s: %w", name, err)
	}

	c.logger.Debug("evaluating definition",
		logging.String("definition", loc.String()),
		logging.Int("trees", len(trees)))

	respBody, err := c.do(ctx, http.MethodPost, "grasshopper", body)
	if err != nil {
		return nil, err
	}
	res, err := datatree.DecodeResult(respBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(res.Errors) > 0 {
		return res, fmt.Errorf("%w: %s", ErrEvaluationFailed, strings.Join(res.Errors, "; "))
	}
	for _, w := range res.Warnings {
		c.logger.Warn("definition warning", logging.String("definition", name), logging.String("warning", w))
	}
	return res, nil
}

// Healthy probes the server's healthcheck endpoint.
func (c *HTTPClient) Healthy(ctx context.Context) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	_, err := c.do(ctx, http.MethodGet, "healthcheck", nil)
	return err
}

// Close marks the client closed.  It is safe to call more than once.
func (c *HTTPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// StatusError carries a non-2xx response from the compute server.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rhino: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode >= 500 {
		return ErrComputeUnavailable
	}
	return ErrEvaluationFailed
}

// do sends one request with retries on transport errors and 5xx replies.
func (c *HTTPClient) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	target := c.base.ResolveReference(&url.URL{Path: endpoint}).String()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt)
			c.logger.Debug("retrying compute request",
				logging.Int("attempt", attempt), logging.Duration("wait", wait))
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return nil, fmt.Errorf("rhino: build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("User-Agent", c.cfg.UserAgent)
		if c.cfg.APIKey != "" {
			req.Header.Set("RhinoComputeKey", c.cfg.APIKey)
		}
		if c.cfg.AuthToken != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.AuthToken)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", ErrComputeUnavailable, err)
			continue
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("%w: read body: %v", ErrComputeUnavailable, err)
			continue
		}
		if resp.StatusCode >= 400 {
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
			if resp.StatusCode >= 500 {
				continue
			}
			return nil, lastErr
		}
		return respBody, nil
	}
	return nil, lastErr
}

func (c *HTTPClient) backoff(attempt int) time.Duration {
	wait := c.cfg.RetryWaitMin * time.Duration(1<<uint(attempt-1))
	if wait > c.cfg.RetryWaitMax {
		wait = c.cfg.RetryWaitMax
	}
	if quarter := int64(wait / 4); quarter > 0 {
		wait += time.Duration(rand.Int63n(quarter))
	}
	return wait
}

// ComputeWithInput encodes params and evaluates definition.
func ComputeWithInput(ctx context.Context, c Client, definition string, params *datatree.Params) (*datatree.Result, error) {
	return c.Evaluate(ctx, definition, datatree.Encode(params))
}

// ComputeWithoutInput evaluates a definition that takes no inputs.
func ComputeWithoutInput(ctx context.Context, c Client, definition string) (*datatree.Result, error) {
	return c.Evaluate(ctx, definition, []datatree.Tree{})
}

//Personal.AI order the ending
