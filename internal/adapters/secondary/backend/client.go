// Package backend talks to the external helpdesk backend API: the remote
// ticket store and the email-ingestion pipeline.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	apperrors "github.com/lorrc/sap-helpdesk/internal/core/errors"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 3
	maxErrorBody      = 64 << 10
)

// Config holds configuration for creating a backend Client.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:8000/api/v1".
	BaseURL string

	// Timeout bounds a single HTTP attempt. Defaults to 30s.
	Timeout time.Duration

	// MaxAttempts caps tries for idempotent requests. Defaults to 3.
	MaxAttempts int

	// RetryInitialInterval is the first backoff delay. Defaults to the
	// backoff package's 500ms.
	RetryInitialInterval time.Duration

	// OAuth client-credentials settings for calls made outside a user
	// request, such as scheduled email fetches. Optional.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client is a JSON client for the helpdesk backend.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	tokens       oauth2.TokenSource
	maxAttempts  int
	initialDelay time.Duration
	logger       *slog.Logger
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("backend: base URL is required: %w", apperrors.ErrNotConfigured)
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("backend: invalid base URL %q: %w", baseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxRetries
	}

	c := &Client{
		baseURL:      baseURL,
		httpClient:   httpClient,
		maxAttempts:  maxAttempts,
		initialDelay: cfg.RetryInitialInterval,
		logger:       logger.With("component", "backend_client"),
	}

	if cfg.TokenURL != "" && cfg.ClientID != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		c.tokens = cc.TokenSource(tokenCtx)
	}
	return c, nil
}

type bearerKey struct{}

// WithBearerToken attaches the caller's token so the backend sees the
// same identity as this service.
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerKey{}, token)
}

func bearerFromContext(ctx context.Context) string {
	token, _ := ctx.Value(bearerKey{}).(string)
	return token
}

func (c *Client) authorization(ctx context.Context) (string, error) {
	if token := bearerFromContext(ctx); token != "" {
		return "Bearer " + token, nil
	}
	if c.tokens == nil {
		return "", nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return "", fmt.Errorf("backend: obtain client token: %w", err)
	}
	return tok.Type() + " " + tok.AccessToken, nil
}

// get decodes a JSON GET response into out. GETs are retried.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.do(ctx, http.MethodPost, path, query, body, out)
}

func (c *Client) put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// do runs one request. Only GETs are retried, on transport errors, 429
// and 5xx; everything else fails on the first answer.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var encoded []byte
	if body != nil {
		var err error
		if encoded, err = json.Marshal(body); err != nil {
			return fmt.Errorf("backend: encode request body: %w", err)
		}
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	attempt := 0
	operation := func() error {
		attempt++
		err := c.once(ctx, method, target, encoded, out)
		if err != nil && (ctx.Err() != nil || !retryable(err)) {
			return backoff.Permanent(err)
		}
		return err
	}

	if method != http.MethodGet {
		err := operation()
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			return permanent.Err
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	if c.initialDelay > 0 {
		policy.InitialInterval = c.initialDelay
	}
	retries := backoff.WithContext(backoff.WithMaxRetries(policy, uint64(c.maxAttempts-1)), ctx)
	return backoff.RetryNotify(operation, retries, func(err error, wait time.Duration) {
		c.logger.Warn("backend request failed, retrying",
			"method", method,
			"path", path,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
	})
}

func (c *Client) once(ctx context.Context, method, target string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("backend: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	auth, err := c.authorization(ctx)
	if err != nil {
		return err
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &apperrors.UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperrors.UpstreamError{StatusCode: resp.StatusCode, Detail: "malformed response body", Err: err}
	}
	return nil
}

// parseError turns a non-2xx response into an UpstreamError. A 404 also
// matches apperrors.ErrNotFound.
func parseError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	upstream := &apperrors.UpstreamError{StatusCode: resp.StatusCode}
	var body errorDTO
	if json.Unmarshal(raw, &body) == nil {
		upstream.ErrorCode = body.ErrorCode
		switch d := body.Detail.(type) {
		case string:
			upstream.Detail = d
		case nil:
		default:
			// FastAPI validation errors arrive as a list of objects.
			if b, err := json.Marshal(d); err == nil {
				upstream.Detail = string(b)
			}
		}
	}
	if upstream.Detail == "" && len(raw) > 0 && !json.Valid(raw) {
		upstream.Detail = strings.TrimSpace(string(raw))
	}
	if resp.StatusCode == http.StatusNotFound {
		upstream.Err = apperrors.ErrNotFound
	}
	return upstream
}

func retryable(err error) bool {
	var upstream *apperrors.UpstreamError
	if !errors.As(err, &upstream) {
		return false
	}
	return upstream.StatusCode == 0 ||
		upstream.StatusCode == http.StatusTooManyRequests ||
		upstream.StatusCode >= 500
}
