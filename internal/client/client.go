// ABOUTME: HTTP client for the authentication and API-key backend
// ABOUTME: Wraps API calls with bearer credentials and typed error handling

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/sumitbondd/api-key-manager/internal/session"
)

// RequestIDHeader carries a per-request correlation ID
const RequestIDHeader = "X-Request-ID"

// Backend routes
const (
	pathLogin       = "/auth/login"
	pathRegister    = "/auth/register"
	pathKeys        = "/api/keys"
	pathGenerateKey = "/api/generate-key"
	pathRevokeKey   = "/api/revoke/"
)

// Client is the API client for the key-management backend
type Client struct {
	baseURL    string
	store      session.Store
	httpClient *http.Client
	authClient *http.Client
	log        zerolog.Logger
	fetches    singleflight.Group

	// mutations counts generate/revoke calls the backend answered; fetches
	// started before one are never joined by fetches started after it
	mutations atomic.Uint64
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
		c.authClient.Timeout = d
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// New creates a client for baseURL. Authenticated calls read the bearer token
// from store at request time.
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		store:   store,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		authClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &oauth2.Transport{
				Source: session.TokenSource(store),
				Base:   http.DefaultTransport,
			},
		},
		log: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Login calls POST /auth/login
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return c.authenticate(ctx, pathLogin, creds)
}

// Register calls POST /auth/register
func (c *Client) Register(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	return c.authenticate(ctx, pathRegister, creds)
}

func (c *Client) authenticate(ctx context.Context, path string, creds Credentials) (*AuthResponse, error) {
	resp, err := c.do(ctx, c.httpClient, http.MethodPost, path, path, creds)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, c.handleErrorResponse(resp)
	}

	var auth AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return nil, fmt.Errorf("%w: invalid response from backend: %w", ErrMalformedResponse, err)
	}
	return &auth, nil
}

// ListKeys calls GET /api/keys. Concurrent calls made with the same session
// share one request, unless a key was generated or revoked in between.
func (c *Client) ListKeys(ctx context.Context) ([]APIKey, error) {
	token, _ := c.store.Read()
	flight := strconv.FormatUint(c.mutations.Load(), 10) + "/" + token
	v, err, _ := c.fetches.Do(flight, func() (interface{}, error) {
		return c.listKeys(ctx)
	})
	if err != nil {
		return nil, err
	}

	shared := v.([]APIKey)
	keys := make([]APIKey, len(shared))
	copy(keys, shared)
	return keys, nil
}

func (c *Client) listKeys(ctx context.Context) ([]APIKey, error) {
	resp, err := c.do(ctx, c.authClient, http.MethodGet, pathKeys, pathKeys, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if !isSuccess(resp.StatusCode) {
		return nil, c.handleErrorResponse(resp)
	}

	var list KeyList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("%w: invalid response from backend: %w", ErrMalformedResponse, err)
	}
	if list.APIKeys == nil {
		return []APIKey{}, nil
	}
	return list.APIKeys, nil
}

// GenerateKey calls POST /api/generate-key
func (c *Client) GenerateKey(ctx context.Context) (*GeneratedKey, error) {
	resp, err := c.do(ctx, c.authClient, http.MethodPost, pathGenerateKey, pathGenerateKey, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	c.mutations.Add(1)

	if !isSuccess(resp.StatusCode) {
		return nil, c.handleErrorResponse(resp)
	}

	var generated GeneratedKey
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		return nil, fmt.Errorf("%w: invalid response from backend: %w", ErrMalformedResponse, err)
	}
	return &generated, nil
}

// RevokeKey calls POST /api/revoke/{key}
func (c *Client) RevokeKey(ctx context.Context, key string) (*MessageResponse, error) {
	resp, err := c.do(ctx, c.authClient, http.MethodPost, pathRevokeKey+url.PathEscape(key), pathRevokeKey+"{key}", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	c.mutations.Add(1)

	if !isSuccess(resp.StatusCode) {
		return nil, c.handleErrorResponse(resp)
	}

	// The reply body is informational only
	var msg MessageResponse
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		c.log.Debug().
			Str("route", pathRevokeKey+"{key}").
			Err(err).
			Msg("ignoring undecodable revoke reply")
	}
	return &msg, nil
}

// do sends a request. route is the path template written to the log so that
// key material never reaches it.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path, route string, payload interface{}) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal input: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.log.Debug().
			Str("request_id", requestID).
			Str("method", method).
			Str("route", route).
			Err(err).
			Msg("request failed")
		return nil, c.handleRequestError(ctx, err)
	}

	c.log.Debug().
		Str("request_id", requestID).
		Str("method", method).
		Str("route", route).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request completed")
	return resp, nil
}

// handleRequestError converts context errors to user-friendly messages
func (c *Client) handleRequestError(ctx context.Context, err error) error {
	if ctx.Err() == context.Canceled {
		return fmt.Errorf("%w: request canceled", ErrTransport)
	}
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("%w: request timed out", ErrTransport)
	}
	return fmt.Errorf("%w: cannot connect to backend at %s: %w", ErrTransport, c.baseURL, err)
}

// handleErrorResponse parses API error responses. A body that is not JSON
// yields an APIError without a message.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
		apiErr.Message = errResp.Message
	}
	return apiErr
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
