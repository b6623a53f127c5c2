// Package client is the Go SDK for the zen PipelineAI architecture API.
//
// Every request carries the current bearer token. A 401 triggers exactly one
// refresh attempt; if the replay still fails the call returns
// ErrUnauthorized and the caller is expected to re-authenticate. Nothing is
// retried beyond that.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/zenpipeline/archview/pkg/api"
)

const (
	defaultEndpoint = "http://127.0.0.1:8000/api/v1"

	requestTimeout = 10 * time.Second
	// Analysis re-walks the repository server-side; give it room.
	analyzeTimeout = 60 * time.Second
)

// ErrUnauthorized is returned when a request fails with 401 and the single
// refresh attempt did not recover it.
var ErrUnauthorized = errors.New("unauthorized: token refresh failed")

// ErrNotFound is returned for 404 responses.
var ErrNotFound = errors.New("not found")

// APIError carries a non-2xx response the backend explained.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Detail)
}

// TokenSource supplies and receives the credential pair. Implementations
// must be safe for concurrent use.
type TokenSource interface {
	Tokens() api.TokenPair
	SetTokens(api.TokenPair)
}

// StaticToken is a TokenSource for a fixed access token (CI, scripts).
// There is no refresh token, so a 401 is terminal.
type StaticToken string

func (s StaticToken) Tokens() api.TokenPair   { return api.TokenPair{AccessToken: string(s)} }
func (s StaticToken) SetTokens(api.TokenPair) {}

// Client talks to the architecture API.
type Client struct {
	endpoint string
	http     *http.Client
	analyze  *http.Client
	tokens   TokenSource
}

// New creates a client. endpoint defaults to the local backend's /api/v1
// root if empty; tokens may be nil for unauthenticated endpoints only.
func New(endpoint string, tokens TokenSource) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: requestTimeout},
		analyze:  &http.Client{Timeout: analyzeTimeout},
		tokens:   tokens,
	}
}

// Login exchanges credentials for a token pair and installs it in the
// token source.
func (c *Client) Login(ctx context.Context, email, password string) (api.TokenPair, error) {
	body := map[string]string{"email": email, "password": password}
	var pair api.TokenPair
	if err := c.do(ctx, c.http, http.MethodPost, "/auth/login", body, &pair, false); err != nil {
		return api.TokenPair{}, err
	}
	if c.tokens != nil {
		c.tokens.SetTokens(pair)
	}
	return pair, nil
}

// Refresh forces a token refresh outside the automatic 401 path, for
// long-lived processes that rotate proactively.
func (c *Client) Refresh(ctx context.Context) error {
	return c.refresh(ctx)
}

// DependencyGraph fetches the module graph for a repository.
func (c *Client) DependencyGraph(ctx context.Context, repoID uuid.UUID) (api.DependencyGraph, error) {
	var g api.DependencyGraph
	err := c.do(ctx, c.http, http.MethodGet, "/architecture/dependencies/"+repoID.String(), nil, &g, true)
	return g, err
}

// Analyze triggers a fresh backend analysis and returns the resulting
// graph. This is the long-running call.
func (c *Client) Analyze(ctx context.Context, repoID uuid.UUID) (api.DependencyGraph, error) {
	var g api.DependencyGraph
	err := c.do(ctx, c.analyze, http.MethodPost, "/architecture/analyze/"+repoID.String(), nil, &g, true)
	return g, err
}

// Compliance fetches the aggregate rule-compliance status.
func (c *Client) Compliance(ctx context.Context, repoID uuid.UUID) (api.ComplianceStatus, error) {
	var s api.ComplianceStatus
	err := c.do(ctx, c.http, http.MethodGet, "/architecture/compliance/"+repoID.String(), nil, &s, true)
	return s, err
}

// Drift fetches the architecture drift report.
func (c *Client) Drift(ctx context.Context, repoID uuid.UUID) (api.DriftReport, error) {
	var d api.DriftReport
	err := c.do(ctx, c.http, http.MethodGet, "/architecture/drift/"+repoID.String(), nil, &d, true)
	return d, err
}

// Validate runs the given rules (or all enabled rules) against a
// repository.
func (c *Client) Validate(ctx context.Context, req api.ValidateRequest) (api.ValidateResponse, error) {
	var resp api.ValidateResponse
	err := c.do(ctx, c.http, http.MethodPost, "/architecture/validate", req, &resp, true)
	return resp, err
}

// RuleFilter narrows ListRules. Zero values are omitted from the query.
type RuleFilter struct {
	OrganizationID uuid.UUID
	RuleType       string
	Enabled        *bool
	Page           int
	PageSize       int
}

// ListRules fetches one page of architecture rules.
func (c *Client) ListRules(ctx context.Context, filter RuleFilter) (api.Page[api.Rule], error) {
	q := url.Values{}
	if filter.OrganizationID != uuid.Nil {
		q.Set("organization_id", filter.OrganizationID.String())
	}
	if filter.RuleType != "" {
		q.Set("rule_type", filter.RuleType)
	}
	if filter.Enabled != nil {
		q.Set("enabled", strconv.FormatBool(*filter.Enabled))
	}
	if filter.Page > 0 {
		q.Set("page", strconv.Itoa(filter.Page))
	}
	if filter.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(filter.PageSize))
	}
	path := "/architecture/rules"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page api.Page[api.Rule]
	err := c.do(ctx, c.http, http.MethodGet, path, nil, &page, true)
	return page, err
}

// CreateRule registers a new architecture rule.
func (c *Client) CreateRule(ctx context.Context, rule api.RuleCreate) (api.Rule, error) {
	var created api.Rule
	err := c.do(ctx, c.http, http.MethodPost, "/architecture/rules", rule, &created, true)
	return created, err
}

// GetRule fetches a single rule.
func (c *Client) GetRule(ctx context.Context, ruleID uuid.UUID) (api.Rule, error) {
	var rule api.Rule
	err := c.do(ctx, c.http, http.MethodGet, "/architecture/rules/"+ruleID.String(), nil, &rule, true)
	return rule, err
}

// UpdateRule applies a partial update to a rule.
func (c *Client) UpdateRule(ctx context.Context, ruleID uuid.UUID, update api.RuleUpdate) (api.Rule, error) {
	var rule api.Rule
	err := c.do(ctx, c.http, http.MethodPatch, "/architecture/rules/"+ruleID.String(), update, &rule, true)
	return rule, err
}

// DeleteRule removes a rule.
func (c *Client) DeleteRule(ctx context.Context, ruleID uuid.UUID) (api.Message, error) {
	var msg api.Message
	err := c.do(ctx, c.http, http.MethodDelete, "/architecture/rules/"+ruleID.String(), nil, &msg, true)
	return msg, err
}

// do issues one request, decoding the JSON response into out (which may be
// nil). When authed, a 401 triggers a single refresh-and-replay.
func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, body, out any, authed bool) error {
	resp, err := c.send(ctx, hc, method, path, body, authed)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && authed {
		drain(resp)
		if err := c.refresh(ctx); err != nil {
			return ErrUnauthorized
		}
		resp, err = c.send(ctx, hc, method, path, body, authed)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			return ErrUnauthorized
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, body any, authed bool) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed && c.tokens != nil {
		if token := c.tokens.Tokens().AccessToken; token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// refresh exchanges the refresh token for a new pair. It is the only
// automatic recovery the client performs.
func (c *Client) refresh(ctx context.Context) error {
	if c.tokens == nil {
		return errors.New("no token source")
	}
	current := c.tokens.Tokens()
	if current.RefreshToken == "" {
		return errors.New("no refresh token")
	}

	body := map[string]string{"refresh_token": current.RefreshToken}
	var pair api.TokenPair
	if err := c.do(ctx, c.http, http.MethodPost, "/auth/refresh", body, &pair, false); err != nil {
		return fmt.Errorf("refresh token: %w", err)
	}
	c.tokens.SetTokens(pair)
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Detail == "" {
		payload.Detail = string(raw)
	}
	return &APIError{Status: resp.StatusCode, Detail: payload.Detail}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
