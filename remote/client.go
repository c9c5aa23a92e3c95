package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-crm-sync/core"
	goerrors "github.com/goliatone/go-errors"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SessionProvider supplies the bearer credential for remote calls.
// Authorized reports whether a usable session exists without forcing a
// token mint.
type SessionProvider interface {
	AccessToken(ctx context.Context) (string, error)
	Authorized(ctx context.Context) bool
}

// StaticSession is a fixed-token session, useful for tests and for
// deployments that manage the credential out of band.
type StaticSession struct {
	Token string
}

func (s StaticSession) AccessToken(context.Context) (string, error) {
	return s.Token, nil
}

func (s StaticSession) Authorized(context.Context) bool {
	return strings.TrimSpace(s.Token) != ""
}

// Client is a REST client for a Salesforce-style sobjects API. Protocol
// failures come back inside the response; only transport faults and bad
// input are errors.
type Client struct {
	BaseURL              string
	Client               HTTPDoer
	Session              SessionProvider
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewClient(baseURL string, session SessionProvider, httpClient HTTPDoer) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultClientTimeout}
	}
	return &Client{
		BaseURL:              strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Client:               httpClient,
		Session:              session,
		DefaultHeaders:       map[string]string{},
		MaxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

func (c *Client) IsAuthorized(ctx context.Context) bool {
	return c != nil && c.Session != nil && c.Session.Authorized(ctx)
}

func (c *Client) Create(ctx context.Context, objectType string, fields map[string]any) (core.RemoteResponse, error) {
	return c.do(ctx, http.MethodPost, c.objectPath(objectType), fields, false)
}

func (c *Client) Update(ctx context.Context, objectType string, remoteID string, fields map[string]any) (core.RemoteResponse, error) {
	return c.do(ctx, http.MethodPatch, c.recordPath(objectType, remoteID), fields, false)
}

// Upsert patches by external id. keyValue arrives already percent-encoded
// and is joined into the path as is.
func (c *Client) Upsert(ctx context.Context, objectType string, keyField string, keyValue string, fields map[string]any) (core.RemoteResponse, error) {
	return c.do(ctx, http.MethodPatch, c.externalIDPath(objectType, keyField, keyValue), fields, false)
}

func (c *Client) Delete(ctx context.Context, objectType string, remoteID string) (core.RemoteResponse, error) {
	return c.do(ctx, http.MethodDelete, c.recordPath(objectType, remoteID), nil, false)
}

func (c *Client) Read(ctx context.Context, objectType string, remoteID string, opts core.ReadOptions) (core.RemoteResponse, error) {
	return c.do(ctx, http.MethodGet, c.recordPath(objectType, remoteID), nil, opts.NoCache)
}

func (c *Client) ReadByExternalID(ctx context.Context, objectType string, keyField string, keyValue string, opts core.ReadOptions) (core.RemoteResponse, error) {
	return c.do(ctx, http.MethodGet, c.externalIDPath(objectType, keyField, keyValue), nil, opts.NoCache)
}

func (c *Client) objectPath(objectType string) string {
	return "/sobjects/" + url.PathEscape(strings.TrimSpace(objectType))
}

func (c *Client) recordPath(objectType string, remoteID string) string {
	return c.objectPath(objectType) + "/" + url.PathEscape(strings.TrimSpace(remoteID))
}

func (c *Client) externalIDPath(objectType string, keyField string, keyValue string) string {
	return c.objectPath(objectType) + "/" + url.PathEscape(strings.TrimSpace(keyField)) + "/" + strings.TrimSpace(keyValue)
}

func (c *Client) do(ctx context.Context, method string, path string, payload map[string]any, noCache bool) (core.RemoteResponse, error) {
	if c == nil || c.Client == nil {
		return core.RemoteResponse{}, remoteError(
			"remote: client requires an http transport",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(c.BaseURL) == "" {
		return core.RemoteResponse{}, remoteError(
			"remote: base url is required",
			goerrors.CategoryBadInput,
			http.StatusBadRequest,
			nil,
		)
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return core.RemoteResponse{}, remoteWrapError(
				err,
				goerrors.CategoryBadInput,
				"remote: encode request payload",
				http.StatusBadRequest,
				map[string]any{"method": method, "path": path},
			)
		}
		body = bytes.NewReader(encoded)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return core.RemoteResponse{}, remoteWrapError(
			err,
			goerrors.CategoryBadInput,
			"remote: create http request",
			http.StatusBadRequest,
			map[string]any{"method": method, "path": path},
		)
	}
	for key, value := range c.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set("Accept", "application/json")
	if noCache {
		httpReq.Header.Set("Cache-Control", "no-cache")
	}
	if c.Session != nil {
		token, err := c.Session.AccessToken(ctx)
		if err != nil {
			return core.RemoteResponse{}, remoteWrapError(
				err,
				goerrors.CategoryAuth,
				"remote: resolve access token",
				http.StatusUnauthorized,
				map[string]any{"method": method, "path": path},
			)
		}
		if strings.TrimSpace(token) != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	httpRes, err := c.Client.Do(httpReq)
	if err != nil {
		return core.RemoteResponse{}, remoteWrapError(
			err,
			goerrors.CategoryExternal,
			"remote: execute http request",
			http.StatusBadGateway,
			map[string]any{"method": method, "path": path},
		)
	}
	defer httpRes.Body.Close()

	limit := c.MaxResponseBodyBytes
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	raw, err := io.ReadAll(io.LimitReader(httpRes.Body, limit+1))
	if err != nil {
		return core.RemoteResponse{}, remoteWrapError(
			err,
			goerrors.CategoryExternal,
			"remote: read response body",
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode},
		)
	}
	if int64(len(raw)) > limit {
		return core.RemoteResponse{}, remoteError(
			"remote: response body exceeds limit",
			goerrors.CategoryExternal,
			http.StatusBadGateway,
			map[string]any{"status_code": httpRes.StatusCode, "response_limit_b": limit},
		)
	}

	return decodeResponse(httpRes.StatusCode, raw), nil
}

// decodeResponse maps the wire payload into a RemoteResponse. Success
// bodies are a JSON object; error bodies are a JSON array of
// {message, errorCode} entries, of which the first one wins.
func decodeResponse(statusCode int, raw []byte) core.RemoteResponse {
	response := core.RemoteResponse{StatusCode: statusCode}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return response
	}

	switch raw[0] {
	case '{':
		data := map[string]any{}
		if err := json.Unmarshal(raw, &data); err == nil {
			response.Data = data
		}
	case '[':
		var entries []struct {
			Message   string `json:"message"`
			ErrorCode string `json:"errorCode"`
		}
		if err := json.Unmarshal(raw, &entries); err == nil && len(entries) > 0 {
			response.ErrorCode = strings.TrimSpace(entries[0].ErrorCode)
			response.Message = strings.TrimSpace(entries[0].Message)
		}
	}
	return response
}

var _ core.RemoteAPI = (*Client)(nil)
