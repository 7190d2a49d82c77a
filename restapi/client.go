// Package restapi is the HTTP client for the grant-listing and favorites
// endpoints of the grants backend.
package restapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/pagination"
	"github.com/segmentio/ksuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	grantsPath    = "grants"
	favoritesPath = "grants/favorites"

	// RequestIDHeader carries a per-request id for backend log correlation.
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 4 << 10
)

// Client calls the grants REST backend. It implements grantsx.Lister and
// grantsx.FavoritesLister.
type Client struct {
	baseURL *url.URL
	http    *retryablehttp.Client
	token   string
	logger  *slog.Logger
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithRetryMax sets how many times a failed call is retried. The default is
// zero: a failed load is surfaced to the user, who retries by hand.
func WithRetryMax(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.http.RetryMax = n
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http.HTTPClient = hc
		}
	}
}

// WithLogger sets the logger for the client and its transport.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client for the backend rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, errors.Wrapf(err, "invalid API URL %q", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Newf("API URL %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	c := &Client{
		baseURL: u,
		http:    rc,
		logger:  slog.Default(),
		tracer:  otel.Tracer("grantsx-restapi"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http.Logger = c.logger
	return c, nil
}

type paginationInfo struct {
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}

type listResponse struct {
	Success    *bool           `json:"success"`
	Message    string          `json:"message"`
	Data       []grantsx.Grant `json:"data"`
	Pagination paginationInfo  `json:"pagination"`
}

type favoritesResponse struct {
	Success *bool             `json:"success"`
	Message string            `json:"message"`
	Data    []json.RawMessage `json:"data"`
}

// ListGrants fetches one page of grants for p.
func (c *Client) ListGrants(ctx context.Context, p grantsx.Params) (*grantsx.Page, error) {
	ctx, span := c.tracer.Start(ctx, "grants.list",
		trace.WithAttributes(
			attribute.Int("grants.page", p.Page),
			attribute.Int("grants.limit", p.Limit),
			attribute.String("grants.search", p.Search),
		),
	)
	defer span.End()

	var body listResponse
	if err := c.get(ctx, grantsPath, p.Values(), &body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list grants")
		return nil, grantsx.NewLoadError(p, err)
	}
	if body.Success != nil && !*body.Success {
		err := grantsx.NewLoadError(p, errors.Newf("backend reported failure: %s", messageOr(body.Message, "unknown error")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "backend reported failure")
		return nil, err
	}

	page := &grantsx.Page{
		Items:      body.Data,
		TotalItems: body.Pagination.TotalItems,
		TotalPages: reconcileTotalPages(p, body.Pagination),
	}
	if page.TotalPages != body.Pagination.TotalPages {
		c.logger.WarnContext(ctx, "backend page count disagrees with item count",
			"total_items", body.Pagination.TotalItems,
			"backend_total_pages", body.Pagination.TotalPages,
			"limit", p.Limit,
			"total_pages", page.TotalPages,
		)
	}
	span.SetAttributes(
		attribute.Int("grants.total_items", page.TotalItems),
		attribute.Int("grants.returned", len(page.Items)),
	)
	span.SetStatus(codes.Ok, "grants listed")
	return page, nil
}

// ListFavorites returns the ids of the user's saved grants. Entries may be
// plain ids or grant objects.
func (c *Client) ListFavorites(ctx context.Context) ([]string, error) {
	ctx, span := c.tracer.Start(ctx, "grants.favorites")
	defer span.End()

	var body favoritesResponse
	if err := c.get(ctx, favoritesPath, nil, &body); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list favorites")
		return nil, err
	}
	if body.Success != nil && !*body.Success {
		return nil, errors.Mark(
			errors.Newf("backend reported failure: %s", messageOr(body.Message, "unknown error")),
			grantsx.ErrLoadFailed)
	}

	ids := make([]string, 0, len(body.Data))
	for _, raw := range body.Data {
		var id string
		if err := json.Unmarshal(raw, &id); err == nil {
			ids = append(ids, id)
			continue
		}
		var g grantsx.Grant
		if err := json.Unmarshal(raw, &g); err != nil {
			c.logger.WarnContext(ctx, "skipping unreadable favorite", "error", err)
			continue
		}
		if g.ID != "" {
			ids = append(ids, g.ID)
		}
	}
	span.SetAttributes(attribute.Int("grants.favorites", len(ids)))
	span.SetStatus(codes.Ok, "favorites listed")
	return ids, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	reqID := ksuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, reqID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.DebugContext(ctx, "calling grants backend", "url", u.String(), "request_id", reqID)

	// With retries exhausted the passthrough handler returns the last
	// response alongside the retry policy's error; the status wins then.
	resp, err := c.http.Do(req)
	if resp == nil {
		if err == nil {
			err = errors.New("no response")
		}
		return transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "failed to decode response from %s", path)
	}
	return nil
}

func transportError(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return grantsx.ErrCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return grantsx.ErrTimeout
	default:
		return errors.WithSecondaryError(grantsx.ErrBackendUnavailable, err)
	}
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(data))
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		msg = body.Message
	}
	err := errors.Newf("unexpected status %d: %s", resp.StatusCode, messageOr(msg, http.StatusText(resp.StatusCode)))
	if resp.StatusCode >= 500 {
		return errors.Mark(err, grantsx.ErrBackendUnavailable)
	}
	return err
}

// reconcileTotalPages recomputes the page count from the item count and the
// requested limit instead of trusting the backend's figure.
func reconcileTotalPages(p grantsx.Params, info paginationInfo) int {
	if p.Limit <= 0 {
		if info.TotalPages < 1 {
			return 1
		}
		return info.TotalPages
	}
	return pagination.TotalPages(info.TotalItems, pagination.PageSize(p.Limit))
}

func messageOr(msg, fallback string) string {
	if msg = strings.TrimSpace(msg); msg != "" {
		return msg
	}
	return fallback
}

var (
	_ grantsx.Lister          = (*Client)(nil)
	_ grantsx.FavoritesLister = (*Client)(nil)
)

// String returns the backend base URL.
func (c *Client) String() string {
	return c.baseURL.String()
}
