package backend

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
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/thetruth/truthterm/domain"
	"github.com/thetruth/truthterm/infra/auth"
)

// Client is a thin HTTP wrapper for the hosted REST, storage and function
// endpoints. It handles URL construction, API key and bearer token
// injection, request pacing and error decoding.
type Client struct {
	baseURL       string
	apiKey        string
	tokenProvider auth.TokenProvider
	http          *http.Client
	limiter       *rate.Limiter
	log           *zap.Logger
}

// NewClient creates an API client. rps bounds outgoing requests per second.
func NewClient(baseURL, apiKey string, tp auth.TokenProvider, rps float64, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		apiKey:        apiKey,
		tokenProvider: tp,
		http:          &http.Client{Timeout: 30 * time.Second},
		limiter:       rate.NewLimiter(rate.Limit(rps), burst),
		log:           log,
	}
}

// BaseURL returns the project URL the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// APIKey returns the public API key.
func (c *Client) APIKey() string { return c.apiKey }

// Select reads rows of table into out, which must be a pointer to a slice.
func (c *Client) Select(ctx context.Context, table string, q Query, out any) error {
	data, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/" + table,
		query:  q.values(),
	})
	if err != nil {
		return fmt.Errorf("selecting %s: %w", table, err)
	}
	return decode(data, out, table)
}

// Count returns the number of rows of table matching filters without
// reading them.
func (c *Client) Count(ctx context.Context, table string, filters []Filter) (int, error) {
	_, header, err := c.roundTrip(ctx, request{
		method: http.MethodHead,
		path:   "/rest/v1/" + table,
		query:  Query{Select: "*", Filters: filters}.values(),
		prefer: "count=exact",
	})
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	n, ok := parseContentRangeTotal(header.Get("Content-Range"))
	if !ok {
		return 0, fmt.Errorf("counting %s: missing total in %q", table, header.Get("Content-Range"))
	}
	return n, nil
}

// parseContentRangeTotal reads the total of a "0-9/42" or "*/0" range.
func parseContentRangeTotal(v string) (int, bool) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(v[i+1:])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Insert creates a row. When out is non-nil the created rows are decoded
// into it.
func (c *Client) Insert(ctx context.Context, table string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s insert: %w", table, err)
	}
	data, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/rest/v1/" + table,
		body:        bytes.NewReader(body),
		contentType: "application/json",
		prefer:      preferFor(out),
	})
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", table, err)
	}
	return decode(data, out, table)
}

// Update patches the rows matching filters.
func (c *Client) Update(ctx context.Context, table string, filters []Filter, payload any, out any) error {
	if len(filters) == 0 {
		return fmt.Errorf("updating %s: refusing unfiltered update", table)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s update: %w", table, err)
	}
	data, err := c.do(ctx, request{
		method:      http.MethodPatch,
		path:        "/rest/v1/" + table,
		query:       Query{Filters: filters}.values(),
		body:        bytes.NewReader(body),
		contentType: "application/json",
		prefer:      preferFor(out),
	})
	if err != nil {
		return fmt.Errorf("updating %s: %w", table, err)
	}
	return decode(data, out, table)
}

// Delete removes the rows matching filters. Deleting nothing is not an error.
func (c *Client) Delete(ctx context.Context, table string, filters []Filter) error {
	if len(filters) == 0 {
		return fmt.Errorf("deleting from %s: refusing unfiltered delete", table)
	}
	_, err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/rest/v1/" + table,
		query:  Query{Filters: filters}.values(),
	})
	if err != nil {
		return fmt.Errorf("deleting from %s: %w", table, err)
	}
	return nil
}

// Invoke calls an edge function with a JSON body.
func (c *Client) Invoke(ctx context.Context, function string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", function, err)
	}
	data, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/functions/v1/" + function,
		body:        bytes.NewReader(body),
		contentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("invoking %s: %w", function, err)
	}
	return decode(data, out, function)
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	length      int64
	contentType string
	prefer      string
	header      http.Header
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	data, _, err := c.roundTrip(ctx, r)
	return data, err
}

func (c *Client) roundTrip(ctx context.Context, r request) ([]byte, http.Header, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, fmt.Errorf("waiting for request slot: %w", err)
	}

	token, err := c.tokenProvider.AccessToken()
	if err != nil {
		return nil, nil, fmt.Errorf("auth: %w", err)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, r.body)
	if err != nil {
		return nil, nil, fmt.Errorf("creating request: %w", err)
	}
	if r.length > 0 {
		req.ContentLength = r.length
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.prefer != "" {
		req.Header.Set("Prefer", r.prefer)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request to %s: %w", r.path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("reading response: %w", err)
	}

	c.log.Debug("backend request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, decodeError(resp.StatusCode, data)
	}
	return data, resp.Header, nil
}

func decodeError(status int, data []byte) error {
	be := &domain.BackendError{Status: status}
	// A numeric "code" fails to decode but leaves the message set.
	_ = json.Unmarshal(data, be)
	if be.Message == "" {
		// Storage and gateway errors use other shapes; keep the raw text.
		var alt struct {
			Error string `json:"error"`
			Msg   string `json:"msg"`
		}
		_ = json.Unmarshal(data, &alt)
		switch {
		case alt.Msg != "":
			be.Message = alt.Msg
		case alt.Error != "":
			be.Message = alt.Error
		default:
			be.Message = strings.TrimSpace(string(data))
		}
	}
	be.Status = status
	return be
}

func decode(data []byte, out any, what string) error {
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing %s response: %w", what, err)
	}
	return nil
}

func preferFor(out any) string {
	if out == nil {
		return "return=minimal"
	}
	return "return=representation"
}
