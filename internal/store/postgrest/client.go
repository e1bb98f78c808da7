// Package postgrest implements store.Client against a Supabase/PostgREST
// endpoint (<base>/rest/v1/<table>).
package postgrest

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
	"strings"
	"time"

	"github.com/iliyamo/health-tracker/internal/store"
)

// Client talks to the REST interface of a hosted Postgres table service.
type Client struct {
	baseURL string
	apiKey  string
	schema  string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithSchema selects a non-default Postgres schema via the profile headers.
func WithSchema(schema string) Option { return func(c *Client) { c.schema = schema } }

// New builds a client for the project at baseURL authenticated by apiKey.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" || strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("postgrest: base url and api key are required")
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("postgrest: invalid base url %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/rest/v1",
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// apiError is the error body PostgREST returns.
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

const uniqueViolation = "23505"

func (c *Client) Insert(ctx context.Context, table string, row store.Row) (store.Row, error) {
	if err := store.CheckRequest("insert", table, nil, row, false); err != nil {
		return nil, err
	}
	rows, err := c.do(ctx, "insert", http.MethodPost, table, nil, []store.Row{row})
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, &store.Error{Op: "insert", Table: table, Message: fmt.Sprintf("expected 1 row, got %d", len(rows))}
	}
	return rows[0], nil
}

func (c *Client) Select(ctx context.Context, table string, q store.Query) ([]store.Row, error) {
	if err := store.CheckRequest("select", table, q.Filters, nil, false); err != nil {
		return nil, err
	}
	params := filterParams(q.Filters)
	params.Set("select", "*")
	if q.Order != nil {
		if !store.ValidIdent(q.Order.Column) {
			return nil, &store.Error{Op: "select", Table: table, Message: fmt.Sprintf("invalid column %q", q.Order.Column)}
		}
		dir := "asc"
		if q.Order.Descending {
			dir = "desc"
		}
		params.Set("order", q.Order.Column+"."+dir)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return c.do(ctx, "select", http.MethodGet, table, params, nil)
}

func (c *Client) Update(ctx context.Context, table string, filters []store.Filter, patch store.Row) ([]store.Row, error) {
	if err := store.CheckRequest("update", table, filters, patch, true); err != nil {
		return nil, err
	}
	return c.do(ctx, "update", http.MethodPatch, table, filterParams(filters), patch)
}

func (c *Client) Delete(ctx context.Context, table string, filters []store.Filter) ([]store.Row, error) {
	if err := store.CheckRequest("delete", table, filters, nil, true); err != nil {
		return nil, err
	}
	return c.do(ctx, "delete", http.MethodDelete, table, filterParams(filters), nil)
}

func filterParams(filters []store.Filter) url.Values {
	params := url.Values{}
	for _, f := range filters {
		if f.Value == nil {
			params.Add(f.Column, "is.null")
			continue
		}
		params.Add(f.Column, "eq."+formatValue(f.Value))
	}
	return params
}

func formatValue(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprint(v)
}

func (c *Client) do(ctx context.Context, op, method, table string, params url.Values, body any) ([]store.Row, error) {
	endpoint := c.baseURL + "/" + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &store.Error{Op: op, Table: table, Message: "encode body", Err: err}
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return nil, &store.Error{Op: op, Table: table, Message: "build request", Err: err}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.schema != "" {
		if method == http.MethodGet {
			req.Header.Set("Accept-Profile", c.schema)
		} else {
			req.Header.Set("Content-Profile", c.schema)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &store.Error{Op: op, Table: table, Message: err.Error(), Transient: true, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &store.Error{Op: op, Table: table, Status: resp.StatusCode, Message: "read body", Transient: true, Err: err}
	}

	if resp.StatusCode >= 300 {
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		msg := ae.Message
		if msg == "" {
			msg = strings.TrimSpace(string(raw))
		}
		if msg == "" {
			msg = resp.Status
		}
		return nil, &store.Error{
			Op:        op,
			Table:     table,
			Status:    resp.StatusCode,
			Code:      ae.Code,
			Message:   msg,
			Transient: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
			Conflict:  ae.Code == uniqueViolation || resp.StatusCode == http.StatusConflict,
		}
	}

	rows := []store.Row{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return rows, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&rows); err != nil {
		return nil, &store.Error{Op: op, Table: table, Status: resp.StatusCode, Message: "decode response", Err: err}
	}
	return rows, nil
}
