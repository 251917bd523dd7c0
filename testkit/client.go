package testkit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

// Application builds the service's HTTP handler on a database handle.
type Application interface {
	Handler(db *gorm.DB) http.Handler
}

// Client calls an Application in process. The application is built on
// the test's transaction, so requests see the test's rows and open no
// connection of their own.
type Client struct {
	handler http.Handler
	header  http.Header
}

// NewClient builds app on h.DB.
func NewClient(app Application, h *Handle) *Client {
	return &Client{handler: app.Handler(h.DB), header: http.Header{}}
}

// RequestOption modifies a request before it is sent.
type RequestOption func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

// SetHeader sets a header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// Response is a recorded HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// JSON decodes the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %d response %q: %w", r.Status, truncate(r.Body, 200), err)
	}
	return nil
}

// Get reads one value from a JSON body by gjson path, e.g. "0.name" or
// "error.code".
func (r *Response) Get(path string) gjson.Result {
	return gjson.GetBytes(r.Body, path)
}

func (r *Response) String() string {
	return fmt.Sprintf("%d %s", r.Status, truncate(r.Body, 500))
}

// Do sends a request. body may be nil, a []byte, a string, an io.Reader or
// any value encoded as JSON.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	reader, isJSON, err := encodeBody(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request %s %s: %w", method, path, err)
	}
	req.RequestURI = req.URL.RequestURI()
	for k, vs := range c.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if isJSON {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, req)
	return &Response{
		Status: rec.Code,
		Header: rec.Header().Clone(),
		Body:   rec.Body.Bytes(),
	}, nil
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts...)
}

func encodeBody(body any) (io.Reader, bool, error) {
	switch b := body.(type) {
	case nil:
		return nil, false, nil
	case []byte:
		return bytes.NewReader(b), true, nil
	case string:
		return bytes.NewReader([]byte(b)), true, nil
	case io.Reader:
		return b, false, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, false, fmt.Errorf("encode request body: %w", err)
	}
	return bytes.NewReader(data), true, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
