package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/cwarden/termin/internal/calendar"
	"github.com/cwarden/termin/internal/log"
)

// DefaultBaseURL is where the calendar service listens by default.
const DefaultBaseURL = "http://localhost:8080/api/calendar"

// maxDetail caps how much of an error body is kept.
const maxDetail = 4 << 10

// Client talks to the calendar service REST API. Calls are never retried.
type Client struct {
	base string
	http *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.http
		hc.Timeout = d
		c.http = &hc
	}
}

// New returns a client for the service rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("backend url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base: strings.TrimRight(u.String(), "/"),
		http: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalised service root.
func (c *Client) BaseURL() string {
	return c.base
}

var _ calendar.Gateway = (*Client)(nil)

func (c *Client) LoadEntries(ctx context.Context) ([]calendar.Entry, error) {
	const op = "load entries"
	body, err := c.do(ctx, op, LoadFailure, http.MethodGet, "/entries", "", nil)
	if err != nil {
		return nil, err
	}
	var entries []calendar.Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &Error{Op: op, Kind: LoadFailure, Err: fmt.Errorf("decode entries: %w", err)}
	}
	return entries, nil
}

func (c *Client) CreateEntry(ctx context.Context, e calendar.Entry) error {
	return c.sendJSON(ctx, "create entry", MutationFailure, http.MethodPost, "/entries", e)
}

func (c *Client) UpdateEntry(ctx context.Context, t calendar.Target, e calendar.Entry) error {
	return c.sendJSON(ctx, "update entry "+t.PathSegment(), MutationFailure, http.MethodPut, entryPath(t), e)
}

func (c *Client) DeleteEntry(ctx context.Context, t calendar.Target) error {
	_, err := c.do(ctx, "delete entry "+t.PathSegment(), MutationFailure, http.MethodDelete, entryPath(t), "", nil)
	return err
}

// ImportFile uploads r as the multipart field "file" and returns the
// service's message verbatim.
func (c *Client) ImportFile(ctx context.Context, name string, r io.Reader) (string, error) {
	const op = "import"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return "", &Error{Op: op, Kind: MutationFailure, Err: err}
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", &Error{Op: op, Kind: MutationFailure, Err: fmt.Errorf("read %s: %w", name, err)}
	}
	if err := mw.Close(); err != nil {
		return "", &Error{Op: op, Kind: MutationFailure, Err: err}
	}

	body, err := c.do(ctx, op, MutationFailure, http.MethodPost, "/import", mw.FormDataContentType(), &buf)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ExportCalendar downloads the service's calendar file.
func (c *Client) ExportCalendar(ctx context.Context) ([]byte, error) {
	return c.do(ctx, "export", MutationFailure, http.MethodGet, "/export", "", nil)
}

func (c *Client) GetConfig(ctx context.Context) (calendar.RemoteConfig, error) {
	const op = "get config"
	var cfg calendar.RemoteConfig
	body, err := c.do(ctx, op, ConfigSyncFailure, http.MethodGet, "/config", "", nil)
	if err != nil {
		return cfg, err
	}
	if err := json.Unmarshal(body, &cfg); err != nil {
		return cfg, &Error{Op: op, Kind: ConfigSyncFailure, Err: fmt.Errorf("decode config: %w", err)}
	}
	return cfg, nil
}

func (c *Client) SetConfig(ctx context.Context, cfg calendar.RemoteConfig) error {
	return c.sendJSON(ctx, "set config", ConfigSyncFailure, http.MethodPost, "/config", cfg)
}

func entryPath(t calendar.Target) string {
	return "/entries/" + url.PathEscape(t.PathSegment())
}

func (c *Client) sendJSON(ctx context.Context, op string, kind Kind, method, path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &Error{Op: op, Kind: kind, Err: err}
	}
	_, err = c.do(ctx, op, kind, method, path, "application/json", bytes.NewReader(data))
	return err
}

// do performs one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, op string, kind Kind, method, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, &Error{Op: op, Kind: kind, Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	log.Debug("backend request", "op", op, "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, Kind: kind, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxDetail))
		return nil, &Error{
			Op:     op,
			Kind:   kind,
			Status: resp.StatusCode,
			Detail: strings.TrimSpace(string(detail)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, Kind: kind, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}
