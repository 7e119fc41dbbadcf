// Package client is the Go client library for the Folio API. It keeps the
// session cookies issued at login, replays the CSRF cookie as a header on
// unsafe methods, and decodes the uniform {error} envelope into APIError.
package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/folio-dev/folio/internal/auth"
	"github.com/folio-dev/folio/pkg/schema"
)

// APIError is any non-2xx response from the server. The message comes from
// the uniform error envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Client talks to one Folio server.
type Client struct {
	baseURL string
	http    *http.Client
	bearer  string
}

// New creates a client for the server at baseURL. When FOLIO_INSECURE_TLS is
// "true", certificate verification is skipped; the server's development TLS
// mode uses a self-signed certificate.
func New(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport
	if os.Getenv("FOLIO_INSECURE_TLS") == "true" {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:       jar,
			Timeout:   30 * time.Second,
			Transport: transport,
		},
	}, nil
}

// SetBearerToken switches the client to Authorization-header auth instead of
// the session cookie. Bearer requests are exempt from the CSRF pair.
func (c *Client) SetBearerToken(token string) { c.bearer = token }

// Register creates a new account. The server always assigns the "user" role.
func (c *Client) Register(ctx context.Context, username, email, password string) (schema.User, error) {
	var resp schema.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register",
		schema.Credentials{Username: username, Email: email, Password: password}, &resp)
	return resp.User, err
}

// Login establishes the cookie session.
func (c *Client) Login(ctx context.Context, username, password string) (schema.User, error) {
	var resp schema.AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login",
		schema.Credentials{Username: username, Password: password}, &resp)
	return resp.User, err
}

// Logout drops the session on both sides.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (schema.User, error) {
	var user schema.User
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &user)
	return user, err
}

// Resource scopes the client to one entity family, e.g. "projects".
func (c *Client) Resource(path string) *Resource {
	return &Resource{client: c, path: "/api/" + strings.Trim(path, "/")}
}

// Resource is the per-entity API binding consumed by the CRUD panel.
type Resource struct {
	client *Client
	path   string
}

// List fetches the whole collection. Paginated resources answer with
// {items, pagination}; plain ones with a bare array. Both are accepted.
func (r *Resource) List(ctx context.Context) ([]schema.Record, error) {
	var raw json.RawMessage
	if err := r.client.do(ctx, http.MethodGet, r.path, nil, &raw); err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var records []schema.Record
		err := json.Unmarshal(trimmed, &records)
		return records, err
	}

	var page schema.Page
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, err
	}
	return page.Items, nil
}

// ListPage fetches one server-side page of a paginated resource.
func (r *Resource) ListPage(ctx context.Context, page, limit int) (schema.Page, error) {
	var out schema.Page
	path := fmt.Sprintf("%s?page=%d&limit=%d", r.path, page, limit)
	err := r.client.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

// Get fetches one record by ID.
func (r *Resource) Get(ctx context.Context, id string) (schema.Record, error) {
	var rec schema.Record
	err := r.client.do(ctx, http.MethodGet, r.path+"/"+url.PathEscape(id), nil, &rec)
	return rec, err
}

// Create persists a new record and returns it with its assigned ID.
func (r *Resource) Create(ctx context.Context, fields map[string]any) (schema.Record, error) {
	var rec schema.Record
	err := r.client.do(ctx, http.MethodPost, r.path, fields, &rec)
	return rec, err
}

// Update applies fields to an existing record. The server only overwrites
// fields that are present and non-empty.
func (r *Resource) Update(ctx context.Context, id string, fields map[string]any) (schema.Record, error) {
	var rec schema.Record
	err := r.client.do(ctx, http.MethodPut, r.path+"/"+url.PathEscape(id), fields, &rec)
	return rec, err
}

// Delete removes one record and returns its last snapshot.
func (r *Resource) Delete(ctx context.Context, id string) (schema.Record, error) {
	var rec schema.Record
	err := r.client.do(ctx, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, &rec)
	return rec, err
}

// DeleteAll purges the collection. The server only honors this in
// development mode.
func (r *Resource) DeleteAll(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := r.client.do(ctx, http.MethodDelete, r.path, nil, &out)
	return out.Message, err
}

// do performs one request/response cycle. out may be nil when the caller
// discards the body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.bearer != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearer)
	} else if method != http.MethodGet && method != http.MethodHead {
		if csrf := c.csrfToken(); csrf != "" {
			req.Header.Set(auth.CSRFHeader, csrf)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		var envelope schema.ErrorResponse
		if json.Unmarshal(payload, &envelope) == nil && envelope.Error != "" {
			return &APIError{Status: resp.StatusCode, Message: envelope.Error}
		}
		return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(payload, out)
}

// csrfToken reads the double-submit cookie captured at login.
func (c *Client) csrfToken() string {
	return c.cookieValue(auth.CSRFCookie)
}

// SessionToken returns the session JWT captured at login, or "". It can be
// replayed later via SetBearerToken, e.g. by a CLI across invocations.
func (c *Client) SessionToken() string {
	return c.cookieValue(auth.TokenCookie)
}

func (c *Client) cookieValue(name string) string {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	for _, cookie := range c.http.Jar.Cookies(base) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}
