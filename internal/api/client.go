// Package api is the HTTP client for the remote content API.
//
// Every response is wrapped in a {success, message, data} envelope. Read
// methods come in two flavours: the *Raw variants return the undecoded data
// payload so callers can cache it verbatim, the others decode into out.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foysalahmedmin/mehdihasanrafi-portfolio-website-sub000/internal/content"
)

// Error is a non-2xx response from the API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) &&
		(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Account is the signed-in user as reported by the API.
type Account struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type SignInResult struct {
	Token string  `json:"token"`
	User  Account `json:"user"`
}

type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url scheme must be http or https, got %q", u.Scheme)
	}
	return &Client{base: u, http: &http.Client{Timeout: timeout}}, nil
}

// WithToken returns a copy of the client that forwards token as a bearer
// credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) endpoint(parts ...string) string {
	u := *c.base
	raw := strings.TrimRight(u.EscapedPath(), "/")
	for _, p := range parts {
		raw += "/" + url.PathEscape(p)
	}
	if unescaped, err := url.PathUnescape(raw); err == nil {
		u.Path = unescaped
		u.RawPath = raw
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, contentType string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := env.Message
		if decodeErr != nil {
			msg = strings.TrimSpace(string(raw))
			if len(msg) > 200 {
				msg = msg[:200]
			}
		}
		return nil, &Error{Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decoding response: %w", decodeErr)
	}
	if !env.Success && env.Message != "" && len(env.Data) == 0 {
		return nil, &Error{Status: resp.StatusCode, Message: env.Message}
	}
	return env.Data, nil
}

func decode(data json.RawMessage, out any) error {
	if out == nil {
		return nil
	}
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding data: %w", err)
	}
	return nil
}

// ListRaw fetches a whole collection.
func (c *Client) ListRaw(ctx context.Context, kind content.Kind) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.endpoint(kind.Path()), nil, "")
}

func (c *Client) List(ctx context.Context, kind content.Kind, out any) error {
	data, err := c.ListRaw(ctx, kind)
	if err != nil {
		return err
	}
	return decode(data, out)
}

// GetRaw fetches a single item by slug.
func (c *Client) GetRaw(ctx context.Context, kind content.Kind, slug string) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, c.endpoint(kind.Path(), slug), nil, "")
}

func (c *Client) Get(ctx context.Context, kind content.Kind, slug string, out any) error {
	data, err := c.GetRaw(ctx, kind, slug)
	if err != nil {
		return err
	}
	return decode(data, out)
}

func (c *Client) Create(ctx context.Context, kind content.Kind, form *Form) (json.RawMessage, error) {
	body, ct, err := form.Encode()
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPost, c.endpoint(kind.Path()), body, ct)
}

func (c *Client) Update(ctx context.Context, kind content.Kind, id string, form *Form) (json.RawMessage, error) {
	body, ct, err := form.Encode()
	if err != nil {
		return nil, err
	}
	return c.do(ctx, http.MethodPatch, c.endpoint(kind.Path(), id), body, ct)
}

func (c *Client) Delete(ctx context.Context, kind content.Kind, id string) error {
	_, err := c.do(ctx, http.MethodDelete, c.endpoint(kind.Path(), id), nil, "")
	return err
}

func (c *Client) postJSON(ctx context.Context, endpoint string, payload any) (json.RawMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(b), "application/json")
}

func (c *Client) SignIn(ctx context.Context, email, password string) (SignInResult, error) {
	var res SignInResult
	data, err := c.postJSON(ctx, c.endpoint("auth", "signin"), map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return res, err
	}
	if err := decode(data, &res); err != nil {
		return res, err
	}
	if res.Token == "" {
		return res, fmt.Errorf("sign in: response carried no token")
	}
	return res, nil
}

// Self resolves the account that owns token.
func (c *Client) Self(ctx context.Context, token string) (Account, error) {
	var acct Account
	data, err := c.WithToken(token).do(ctx, http.MethodGet, c.endpoint("users", "self"), nil, "")
	if err != nil {
		return acct, err
	}
	err = decode(data, &acct)
	return acct, err
}

func (c *Client) SendContact(ctx context.Context, msg ContactMessage) error {
	_, err := c.postJSON(ctx, c.endpoint("contact"), msg)
	return err
}
