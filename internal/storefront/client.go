package storefront

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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultBaseURL = "http://localhost:5000/api"

// APIError surfaces non-successful HTTP responses from the backend.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("storefront api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ErrOrderNotFound marks a miss on an order lookup.
var ErrOrderNotFound = errors.New("order not found")

// Client is a typed HTTP client for the storefront REST backend. It holds
// no business logic: every method is a thin request/response wrapper.
type Client struct {
	httpClient *http.Client
	baseURL    string
	session    Session
}

// NewClient constructs a client for the given API base. A nil httpClient
// gets a traced default with a request timeout.
func NewClient(baseURL string, session Session, httpClient *http.Client) *Client {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if session == nil {
		session = AnonymousSession{}
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{httpClient: httpClient, baseURL: baseURL, session: session}
}

// Session returns the session the client authenticates with.
func (c *Client) Session() Session { return c.session }

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(payload); err != nil {
			return 0, nil, err
		}
		body = buf
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return 0, nil, err
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, err
	}

	if resp.StatusCode >= 400 {
		return resp.StatusCode, data, &APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	return resp.StatusCode, data, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	_, body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	_, body, err := c.doRequest(ctx, http.MethodPost, path, nil, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// Login exchanges credentials for a token and account.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	var auth AuthResponse
	if err := c.postJSON(ctx, "/auth/login", map[string]string{"email": email, "password": password}, &auth); err != nil {
		return nil, err
	}
	if auth.Token == "" {
		return nil, errors.New("login response missing token")
	}
	return &auth, nil
}

// Register creates an account with the given role (customer or seller).
func (c *Client) Register(ctx context.Context, name, email, password, role string) (*AuthResponse, error) {
	if email == "" || password == "" {
		return nil, errors.New("email and password are required")
	}
	payload := map[string]string{"name": name, "email": email, "password": password, "role": role}
	var auth AuthResponse
	if err := c.postJSON(ctx, "/auth/register", payload, &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}
