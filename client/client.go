package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// DefaultBaseURL points at a locally running API process.
const DefaultBaseURL = "http://localhost:8000/api"

// BaseURLFromEnv returns KAMPUS_API_URL when set, the local default otherwise.
func BaseURLFromEnv() string {
	if v := os.Getenv("KAMPUS_API_URL"); v != "" {
		return v
	}
	return DefaultBaseURL
}

// Client calls the admin dashboard API over HTTP.
type Client struct {
	client *http.Client
	base   string
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = BaseURLFromEnv()
	}
	return &Client{
		client: &http.Client{Timeout: 30 * time.Second},
		base:   strings.TrimRight(baseURL, "/"),
	}
}

// LoginResult is the success payload of POST /login.
type LoginResult struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	User        json.RawMessage `json:"user"`
}

// apiError is the error payload shape; detail takes precedence over message.
type apiError struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// Login exchanges credentials for a bearer token. The email is sent as the
// form field "username". Failures come back as *LoginError with the branch
// already classified.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/login", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &LoginError{
			Kind:    ClientFault,
			Message: firstNonEmpty(err.Error(), DefaultFailureMessage),
			Err:     err,
		}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &LoginError{Kind: Unreachable, Message: UnreachableMessage, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body apiError
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, &LoginError{
			Kind:    ServerRejected,
			Message: firstNonEmpty(body.Detail, body.Message, DefaultFailureMessage),
		}
	}

	var result LoginResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &LoginError{Kind: MalformedSuccess, Message: BadResponseMessage, Err: err}
	}
	if result.AccessToken == "" || !hasUserObject(result.User) {
		return nil, &LoginError{Kind: MalformedSuccess, Message: BadResponseMessage}
	}
	return &result, nil
}

// hasUserObject reports whether the user field holds an actual value.
func hasUserObject(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

// HealthStatus is the payload of GET /health.
type HealthStatus struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	UserCount int64  `json:"user_count"`
	Error     string `json:"error,omitempty"`
}

// Health checks the API health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/health", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var st HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, err
	}
	return &st, nil
}

// Me fetches the authenticated user's own record using a stored token.
func (c *Client) Me(ctx context.Context, token string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/me", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body apiError
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return nil, fmt.Errorf("me returned status %d: %s", resp.StatusCode, firstNonEmpty(body.Detail, body.Message))
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
