// Package gateway is the HTTP client for the app backend, which fronts
// the real OAuth exchange and proxies provider APIs. The client knows the
// HTTP contract only; token exchange internals live server-side.
package gateway

import (
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

	"github.com/fitproapp/fitlink/internal/identity"
	"github.com/fitproapp/fitlink/internal/metrics"
	"github.com/fitproapp/fitlink/internal/observability/logger"
	"github.com/fitproapp/fitlink/internal/provider"
)

const defaultTimeout = 10 * time.Second

// maxErrBody caps how much of an error response is kept for messages.
const maxErrBody = 512

// APIError is a non-2xx gateway response.
type APIError struct {
	Endpoint string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway %s: http %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("gateway %s: http %d", e.Endpoint, e.Status)
}

// Client talks to the backend gateway.
type Client struct {
	baseURL string
	tokens  identity.TokenSource
	http    *http.Client
}

// New creates a gateway client. A zero timeout uses the default.
func New(baseURL string, tokens identity.TokenSource, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: timeout},
	}
}

// Status reports whether the provider is linked for the current user.
func (c *Client) Status(ctx context.Context, p provider.Provider) (bool, error) {
	var out StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/"+p.PathPrefix+"/status", true, &out); err != nil {
		return false, err
	}
	return out.Connected, nil
}

// AuthLogin fetches a fresh authorization URL and CSRF state.
func (c *Client) AuthLogin(ctx context.Context, p provider.Provider) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.doJSON(ctx, http.MethodGet, "/"+p.PathPrefix+"/auth/login", true, &out); err != nil {
		return nil, err
	}
	if out.AuthURL == "" || out.State == "" {
		return nil, fmt.Errorf("gateway %s/auth/login: response missing auth_url or state", p.PathPrefix)
	}
	return &out, nil
}

// ExchangeCode forwards the authorization code to the backend, which
// performs the real token exchange. Unauthenticated per the contract:
// the state parameter ties the call to the session.
func (c *Client) ExchangeCode(ctx context.Context, p provider.Provider, code, state string) (*AuthResult, error) {
	path := "/" + p.PathPrefix + "/auth/callback?code=" + url.QueryEscape(code) + "&state=" + url.QueryEscape(state)
	endpoint := "/" + p.PathPrefix + "/auth/callback"

	body, status, err := c.do(ctx, http.MethodGet, path, endpoint, false)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, &APIError{Endpoint: endpoint, Status: status, Message: serverMessage(body)}
	}

	var res AuthResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("gateway %s: decode: %w", endpoint, err)
	}
	if res.UserInfo != nil {
		// keep the provider-shaped payload verbatim for local caching
		var shell struct {
			UserInfo json.RawMessage `json:"user_info"`
		}
		if json.Unmarshal(body, &shell) == nil {
			res.UserInfo.Raw = shell.UserInfo
		}
	}
	return &res, nil
}

// Disconnect unlinks the provider. Success is any 2xx.
func (c *Client) Disconnect(ctx context.Context, p provider.Provider) error {
	endpoint := "/" + p.PathPrefix + "/disconnect"
	body, status, err := c.do(ctx, http.MethodDelete, endpoint, endpoint, true)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return &APIError{Endpoint: endpoint, Status: status, Message: serverMessage(body)}
	}
	return nil
}

// Data endpoints. Responses are provider-shaped; callers get raw JSON.

func (c *Client) Profile(ctx context.Context, p provider.Provider) (json.RawMessage, error) {
	return c.getRaw(ctx, p, "profile")
}

func (c *Client) Recovery(ctx context.Context, p provider.Provider) (json.RawMessage, error) {
	return c.getRaw(ctx, p, "recovery")
}

func (c *Client) Workouts(ctx context.Context, p provider.Provider) (json.RawMessage, error) {
	return c.getRaw(ctx, p, "workouts")
}

func (c *Client) Playlist(ctx context.Context, p provider.Provider) (json.RawMessage, error) {
	return c.getRaw(ctx, p, "playlist")
}

func (c *Client) CurrentlyPlaying(ctx context.Context, p provider.Provider) (json.RawMessage, error) {
	return c.getRaw(ctx, p, "currently-playing")
}

func (c *Client) getRaw(ctx context.Context, p provider.Provider, what string) (json.RawMessage, error) {
	endpoint := "/" + p.PathPrefix + "/" + what
	body, status, err := c.do(ctx, http.MethodGet, endpoint, endpoint, true)
	if err != nil {
		return nil, err
	}
	if status/100 != 2 {
		return nil, &APIError{Endpoint: endpoint, Status: status, Message: serverMessage(body)}
	}
	return json.RawMessage(body), nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, auth bool, out any) error {
	body, status, err := c.do(ctx, method, path, path, auth)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		return &APIError{Endpoint: path, Status: status, Message: serverMessage(body)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("gateway %s: decode: %w", path, err)
	}
	return nil
}

// do runs one request and returns body and status. Transport errors come
// back as errors; HTTP errors come back as (body, status, nil) so callers
// can classify. endpoint is the unparameterized path used for metrics.
func (c *Client) do(ctx context.Context, method, path, endpoint string, auth bool) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	if auth {
		tok, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, 0, err
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.GatewayLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GatewayRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, 0, fmt.Errorf("gateway %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	metrics.GatewayRequests.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode/100*100)).Inc()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("gateway %s: read body: %w", endpoint, err)
	}
	if resp.StatusCode/100 != 2 {
		logger.From(ctx).Debug("gateway non-2xx",
			logger.Endpoint(endpoint), logger.Status(resp.StatusCode))
	}
	return b, resp.StatusCode, nil
}

// serverMessage pulls a human message out of an error body: the JSON
// "message"/"error" field when present, otherwise the (truncated) text.
func serverMessage(body []byte) string {
	var m struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(body, &m) == nil {
		switch {
		case m.Message != "":
			return m.Message
		case m.Error != "":
			return m.Error
		case m.Detail != "":
			return m.Detail
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrBody {
		s = s[:maxErrBody]
	}
	return s
}

// IsNotAuthenticated reports whether err is a missing-credential failure.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, identity.ErrNotAuthenticated)
}
