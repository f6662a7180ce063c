// Package clientcache keeps a client-side view of the authenticated user.
//
// The cache talks to the identity HTTP endpoints with a cookie jar, so the
// session cookie is handled transparently. Reads never block on the network:
// User returns whatever the cache holds right now, and Loading reports
// whether a refresh is in flight.
package clientcache

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/goliatone/go-identity"
)

const fallbackMessage = "Network error. Please try again."

// Result reports the outcome of a login or registration attempt.
type Result struct {
	Success bool
	Message string
}

// Cache mirrors the server's notion of the current user. Stale responses
// cannot overwrite newer state: every mutating call claims a generation, and
// a response only applies if no later call claimed a newer one.
type Cache struct {
	mu      sync.RWMutex
	baseURL string
	client  *http.Client
	user    *identity.User
	loading bool
	gen     uint64
}

// Option configures the cache.
type Option func(*Cache)

// WithHTTPClient sets a custom HTTP client. A cookie jar is attached when
// the client has none.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) {
		c.client = client
	}
}

// New creates a cache for the identity service at baseURL.
func New(baseURL string, opts ...Option) *Cache {
	c := &Cache{
		baseURL: baseURL,
		loading: true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	if c.client == nil {
		c.client = &http.Client{Timeout: 10 * time.Second}
	}
	if c.client.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err == nil {
			c.client.Jar = jar
		}
	}

	return c
}

// User returns the cached user, nil when anonymous.
func (c *Cache) User() *identity.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Loading reports whether a refresh is in flight.
func (c *Cache) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}

// Refresh re-resolves the session from the profile endpoint. Any non-success
// outcome resolves to anonymous, a transport error included: a session the
// cache cannot confirm is no session.
func (c *Cache) Refresh(ctx context.Context) error {
	gen := c.begin()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/profile", nil)
	if err != nil {
		c.resolve(gen, nil)
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.resolve(gen, nil)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.resolve(gen, nil)
		return nil
	}

	var payload struct {
		User *identity.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.resolve(gen, nil)
		return err
	}

	c.resolve(gen, payload.User)
	return nil
}

// Login authenticates and caches the resulting user. The failure message is
// generic on purpose; the server does not say which part was wrong.
func (c *Cache) Login(ctx context.Context, email, password string) Result {
	gen := c.begin()

	body := map[string]string{"email": email, "password": password}
	resp, payload, err := c.postJSON(ctx, "/auth/login", body)
	if err != nil {
		c.finish(gen)
		return Result{Success: false, Message: fallbackMessage}
	}

	if resp.StatusCode != http.StatusOK {
		c.resolve(gen, nil)
		return Result{Success: false, Message: payload.errorMessage()}
	}

	c.resolve(gen, payload.User)
	return Result{Success: true}
}

// Register creates an account and caches the resulting user.
func (c *Cache) Register(ctx context.Context, name, email, password string, age *int) Result {
	gen := c.begin()

	body := map[string]any{"name": name, "email": email, "password": password}
	if age != nil {
		body["age"] = *age
	}

	resp, payload, err := c.postJSON(ctx, "/auth/register", body)
	if err != nil {
		c.finish(gen)
		return Result{Success: false, Message: fallbackMessage}
	}

	if resp.StatusCode != http.StatusCreated {
		c.resolve(gen, nil)
		return Result{Success: false, Message: payload.errorMessage()}
	}

	c.resolve(gen, payload.User)
	return Result{Success: true}
}

// Logout clears the cached user immediately, then tells the server. The
// optimistic clear claims the latest generation first, so an in-flight
// refresh that resolves late cannot resurrect the old user. The server call
// failing does not undo the local clear.
func (c *Cache) Logout(ctx context.Context) {
	c.mu.Lock()
	c.gen++
	c.user = nil
	c.loading = false
	c.mu.Unlock()

	_, _, _ = c.postJSON(ctx, "/auth/logout", nil)
}

// FederatedLoginURL returns the URL that starts a federated login with the
// named provider. The caller navigates there; the callback lands back on the
// service, which sets the session cookie.
func (c *Cache) FederatedLoginURL(provider string) string {
	return c.baseURL + "/auth/federated/" + url.PathEscape(provider)
}

type authPayload struct {
	User  *identity.User `json:"user"`
	Error string         `json:"error"`
}

func (p authPayload) errorMessage() string {
	if p.Error != "" {
		return p.Error
	}
	return fallbackMessage
}

func (c *Cache) postJSON(ctx context.Context, path string, body any) (*http.Response, authPayload, error) {
	var payload authPayload

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, payload, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, payload, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, payload, err
	}
	defer resp.Body.Close()

	_ = json.NewDecoder(resp.Body).Decode(&payload)

	return resp, payload, nil
}

// begin claims a new generation and marks the cache as loading.
func (c *Cache) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.loading = true
	return c.gen
}

// resolve applies a user for the given generation. A response from a stale
// generation is dropped.
func (c *Cache) resolve(gen uint64, user *identity.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.user = user
	c.loading = false
}

// finish ends the loading state for a generation without touching the user.
func (c *Cache) finish(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.loading = false
}
