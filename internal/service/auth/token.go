// Package auth acquires and caches the bearer credential attached to
// every upstream agent call.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/driveai/console/backend/internal/config"
)

// safetyMargin keeps a credential from being handed out just before it
// lapses mid-request.
const safetyMargin = 60 * time.Second

// defaultExpirySeconds applies when the token response omits expires_in.
const defaultExpirySeconds = 3600

type credential struct {
	token     string
	expiresAt time.Time
}

// TokenCache memoizes one client-credentials token for the process. It
// is the only state shared across sessions: reads hit the cache
// concurrently, refreshes serialize under the write lock so the first
// completed exchange decides the value every waiter uses.
type TokenCache struct {
	cfg    config.AgentConfig
	client *http.Client
	now    func() time.Time

	mu   sync.RWMutex
	cred credential
}

// NewTokenCache builds a cache around the configured OAuth client. A
// nil http.Client falls back to http.DefaultClient.
func NewTokenCache(cfg config.AgentConfig, client *http.Client) *TokenCache {
	if client == nil {
		client = http.DefaultClient
	}
	return &TokenCache{cfg: cfg, client: client, now: time.Now}
}

// Token returns a bearer token, refreshing it when the cached one is
// within the safety margin of expiry. A cache hit performs no network
// call.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.RLock()
	cred := c.cred
	c.mu.RUnlock()
	if c.fresh(cred) {
		return cred.token, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if c.fresh(c.cred) {
		return c.cred.token, nil
	}

	cred, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}
	c.cred = cred
	return cred.token, nil
}

// Invalidate drops the cached credential; the next Token call performs
// a fresh exchange.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	c.cred = credential{}
	c.mu.Unlock()
}

func (c *TokenCache) fresh(cred credential) bool {
	return cred.token != "" && c.now().Before(cred.expiresAt.Add(-safetyMargin))
}

func (c *TokenCache) exchange(ctx context.Context) (credential, error) {
	clientID, err := config.Require("SF_CLIENT_ID", c.cfg.ClientID)
	if err != nil {
		return credential{}, err
	}
	clientSecret, err := config.Require("SF_CLIENT_SECRET", c.cfg.ClientSecret)
	if err != nil {
		return credential{}, err
	}
	tokenURL, err := c.resolveTokenURL()
	if err != nil {
		return credential{}, err
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	if c.cfg.Scope != "" {
		form.Set("scope", c.cfg.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return credential{}, fmt.Errorf("token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	log.Printf("[token] requesting client_credentials token url=%s scope=%t", tokenURL, c.cfg.Scope != "")

	resp, err := c.client.Do(req)
	if err != nil {
		return credential{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2000))
		log.Printf("[token] exchange failed status=%d", resp.StatusCode)
		return credential{}, &Error{Status: resp.StatusCode, Body: string(body)}
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return credential{}, &Error{Status: resp.StatusCode, Body: "malformed token response: " + err.Error()}
	}
	if payload.AccessToken == "" {
		return credential{}, &Error{Status: resp.StatusCode, Body: "token response missing access_token"}
	}

	ttl := payload.ExpiresIn
	if ttl <= 0 {
		ttl = defaultExpirySeconds
	}
	log.Printf("[token] token acquired expires_in=%ds", ttl)

	return credential{
		token:     payload.AccessToken,
		expiresAt: c.now().Add(time.Duration(ttl) * time.Second),
	}, nil
}

// resolveTokenURL prefers the explicit token endpoint and otherwise
// derives the conventional one from the instance URL.
func (c *TokenCache) resolveTokenURL() (string, error) {
	if c.cfg.TokenURL != "" {
		return c.cfg.TokenURL, nil
	}
	if c.cfg.InstanceURL == "" {
		return "", &config.Error{Name: "SF_TOKEN_URL or SF_INSTANCE_URL"}
	}
	return strings.TrimRight(c.cfg.InstanceURL, "/") + "/services/oauth2/token", nil
}
