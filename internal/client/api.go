// Package client is the typed HTTP client for the SecureSOC identity API.
// It owns the translation from transport/HTTP failures into the fixed error
// taxonomy consumed by the session manager.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/threatpulse/securesoc/internal/model"
)

// AuthResult is the outcome of a successful credential or second-factor
// exchange. Either a full session (Token set) or an MFA step-up demand
// (MFARequired with the challenge to present later).
type AuthResult struct {
	User           model.Identity `json:"user"`
	Token          string         `json:"-"`
	ExpiresAt      time.Time      `json:"-"`
	MFARequired    bool           `json:"mfa_required"`
	ChallengeToken string         `json:"challenge_token"`
}

// Client talks to the identity API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the API at baseURL (e.g. "http://localhost:8080").
func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type sessionBody struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
type authBody struct {
	User           model.Identity `json:"user"`
	Session        sessionBody    `json:"session"`
	MFARequired    bool           `json:"mfa_required"`
	ChallengeToken string         `json:"challenge_token"`
}

// SignIn exchanges credentials for a session or an MFA challenge.
func (c *Client) SignIn(ctx context.Context, email, password string) (AuthResult, error) {
	return c.authPost(ctx, "/v1/auth/signin", map[string]string{
		"email":    email,
		"password": password,
	})
}

// SignUp registers a new account and returns its first session.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (AuthResult, error) {
	return c.authPost(ctx, "/v1/auth/signup", map[string]string{
		"email":    email,
		"password": password,
		"name":     name,
	})
}

// VerifyMFA completes an MFA-pending sign-in with an authenticator code or a
// single-use recovery code.
func (c *Client) VerifyMFA(ctx context.Context, challengeToken, code string, isRecovery bool) (AuthResult, error) {
	return c.authPost(ctx, "/v1/auth/mfa", map[string]any{
		"challenge_token": challengeToken,
		"code":            code,
		"is_recovery":     isRecovery,
	})
}

// SignOut revokes the session server-side. Callers treat this as best-effort.
func (c *Client) SignOut(ctx context.Context, token string) error {
	resp, err := c.do(ctx, http.MethodPost, "/v1/auth/signout", token, nil)
	if err != nil {
		return ErrServiceUnavailable
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return ErrServiceUnavailable
	}
	return nil
}

// Me fetches the identity behind a session token. The role comes from the
// server on every call, so server-side role changes are picked up.
func (c *Client) Me(ctx context.Context, token string) (model.Identity, error) {
	resp, err := c.do(ctx, http.MethodGet, "/v1/me", token, nil)
	if err != nil {
		return model.Identity{}, ErrServiceUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var id model.Identity
		if err := json.NewDecoder(resp.Body).Decode(&id); err != nil {
			return model.Identity{}, ErrServiceUnavailable
		}
		return id, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return model.Identity{}, ErrSessionExpired
	default:
		return model.Identity{}, ErrServiceUnavailable
	}
}

// authPost posts a JSON body to an auth endpoint and maps the response onto
// the error taxonomy.
func (c *Client) authPost(ctx context.Context, path string, body any) (AuthResult, error) {
	resp, err := c.do(ctx, http.MethodPost, path, "", body)
	if err != nil {
		return AuthResult{}, ErrServiceUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		var ab authBody
		if err := json.NewDecoder(resp.Body).Decode(&ab); err != nil {
			return AuthResult{}, ErrServiceUnavailable
		}
		return AuthResult{
			User:           ab.User,
			Token:          ab.Session.Token,
			ExpiresAt:      ab.Session.ExpiresAt,
			MFARequired:    ab.MFARequired,
			ChallengeToken: ab.ChallengeToken,
		}, nil
	case resp.StatusCode == http.StatusUnauthorized:
		if path == "/v1/auth/mfa" {
			return AuthResult{}, ErrMFAInvalidCode
		}
		return AuthResult{}, ErrAuthenticationFailed
	case resp.StatusCode == http.StatusNotFound:
		return AuthResult{}, ErrProfileMissing
	case resp.StatusCode == http.StatusBadRequest, resp.StatusCode == http.StatusConflict:
		return AuthResult{}, ErrInvalidInput
	default:
		return AuthResult{}, ErrServiceUnavailable
	}
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.http.Do(req)
}
