package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/habedi/pldl/auth"
	"github.com/rs/zerolog/log"
)

// TokenEndpoint performs the unauthenticated token exchanges against the backend.
type TokenEndpoint struct {
	BaseURL    string
	HTTPClient *http.Client
	Now        func() time.Time
}

// NewTokenEndpoint returns a TokenEndpoint. A nil httpClient gets DefaultTimeout.
func NewTokenEndpoint(baseURL string, httpClient *http.Client) *TokenEndpoint {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &TokenEndpoint{BaseURL: baseURL, HTTPClient: httpClient, Now: time.Now}
}

// tokenResponse is the token JSON returned by /callback and /refresh_token.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresAt        int64  `json:"expires_at"`
	ExpiresIn        int64  `json:"expires_in"`
	TokenType        string `json:"token_type"`
	Scope            string `json:"scope"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode trades an authorization code for a token via GET /callback.
func (e *TokenEndpoint) ExchangeCode(ctx context.Context, code string) (auth.TokenRecord, error) {
	return e.exchange(ctx, &Request{
		Method: http.MethodGet,
		Path:   "/callback",
		Query:  url.Values{"code": {code}},
	})
}

// RefreshToken trades a refresh token for a new token via POST /refresh_token.
func (e *TokenEndpoint) RefreshToken(ctx context.Context, refreshToken string) (auth.TokenRecord, error) {
	return e.exchange(ctx, &Request{
		Method: http.MethodPost,
		Path:   "/refresh_token",
		Body:   map[string]string{"refresh_token": refreshToken},
	})
}

func (e *TokenEndpoint) exchange(ctx context.Context, r *Request) (auth.TokenRecord, error) {
	req, err := createRequest(ctx, e.BaseURL, r)
	if err != nil {
		return auth.TokenRecord{}, fmt.Errorf("%w: %w", auth.ErrRequestFailed, err)
	}
	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return auth.TokenRecord{}, fmt.Errorf("%w: token request failed: %w", auth.ErrRequestFailed, err)
	}
	defer closeResponseBody(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return auth.TokenRecord{}, newHTTPError(req, resp)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return auth.TokenRecord{}, fmt.Errorf("%w: %w", auth.ErrRequestFailed, err)
	}
	var result tokenResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return auth.TokenRecord{}, fmt.Errorf("%w: failed to parse token response: %w", auth.ErrRequestFailed, err)
	}

	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	rec, err := result.record(now)
	if err != nil {
		return auth.TokenRecord{}, err
	}
	log.Debug().Str("path", r.Path).Int64("expires_at", rec.ExpiresAt).Msg("Token exchange succeeded")
	return rec, nil
}

// record validates the response and fixes the expiry as an absolute instant.
func (t tokenResponse) record(now time.Time) (auth.TokenRecord, error) {
	if t.Error != "" {
		msg := t.Error
		if t.ErrorDescription != "" {
			msg += ": " + t.ErrorDescription
		}
		return auth.TokenRecord{}, fmt.Errorf("token API error: %s", msg)
	}
	if t.AccessToken == "" {
		return auth.TokenRecord{}, fmt.Errorf("token response has no access token")
	}

	expiresAt := t.ExpiresAt
	if expiresAt <= 0 {
		if t.ExpiresIn <= 0 {
			return auth.TokenRecord{}, fmt.Errorf("token response has no expiry")
		}
		expiresAt = now.Unix() + t.ExpiresIn
	}

	tokenType := t.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return auth.TokenRecord{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    expiresAt,
		TokenType:    tokenType,
	}, nil
}
