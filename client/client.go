package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/habedi/pldl/auth"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout is the transport timeout for backend calls.
const DefaultTimeout = 30 * time.Second

// Client sends backend requests with the stored access token attached.
// On a 401 it refreshes the token once and repeats the request once.
// It reads the credential store but never writes to it.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	store     auth.CredentialStore
	refresher auth.Refresher
}

// New returns a Client. A nil httpClient gets DefaultTimeout.
func New(baseURL string, httpClient *http.Client, store auth.CredentialStore, refresher auth.Refresher) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: httpClient,
		store:      store,
		refresher:  refresher,
	}
}

// Send performs r and returns the fully read response.
func (c *Client) Send(ctx context.Context, r *Request) (*Response, error) {
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer closeResponseBody(resp)

	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", auth.ErrRequestFailed, err)
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

// SendStream performs r and returns the response with its body unread.
// The caller must close the body.
func (c *Client) SendStream(ctx context.Context, r *Request) (*http.Response, error) {
	return c.do(ctx, r)
}

func (c *Client) do(ctx context.Context, r *Request) (*http.Response, error) {
	requestID := uuid.NewString()
	logger := log.With().Str("request_id", requestID).Str("method", r.Method).Str("path", r.Path).Logger()

	resp, sent, err := c.dispatch(ctx, r, requestID)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		closeResponseBody(resp)
		if sent == "" {
			return nil, fmt.Errorf("%w: %s %s requires login", auth.ErrUnauthenticated, r.Method, r.Path)
		}

		// A token renewed since this attempt went out is reused instead of refreshed again.
		logger.Debug().Msg("Authorization failed, refreshing token")
		if _, err := c.refresher.RefreshStale(ctx, sent); err != nil {
			if errors.Is(err, auth.ErrRefreshFailed) || errors.Is(err, auth.ErrUnauthenticated) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", auth.ErrRequestFailed, err)
		}

		resp, _, err = c.dispatch(ctx, r, requestID)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			closeResponseBody(resp)
			logger.Warn().Msg("Authorization failed again after token refresh")
			return nil, fmt.Errorf("%w: %s %s", auth.ErrAuthorizationRetryExhausted, r.Method, r.Path)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		herr := newHTTPError(resp.Request, resp)
		closeResponseBody(resp)
		logger.Error().Int("status", resp.StatusCode).Msg("HTTP request failed with non-successful status")
		return nil, herr
	}
	return resp, nil
}

// dispatch sends one attempt. It returns the access token it attached, or "" if none was stored.
func (c *Client) dispatch(ctx context.Context, r *Request, requestID string) (*http.Response, string, error) {
	req, err := createRequest(ctx, c.BaseURL, r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", auth.ErrRequestFailed, err)
	}
	req.Header.Set(requestIDHeader, requestID)

	rec, err := c.store.Read(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("%w: failed to read credentials: %w", auth.ErrRequestFailed, err)
	}
	var sent string
	if rec != nil && rec.AccessToken != "" {
		rec.OAuth2().SetAuthHeader(req)
		sent = rec.AccessToken
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("Failed to send request")
		return nil, "", fmt.Errorf("%w: %w", auth.ErrRequestFailed, err)
	}
	return resp, sent, nil
}
