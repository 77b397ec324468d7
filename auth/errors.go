package auth

import "errors"

var (
	// ErrUnauthenticated means no credentials are stored when one is required.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrRefreshFailed means the refresh token was missing or rejected, or the exchange failed.
	// The credential store is always cleared when it is returned.
	ErrRefreshFailed = errors.New("token refresh failed")
	// ErrRequestFailed covers every non-authorization failure of an outbound call.
	ErrRequestFailed = errors.New("request failed")
	// ErrAuthorizationRetryExhausted means a request was rejected again after a successful refresh.
	ErrAuthorizationRetryExhausted = errors.New("authorization failed after token refresh")
)
