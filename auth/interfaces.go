package auth

import "context"

// CredentialStore holds the current TokenRecord.
// Read returns nil, nil when nothing is stored. Write replaces the whole record.
type CredentialStore interface {
	Read(ctx context.Context) (*TokenRecord, error)
	Write(ctx context.Context, rec TokenRecord) error
	Clear(ctx context.Context) error
}

// TokenExchanger trades a refresh token for a new TokenRecord.
type TokenExchanger interface {
	RefreshToken(ctx context.Context, refreshToken string) (TokenRecord, error)
}

// CodeExchanger trades an authorization code for a TokenRecord.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (TokenRecord, error)
}

// Refresher renews the stored credentials unless the access token the caller last saw
// has already been replaced.
type Refresher interface {
	RefreshStale(ctx context.Context, stale string) (TokenRecord, error)
}
