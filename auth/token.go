package auth

import (
	"time"

	"golang.org/x/oauth2"
)

// TokenRecord is the access/refresh credential pair plus its expiry.
// ExpiresAt is an absolute instant in seconds since the Unix epoch.
type TokenRecord struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
	ExpiresAt    int64  `json:"expiresAt"`
	TokenType    string `json:"tokenType"`
}

// Expiry returns ExpiresAt as a time.Time.
func (r TokenRecord) Expiry() time.Time {
	return time.Unix(r.ExpiresAt, 0)
}

// OAuth2 converts the record into an oauth2.Token.
func (r TokenRecord) OAuth2() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    r.TokenType,
		RefreshToken: r.RefreshToken,
		Expiry:       r.Expiry(),
	}
}
