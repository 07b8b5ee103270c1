// ABOUTME: Adapts the session store to oauth2 token sources and reads JWT expiry
// ABOUTME: Lets the HTTP transport attach the current bearer token to every request

package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

type storeTokenSource struct {
	store Store
}

// TokenSource returns an oauth2.TokenSource that reads store on every call.
// An absent session yields an empty bearer token; the backend rejects it with 401.
func TokenSource(store Store) oauth2.TokenSource {
	return storeTokenSource{store: store}
}

// Token implements oauth2.TokenSource
func (s storeTokenSource) Token() (*oauth2.Token, error) {
	token, _ := s.store.Read()
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// Expiry returns the exp claim of a JWT session token. The signature is not
// verified; the value is for display only.
func Expiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}

	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
