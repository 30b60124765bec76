package auth

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims are the claims of a Shopify App Bridge session token.
type SessionClaims struct {
	Dest string `json:"dest"`
	jwt.RegisteredClaims
}

// Session is what a verified session token says about the caller.
type Session struct {
	Shop string
	User string
}

// ParseSessionToken verifies an HS256 session token signed with the app's
// API secret and returns the shop domain and user it was issued for.
func ParseSessionToken(tokenStr, secret string) (*Session, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: no API secret configured", ErrInvalidSession)
	}

	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	shop := shopFromDest(claims.Dest)
	if shop == "" {
		return nil, fmt.Errorf("%w: missing dest claim", ErrInvalidSession)
	}

	return &Session{Shop: shop, User: claims.Subject}, nil
}

// shopFromDest turns "https://demo.myshopify.com" into "demo.myshopify.com".
func shopFromDest(dest string) string {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return ""
	}
	if u, err := url.Parse(dest); err == nil && u.Host != "" {
		return u.Host
	}
	return strings.TrimSuffix(dest, "/")
}
