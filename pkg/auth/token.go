package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

var errEmptyToken = errors.New("auth token is empty")

// BearerHeader formats token as an Authorization header value.
func BearerHeader(token string) (string, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), bearerPrefix))
	if trimmed == "" {
		return "", errEmptyToken
	}
	return bearerPrefix + trimmed, nil
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// Opaque tokens report ok=false and no error.
func TokenExpiry(token string) (expiry time.Time, ok bool, err error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), bearerPrefix))
	if trimmed == "" {
		return time.Time{}, false, errEmptyToken
	}
	if strings.Count(trimmed, ".") != 2 {
		return time.Time{}, false, nil
	}

	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(trimmed, claims); err != nil {
		return time.Time{}, false, fmt.Errorf("parsing jwt: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false, nil
	}
	return claims.ExpiresAt.Time, true, nil
}

// IsExpired reports whether token carries an exp claim earlier than now.
func IsExpired(token string, now time.Time) bool {
	expiry, ok, err := TokenExpiry(token)
	if err != nil || !ok {
		return false
	}
	return !now.Before(expiry)
}
