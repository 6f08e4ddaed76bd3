/*
Package jwtx provides client-side inspection of JSON Web Tokens.

The client never validates token signatures (that is the server's job); it
only peeks at the claims of its own token, primarily to skip a doomed session
restoration when the persisted token has already expired.
*/
package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt"
)

// Claims holds the subset of token claims the client cares about.
type Claims struct {
	jwt.StandardClaims

	// ID is the server-assigned user identifier.
	ID string `json:"id"`

	// Nickname is the display name embedded by the server, when present.
	Nickname string `json:"nickname"`
}

// Peek decodes the claims of a token string without verifying its signature.
// It returns an error only when the token is structurally malformed.
func Peek(tokenString string) (*Claims, error) {
	claims := &Claims{}

	if _, _, err := new(jwt.Parser).ParseUnverified(tokenString, claims); err != nil {
		return nil, err
	}

	return claims, nil
}

// Expired reports whether the token carries an expiry claim that has passed.
// Malformed tokens are treated as expired; tokens without an exp claim are not.
func Expired(tokenString string, now time.Time) bool {
	claims, err := Peek(tokenString)
	if err != nil {
		return true
	}

	if claims.ExpiresAt == 0 {
		return false
	}

	return now.Unix() >= claims.ExpiresAt
}
