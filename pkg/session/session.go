package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/evermeet/chatsync/pkg/errcode"
)

// Claims represents the identity claims carried by a platform session token.
// Authentication itself happens in the platform's auth service; this package
// only reads the claims the client needs to act as the viewing user.
type Claims struct {
	UserId      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	jwt.RegisteredClaims
}

// Parse extracts the claims from a session token without verifying the
// signature. The remote store verifies the token on every request; the
// client only needs to know who it is acting as.
func Parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errcode.ErrTokenMissing
	}

	parser := jwt.NewParser()
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, errcode.ErrTokenInvalid.Wrap(err)
	}

	if claims.UserId == "" {
		return nil, errcode.ErrTokenInvalid
	}
	if claims.ExpiresAt != nil && claims.ExpiresAt.Before(time.Now()) {
		return nil, errcode.ErrTokenExpired
	}

	return claims, nil
}
