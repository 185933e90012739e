// Package auth issues and verifies the bearer tokens expected by the API and
// carries the authenticated user through the request context.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ctxUser ctxKey = "user"

// PlaceholderUserID attributes records created outside an authenticated
// request, matching the single-user origins of the app.
const PlaceholderUserID = "user1"

type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// GenerateToken signs a 24h HS256 token for username.
func GenerateToken(secret, username string) (string, error) {
	claims := Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken verifies an HS256 token and returns its claims.
func ParseToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// WithUser stores the authenticated username in ctx.
func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ctxUser, username)
}

// UserFromContext returns the authenticated username, or the placeholder id
// when the request carried no identity.
func UserFromContext(ctx context.Context) string {
	if user, ok := ctx.Value(ctxUser).(string); ok && user != "" {
		return user
	}
	return PlaceholderUserID
}
