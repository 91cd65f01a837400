// Package auth authenticates staff with HS256-signed bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

const issuer = "adoptiq"

// Compile-time check: JWT implements domain.Authenticator.
var _ domain.Authenticator = (*JWT)(nil)

// Claims are the token claims. Role carries the staff permission level.
type Claims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role"`
}

// JWT issues and verifies staff tokens with a shared secret.
type JWT struct {
	secret []byte
	nowFn  func() time.Time
}

// NewJWT creates an authenticator keyed by secret.
func NewJWT(secret []byte) *JWT {
	return &JWT{secret: secret, nowFn: time.Now}
}

// WithClock replaces the authenticator's time source.
func (a *JWT) WithClock(now func() time.Time) *JWT {
	a.nowFn = now
	return a
}

// Issue signs a token for subject with the given role and lifetime.
func (a *JWT) Issue(subject string, role domain.Role, ttl time.Duration) (string, error) {
	if !role.Valid() {
		return "", fmt.Errorf("issuing token: unknown role %q", role)
	}
	now := a.nowFn()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies token and returns the caller's identity. Every
// failure maps to domain.ErrUnauthenticated.
func (a *JWT) Authenticate(_ context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.nowFn),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Identity{}, fmt.Errorf("%w: token expired", domain.ErrUnauthenticated)
		}
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	if claims.Subject == "" || !claims.Role.Valid() {
		return domain.Identity{}, fmt.Errorf("%w: missing subject or role", domain.ErrUnauthenticated)
	}

	return domain.Identity{Subject: claims.Subject, Role: claims.Role}, nil
}
