// Package security provides bearer-token issuing and validation for the
// query API.
package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "queryforge/internal/core/context"
)

// TokenConfig holds JWT configuration.
type TokenConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

// DefaultTokenConfig returns default JWT configuration.
func DefaultTokenConfig(secret string) TokenConfig {
	return TokenConfig{
		Secret:         secret,
		Issuer:         "queryforge",
		AccessTokenTTL: 15 * time.Minute,
	}
}

// Claims represents JWT claims.
type Claims struct {
	jwt.RegisteredClaims
	Scopes []string `json:"scopes,omitempty"`
}

// TokenService signs and validates access tokens.
type TokenService struct {
	config TokenConfig
}

// NewTokenService creates a new token service.
func NewTokenService(config TokenConfig) *TokenService {
	return &TokenService{config: config}
}

// GenerateAccessToken generates a new access token for a subject.
func (s *TokenService) GenerateAccessToken(subject string, scopes []string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.config.AccessTokenTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Scopes: scopes,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateToken validates a JWT and returns the caller context.
func (s *TokenService) ValidateToken(tokenString string) (*appctx.CallerContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &appctx.CallerContext{
		Subject: claims.Subject,
		Scopes:  claims.Scopes,
	}, nil
}
