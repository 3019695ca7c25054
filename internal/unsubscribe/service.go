// Package unsubscribe signs and verifies the one-click unsubscribe links
// embedded in digest emails.
package unsubscribe

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathan/job-digest/internal/config"
)

// Claims represents unsubscribe token claims.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// Service provides unsubscribe token generation and validation.
type Service struct {
	config config.UnsubscribeConfig
	now    func() time.Time
}

// NewService creates a new unsubscribe service with the given configuration.
func NewService(cfg config.UnsubscribeConfig) *Service {
	return &Service{config: cfg, now: time.Now}
}

// Token generates a signed token for the given subscriber.
func (s *Service) Token(userID, email string) (string, error) {
	if s.config.Secret == "" {
		return "", fmt.Errorf("unsubscribe secret is not configured")
	}
	now := s.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.Expiration())),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// Link returns base_url with the signed token attached as the "token" query
// parameter. Existing query parameters on base_url are kept.
func (s *Service) Link(userID, email string) (string, error) {
	base, err := url.Parse(s.config.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return "", fmt.Errorf("invalid unsubscribe base url %q", s.config.BaseURL)
	}
	token, err := s.Token(userID, email)
	if err != nil {
		return "", err
	}
	q := base.Query()
	q.Set("token", token)
	base.RawQuery = q.Encode()
	return base.String(), nil
}

// Verify validates a token and returns its claims.
func (s *Service) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Verify signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		}
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("token is not valid")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token has no user id")
	}

	return claims, nil
}
