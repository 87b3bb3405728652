// Package token issues and verifies HS256 access tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/config"
	"github.com/macfixkou/repair-manager/internal/identity/domain"
)

const defaultTTL = 24 * time.Hour

var errMissingSecret = errors.New("AUTH_JWT_SECRET is required")

type claims struct {
	Email        string          `json:"email,omitempty"`
	UserMetadata domain.Metadata `json:"user_metadata"`
	jwt.RegisteredClaims
}

type Issuer struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewIssuer(cfg config.Config, clk clock.Clock) (*Issuer, error) {
	if cfg.AuthJWTSecret == "" {
		return nil, errMissingSecret
	}
	ttl := cfg.AuthTokenTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Issuer{secret: []byte(cfg.AuthJWTSecret), ttl: ttl, clock: clk}, nil
}

func (i *Issuer) Issue(identity domain.Identity) (domain.Token, error) {
	now := i.clock.Now()
	expiresAt := now.Add(i.ttl)
	c := claims{
		Email:        identity.Email,
		UserMetadata: identity.Metadata.Data(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return domain.Token{}, fmt.Errorf("sign token: %w", err)
	}
	return domain.Token{Value: signed, ExpiresAt: expiresAt}, nil
}

// Verify accepts only unexpired HS256 tokens signed with the configured secret.
func (i *Issuer) Verify(raw string) (domain.Claims, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || c.Subject == "" {
		return domain.Claims{}, domain.ErrInvalidToken
	}
	return domain.Claims{Subject: c.Subject, Email: c.Email, Metadata: c.UserMetadata}, nil
}
