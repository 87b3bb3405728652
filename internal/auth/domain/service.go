package domain

import (
	"context"
	"errors"
	"time"

	"github.com/macfixkou/repair-manager/internal/orgcontext"
)

// ExternalIdentity is a caller already verified by the identity provider.
type ExternalIdentity struct {
	Subject string
	Email   string
	OrgName string
	Name    string
}

// Session is a signed-in principal and its access token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Principal orgcontext.Principal
}

type SignupRequest struct {
	OrgName  string
	Name     string
	Email    string
	Password string
}

type Service interface {
	// ResolveUser returns the caller's profile, creating an organization and
	// an owner profile on first access.
	ResolveUser(ctx context.Context, identity ExternalIdentity) (orgcontext.Principal, error)
	// Authenticate verifies an access token and resolves its profile.
	Authenticate(ctx context.Context, token string) (orgcontext.Principal, error)
	Signup(ctx context.Context, req SignupRequest) (Session, error)
	Login(ctx context.Context, email, password string) (Session, error)
}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrProfileNotFound = errors.New("profile_not_found")
	ErrInvalidOrgName  = errors.New("invalid_org_name")
	ErrInvalidName     = errors.New("invalid_name")
)
