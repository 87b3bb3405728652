package service

import (
	"context"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/identity/domain"
	"github.com/macfixkou/repair-manager/internal/identity/password"
	"github.com/macfixkou/repair-manager/internal/identity/token"
	"github.com/macfixkou/repair-manager/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   domain.Repository
	Issuer *token.Issuer
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   domain.Repository
	issuer *token.Issuer
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("identity.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		issuer: p.Issuer,
	}
}

func (s *Service) Register(ctx context.Context, tx *gorm.DB, req domain.RegisterRequest) (domain.Identity, error) {
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		return domain.Identity{}, err
	}
	if utf8.RuneCountInString(req.Password) < domain.MinPasswordLength {
		return domain.Identity{}, domain.ErrWeakPassword
	}

	existing, err := s.repo.FindByEmail(ctx, tx, email)
	if err != nil {
		return domain.Identity{}, err
	}
	if existing != nil {
		return domain.Identity{}, domain.ErrEmailTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return domain.Identity{}, err
	}

	identity := domain.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Metadata: datatypes.NewJSONType(domain.Metadata{
			OrgName: strings.TrimSpace(req.Metadata.OrgName),
			Name:    strings.TrimSpace(req.Metadata.Name),
		}),
		CreatedAt: s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, tx, &identity); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Identity{}, domain.ErrEmailTaken
		}
		return domain.Identity{}, err
	}
	return identity, nil
}

// Authenticate returns ErrInvalidCredentials for both an unknown email and a
// wrong password.
func (s *Service) Authenticate(ctx context.Context, email, plain string) (domain.Identity, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}
	identity, err := s.repo.FindByEmail(ctx, s.db, normalized)
	if err != nil {
		return domain.Identity{}, err
	}
	if identity == nil || !password.Verify(plain, identity.PasswordHash) {
		return domain.Identity{}, domain.ErrInvalidCredentials
	}
	return *identity, nil
}

func (s *Service) IssueToken(identity domain.Identity) (domain.Token, error) {
	return s.issuer.Issue(identity)
}

func (s *Service) VerifyToken(raw string) (domain.Claims, error) {
	return s.issuer.Verify(raw)
}

// NormalizeEmail lower-cases and validates an address.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}
