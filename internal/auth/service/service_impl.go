package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/macfixkou/repair-manager/internal/auth/domain"
	"github.com/macfixkou/repair-manager/internal/clock"
	identitydomain "github.com/macfixkou/repair-manager/internal/identity/domain"
	"github.com/macfixkou/repair-manager/internal/observability/metrics"
	orgdomain "github.com/macfixkou/repair-manager/internal/organization/domain"
	"github.com/macfixkou/repair-manager/internal/orgcontext"
	"github.com/macfixkou/repair-manager/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultOrgName = "My Organization"
	// maxSlugLen matches the organizations.slug column.
	maxSlugLen = 255
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        domain.Repository
	OrgRepo     orgdomain.Repository
	IdentitySvc identitydomain.Service
	Metrics     *metrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        domain.Repository
	orgRepo     orgdomain.Repository
	identitySvc identitydomain.Service
	metrics     *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("auth.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		orgRepo:     p.OrgRepo,
		identitySvc: p.IdentitySvc,
		metrics:     p.Metrics,
	}
}

func (s *Service) ResolveUser(ctx context.Context, identity domain.ExternalIdentity) (orgcontext.Principal, error) {
	if strings.TrimSpace(identity.Subject) == "" {
		return orgcontext.Principal{}, domain.ErrUnauthorized
	}

	user, err := s.repo.FindBySubject(ctx, s.db, identity.Subject)
	if err != nil {
		return orgcontext.Principal{}, err
	}
	if user != nil {
		return principalOf(*user), nil
	}
	if strings.TrimSpace(identity.Email) == "" {
		return orgcontext.Principal{}, domain.ErrProfileNotFound
	}

	var provisioned domain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		provisioned, err = s.provision(ctx, tx, identity)
		return err
	})
	if err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return orgcontext.Principal{}, err
		}
		// A concurrent first request created the profile.
		user, err := s.repo.FindBySubject(ctx, s.db, identity.Subject)
		if err != nil {
			return orgcontext.Principal{}, err
		}
		if user == nil {
			return orgcontext.Principal{}, domain.ErrProfileNotFound
		}
		return principalOf(*user), nil
	}

	s.metrics.RecordOrgProvisioned(ctx, "gate")
	return principalOf(provisioned), nil
}

func (s *Service) Authenticate(ctx context.Context, token string) (orgcontext.Principal, error) {
	claims, err := s.identitySvc.VerifyToken(token)
	if err != nil {
		return orgcontext.Principal{}, domain.ErrUnauthorized
	}
	return s.ResolveUser(ctx, domain.ExternalIdentity{
		Subject: claims.Subject,
		Email:   claims.Email,
		OrgName: claims.Metadata.OrgName,
		Name:    claims.Metadata.Name,
	})
}

// Signup creates the identity, its organization and its owner profile in
// one transaction.
func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (domain.Session, error) {
	orgName := strings.TrimSpace(req.OrgName)
	if orgName == "" {
		return domain.Session{}, domain.ErrInvalidOrgName
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Session{}, domain.ErrInvalidName
	}

	var (
		identity identitydomain.Identity
		user     domain.User
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		identity, err = s.identitySvc.Register(ctx, tx, identitydomain.RegisterRequest{
			Email:    req.Email,
			Password: req.Password,
			Metadata: identitydomain.Metadata{OrgName: orgName, Name: name},
		})
		if err != nil {
			return err
		}
		user, err = s.provision(ctx, tx, domain.ExternalIdentity{
			Subject: identity.ID,
			Email:   identity.Email,
			OrgName: orgName,
			Name:    name,
		})
		return err
	})
	if err != nil {
		return domain.Session{}, err
	}

	s.metrics.RecordOrgProvisioned(ctx, "signup")
	return s.session(identity, user)
}

func (s *Service) Login(ctx context.Context, email, password string) (domain.Session, error) {
	identity, err := s.identitySvc.Authenticate(ctx, email, password)
	if err != nil {
		return domain.Session{}, err
	}

	meta := identity.Metadata.Data()
	principal, err := s.ResolveUser(ctx, domain.ExternalIdentity{
		Subject: identity.ID,
		Email:   identity.Email,
		OrgName: meta.OrgName,
		Name:    meta.Name,
	})
	if err != nil {
		return domain.Session{}, err
	}

	token, err := s.identitySvc.IssueToken(identity)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Token: token.Value, ExpiresAt: token.ExpiresAt, Principal: principal}, nil
}

func (s *Service) provision(ctx context.Context, tx *gorm.DB, identity domain.ExternalIdentity) (domain.User, error) {
	email := strings.TrimSpace(identity.Email)
	now := s.clock.Now()

	org := orgdomain.Organization{
		ID:        s.genID.Generate(),
		Name:      organizationName(identity.OrgName, email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	org.Slug = slug.Make(org.Name)
	if len(org.Slug) > maxSlugLen {
		org.Slug = strings.TrimRight(org.Slug[:maxSlugLen], "-")
	}
	if org.Slug == "" {
		org.Slug = "org-" + org.ID.String()
	}
	if err := s.orgRepo.WithTx(tx).CreateOrganization(ctx, org); err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:        s.genID.Generate(),
		Subject:   identity.Subject,
		OrgID:     org.ID,
		Name:      firstNonBlank(identity.Name, email),
		Email:     email,
		Role:      domain.RoleOwner,
		CreatedAt: now,
	}
	if err := s.repo.Insert(ctx, tx, &user); err != nil {
		return domain.User{}, err
	}

	s.log.Info("organization provisioned",
		zap.String("org_id", org.ID.String()),
		zap.String("user_id", user.ID.String()),
	)
	return user, nil
}

func (s *Service) session(identity identitydomain.Identity, user domain.User) (domain.Session, error) {
	token, err := s.identitySvc.IssueToken(identity)
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Token: token.Value, ExpiresAt: token.ExpiresAt, Principal: principalOf(user)}, nil
}

func principalOf(u domain.User) orgcontext.Principal {
	return orgcontext.Principal{
		UserID: u.ID,
		OrgID:  u.OrgID,
		Role:   u.Role,
		Name:   u.Name,
		Email:  u.Email,
	}
}

// organizationName prefers the signup hint, then the local part of email.
func organizationName(hint, email string) string {
	if name := strings.TrimSpace(hint); name != "" {
		return name
	}
	if local, _, ok := strings.Cut(email, "@"); ok && strings.TrimSpace(local) != "" {
		return strings.TrimSpace(local)
	}
	return defaultOrgName
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// IsCredentialError reports whether err means the caller could not be
// identified, as opposed to a failure of the store.
func IsCredentialError(err error) bool {
	return errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, identitydomain.ErrInvalidCredentials)
}
