package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/macfixkou/repair-manager/internal/auth/domain"
	"github.com/macfixkou/repair-manager/internal/auth/repository"
	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/config"
	identitydomain "github.com/macfixkou/repair-manager/internal/identity/domain"
	identityrepo "github.com/macfixkou/repair-manager/internal/identity/repository"
	identitysvc "github.com/macfixkou/repair-manager/internal/identity/service"
	"github.com/macfixkou/repair-manager/internal/identity/token"
	orgdomain "github.com/macfixkou/repair-manager/internal/organization/domain"
	orgrepo "github.com/macfixkou/repair-manager/internal/organization/repository"
	"github.com/macfixkou/repair-manager/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

type fixture struct {
	svc      domain.Service
	identity identitydomain.Service
	db       *gorm.DB
}

func setup(t *testing.T) fixture {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.User{}, &identitydomain.Identity{}, &orgdomain.Organization{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fc := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	issuer, err := token.NewIssuer(config.Config{AuthJWTSecret: "secret"}, fc)
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	ids := identitysvc.NewService(identitysvc.Params{
		DB:     conn,
		Log:    log,
		Clock:  fc,
		Repo:   identityrepo.New(),
		Issuer: issuer,
	})
	svc := New(Params{
		DB:          conn,
		Log:         log,
		GenID:       node,
		Clock:       fc,
		Repo:        repository.New(),
		OrgRepo:     orgrepo.NewRepository(conn),
		IdentitySvc: ids,
	})
	return fixture{svc: svc, identity: ids, db: conn}
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.Model(model).Count(&n).Error)
	return n
}

func TestResolveUserProvisionsOnFirstAccess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, err := f.svc.ResolveUser(ctx, domain.ExternalIdentity{
		Subject: "sub-1",
		Email:   "aoi@example.com",
		OrgName: "  Aoi Repair ",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, first.Role)
	assert.Equal(t, "aoi@example.com", first.Name)
	assert.NotZero(t, first.OrgID)

	var org orgdomain.Organization
	require.NoError(t, f.db.Where("id = ?", first.OrgID).Take(&org).Error)
	assert.Equal(t, "Aoi Repair", org.Name)
	assert.Equal(t, "aoi-repair", org.Slug)

	again, err := f.svc.ResolveUser(ctx, domain.ExternalIdentity{Subject: "sub-1", Email: "aoi@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first, again)
	assert.Equal(t, int64(1), countRows(t, f.db, &orgdomain.Organization{}))
}

func TestResolveUserNamesOrganizationFromEmail(t *testing.T) {
	f := setup(t)

	p, err := f.svc.ResolveUser(context.Background(), domain.ExternalIdentity{
		Subject: "sub-2",
		Email:   "kenji@example.com",
		Name:    "Kenji",
	})
	require.NoError(t, err)
	assert.Equal(t, "Kenji", p.Name)

	var org orgdomain.Organization
	require.NoError(t, f.db.Where("id = ?", p.OrgID).Take(&org).Error)
	assert.Equal(t, "kenji", org.Name)
}

func TestResolveUserCapsSlugLength(t *testing.T) {
	f := setup(t)

	p, err := f.svc.ResolveUser(context.Background(), domain.ExternalIdentity{
		Subject: "sub-long",
		Email:   "long@example.com",
		OrgName: strings.Repeat("修理工房", 50),
	})
	require.NoError(t, err)

	var org orgdomain.Organization
	require.NoError(t, f.db.Where("id = ?", p.OrgID).Take(&org).Error)
	assert.NotEmpty(t, org.Slug)
	assert.LessOrEqual(t, len(org.Slug), maxSlugLen)
	assert.False(t, strings.HasSuffix(org.Slug, "-"))
}

func TestResolveUserWithoutEmailOrProfile(t *testing.T) {
	f := setup(t)

	_, err := f.svc.ResolveUser(context.Background(), domain.ExternalIdentity{Subject: "sub-3"})
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	assert.Zero(t, countRows(t, f.db, &orgdomain.Organization{}))

	_, err = f.svc.ResolveUser(context.Background(), domain.ExternalIdentity{Email: "x@example.com"})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestOrganizationName(t *testing.T) {
	assert.Equal(t, "Shop", organizationName(" Shop ", "a@example.com"))
	assert.Equal(t, "a", organizationName("", "a@example.com"))
	assert.Equal(t, defaultOrgName, organizationName("", "@example.com"))
	assert.Equal(t, defaultOrgName, organizationName("", "nobody"))
}

func TestSignupThenLogin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	signed, err := f.svc.Signup(ctx, domain.SignupRequest{
		OrgName:  "Fix Shop",
		Name:     "Aoi",
		Email:    "aoi@example.com",
		Password: "longenough",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, signed.Token)
	assert.Equal(t, "Aoi", signed.Principal.Name)
	assert.Equal(t, domain.RoleOwner, signed.Principal.Role)

	fromToken, err := f.svc.Authenticate(ctx, signed.Token)
	require.NoError(t, err)
	assert.Equal(t, signed.Principal, fromToken)

	logged, err := f.svc.Login(ctx, "AOI@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, signed.Principal, logged.Principal)
	assert.Equal(t, int64(1), countRows(t, f.db, &orgdomain.Organization{}))

	_, err = f.svc.Login(ctx, "aoi@example.com", "wrong-password")
	assert.ErrorIs(t, err, identitydomain.ErrInvalidCredentials)
	assert.True(t, IsCredentialError(err))
}

func TestSignupDuplicateEmailRollsBack(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	req := domain.SignupRequest{OrgName: "Fix Shop", Name: "Aoi", Email: "aoi@example.com", Password: "longenough"}

	_, err := f.svc.Signup(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Signup(ctx, req)
	assert.ErrorIs(t, err, identitydomain.ErrEmailTaken)
	assert.Equal(t, int64(1), countRows(t, f.db, &orgdomain.Organization{}))
	assert.Equal(t, int64(1), countRows(t, f.db, &domain.User{}))
}

func TestSignupValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, domain.SignupRequest{Name: "Aoi", Email: "a@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrgName)
	_, err = f.svc.Signup(ctx, domain.SignupRequest{OrgName: "Shop", Email: "a@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)
	_, err = f.svc.Signup(ctx, domain.SignupRequest{OrgName: "Shop", Name: "Aoi", Email: "a@example.com", Password: "short"})
	assert.ErrorIs(t, err, identitydomain.ErrWeakPassword)
	assert.Zero(t, countRows(t, f.db, &identitydomain.Identity{}))
}

func TestAuthenticateRejectsBadToken(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Authenticate(context.Background(), "garbage")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
