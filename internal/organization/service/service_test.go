package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/config"
	"github.com/macfixkou/repair-manager/internal/organization/domain"
	"github.com/macfixkou/repair-manager/internal/organization/repository"
	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
	"github.com/macfixkou/repair-manager/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setup(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.Organization{}, &domain.OrganizationSettings{}))

	svc := NewService(Params{
		DB:     conn,
		Log:    zaptest.NewLogger(t),
		Repo:   repository.NewRepository(conn),
		Clock:  clock.NewFakeClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		Policy: config.NewStaticAttachmentPolicy(config.DefaultAttachmentPolicy()),
	})
	return svc, conn
}

func insertOrg(t *testing.T, conn *gorm.DB, org domain.Organization) {
	t.Helper()
	org.Slug = "shop"
	org.CreatedAt = time.Now().UTC()
	org.UpdatedAt = org.CreatedAt
	require.NoError(t, conn.Create(&org).Error)
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestGetSettingsDefaults(t *testing.T) {
	svc, conn := setup(t)
	insertOrg(t, conn, domain.Organization{ID: 1, Name: "Shop"})

	got, err := svc.GetSettings(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, got.StallThresholds.For(casedomain.StatusIntake))
	assert.Equal(t, 5, got.AttachmentLimitFree)
	assert.Equal(t, 10, got.AttachmentLimitPaid)
	assert.Equal(t, 0, got.Version)
}

func TestGetSettingsFallsBackToOrganizationColumns(t *testing.T) {
	svc, conn := setup(t)
	insertOrg(t, conn, domain.Organization{
		ID:                  1,
		Name:                "Shop",
		StallThresholdsJSON: strPtr(`{"DIAGNOSING": 9}`),
		AttachmentLimitPaid: intPtr(20),
	})

	got, err := svc.GetSettings(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 9, got.StallThresholds.For(casedomain.StatusDiagnosing))
	assert.Equal(t, 5, got.AttachmentLimitFree)
	assert.Equal(t, 20, got.AttachmentLimitPaid)
}

func TestGetSettingsMalformedLegacyBlobYieldsDefaults(t *testing.T) {
	svc, conn := setup(t)
	insertOrg(t, conn, domain.Organization{ID: 1, Name: "Shop", StallThresholdsJSON: strPtr("{oops")})

	got, err := svc.ResolveThresholds(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, got.For(casedomain.StatusDiagnosing))
}

func TestGetSettingsUnknownOrganization(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.GetSettings(context.Background(), snowflake.ID(42))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateSettingsMergesAndVersions(t *testing.T) {
	svc, conn := setup(t)
	insertOrg(t, conn, domain.Organization{ID: 1, Name: "Shop", StallThresholdsJSON: strPtr(`{"REPAIRING": 8}`)})
	ctx := context.Background()

	first, err := svc.UpdateSettings(ctx, 1, domain.UpdateSettingsRequest{
		StallThresholds: map[string]int{"INTAKE": 4},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)
	assert.Equal(t, 4, first.StallThresholds.For(casedomain.StatusIntake))
	assert.Equal(t, 8, first.StallThresholds.For(casedomain.StatusRepairing), "legacy override carried forward")

	second, err := svc.UpdateSettings(ctx, 1, domain.UpdateSettingsRequest{
		StallThresholds:     map[string]int{"DIAGNOSING": 0},
		AttachmentLimitPaid: intPtr(25),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, 4, second.StallThresholds.For(casedomain.StatusIntake))
	assert.Equal(t, 0, second.StallThresholds.For(casedomain.StatusDiagnosing))
	assert.Equal(t, 25, second.AttachmentLimitPaid)
	assert.Equal(t, 5, second.AttachmentLimitFree)

	reread, err := svc.GetSettings(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, second, reread)
}

func TestUpdateSettingsValidation(t *testing.T) {
	svc, conn := setup(t)
	insertOrg(t, conn, domain.Organization{ID: 1, Name: "Shop"})
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.UpdateSettingsRequest
		want error
	}{
		{"unknown status", domain.UpdateSettingsRequest{StallThresholds: map[string]int{"LOST": 1}}, domain.ErrInvalidStallThresholds},
		{"too many days", domain.UpdateSettingsRequest{StallThresholds: map[string]int{"INTAKE": 31}}, domain.ErrInvalidStallThresholds},
		{"negative days", domain.UpdateSettingsRequest{StallThresholds: map[string]int{"INTAKE": -1}}, domain.ErrInvalidStallThresholds},
		{"free limit zero", domain.UpdateSettingsRequest{AttachmentLimitFree: intPtr(0)}, domain.ErrInvalidAttachmentLimitFree},
		{"paid limit too high", domain.UpdateSettingsRequest{AttachmentLimitPaid: intPtr(51)}, domain.ErrInvalidAttachmentLimitPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateSettings(ctx, 1, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestUpdateSettingsUnknownOrganization(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.UpdateSettings(context.Background(), 7, domain.UpdateSettingsRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
