package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/macfixkou/repair-manager/internal/audit/domain"
	"github.com/macfixkou/repair-manager/internal/audit/repository"
	"github.com/macfixkou/repair-manager/internal/clock"
	"github.com/macfixkou/repair-manager/internal/orgcontext"
	"github.com/macfixkou/repair-manager/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func setup(t *testing.T) domain.Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&domain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(Params{
		DB:    conn,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)),
		Repo:  repository.New(),
	})
}

func staffCtx(orgID, userID snowflake.ID) context.Context {
	return orgcontext.WithPrincipal(context.Background(), orgcontext.Principal{
		OrgID:  orgID,
		UserID: userID,
		Role:   "member",
	})
}

func TestRecordStampsActorAndOrganization(t *testing.T) {
	svc := setup(t)
	ctx := staffCtx(1, 42)

	require.NoError(t, svc.Record(ctx, domain.Entry{
		Action:     domain.ActionCaseUpdated,
		TargetType: domain.TargetCase,
		TargetID:   "01HXCASE",
		Metadata:   map[string]any{"fields": []string{"status"}, "": "dropped"},
		IPAddress:  "192.0.2.1",
	}))

	got, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, got.AuditLogs, 1)

	entry := got.AuditLogs[0]
	assert.Equal(t, snowflake.ID(1), entry.OrgID)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, snowflake.ID(42), *entry.ActorID)
	assert.Equal(t, "01HXCASE", entry.TargetID)
	assert.NotContains(t, entry.Metadata, "")
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "192.0.2.1", *entry.IPAddress)
	assert.Nil(t, entry.UserAgent)
	assert.Nil(t, got.NextBefore)
}

func TestRecordRequiresOrganizationAndAction(t *testing.T) {
	svc := setup(t)

	err := svc.Record(context.Background(), domain.Entry{Action: domain.ActionCaseCreated})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	err = svc.Record(staffCtx(1, 42), domain.Entry{Action: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidAction)
}

func TestListIsScopedAndPaged(t *testing.T) {
	svc := setup(t)
	ctx := staffCtx(1, 42)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, svc.Record(ctx, domain.Entry{
			Action:     domain.ActionCaseCreated,
			TargetType: domain.TargetCase,
			TargetID:   id,
		}))
	}
	require.NoError(t, svc.Record(staffCtx(2, 7), domain.Entry{
		Action:     domain.ActionCaseCreated,
		TargetType: domain.TargetCase,
		TargetID:   "other-org",
	}))

	first, err := svc.List(ctx, domain.ListRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.Equal(t, "c", first.AuditLogs[0].TargetID)
	assert.Equal(t, "b", first.AuditLogs[1].TargetID)
	require.NotNil(t, first.NextBefore)

	second, err := svc.List(ctx, domain.ListRequest{Limit: 2, Before: first.NextBefore})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.Equal(t, "a", second.AuditLogs[0].TargetID)
	assert.Nil(t, second.NextBefore)

	byTarget, err := svc.List(ctx, domain.ListRequest{TargetID: "b"})
	require.NoError(t, err)
	assert.Len(t, byTarget.AuditLogs, 1)

	_, err = svc.List(ctx, domain.ListRequest{Limit: 251})
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
	_, err = svc.List(context.Background(), domain.ListRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}
