package authorization

import (
	"context"
	"testing"

	"github.com/macfixkou/repair-manager/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)
	return NewService(Params{Log: zaptest.NewLogger(t), Enforcer: enforcer})
}

func TestRolePolicies(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		role, object, action string
		allowed              bool
	}{
		{"member", ObjectCase, ActionRead, true},
		{"member", ObjectCase, ActionWrite, true},
		{"member", ObjectAttachment, ActionWrite, true},
		{"member", ObjectExport, ActionRead, true},
		{"member", ObjectCase, ActionDelete, false},
		{"member", ObjectSettings, ActionRead, false},
		{"admin", ObjectCase, ActionDelete, true},
		{"admin", ObjectSettings, ActionRead, true},
		{"admin", ObjectCase, ActionWrite, true},
		{"admin", ObjectSettings, ActionWrite, false},
		{"member", ObjectAudit, ActionRead, false},
		{"admin", ObjectAudit, ActionRead, true},
		{"owner", ObjectSettings, ActionWrite, true},
		{"owner", ObjectExport, ActionRead, true},
		{"Owner", ObjectCase, ActionDelete, true},
		{"guest", ObjectCase, ActionRead, false},
	}
	for _, tc := range cases {
		err := svc.Authorize(ctx, tc.role, tc.object, tc.action)
		if tc.allowed {
			assert.NoError(t, err, "%s %s:%s", tc.role, tc.object, tc.action)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "%s %s:%s", tc.role, tc.object, tc.action)
		}
	}
}

func TestAuthorizeRejectsBlankInput(t *testing.T) {
	svc := newTestService(t)
	assert.ErrorIs(t, svc.Authorize(context.Background(), " ", ObjectCase, ActionRead), ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(context.Background(), "owner", "", ActionRead), ErrInvalidObject)
}

func TestSeedIsIdempotent(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	_, err = NewEnforcer(conn)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(conn)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, len(builtinPolicies))

	grouping, err := enforcer.GetGroupingPolicy()
	require.NoError(t, err)
	assert.Len(t, grouping, len(builtinInheritance))
}
