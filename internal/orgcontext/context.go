package orgcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Principal is the caller resolved by the authorization gate. Every tenant
// scoped query filters on OrgID.
type Principal struct {
	UserID snowflake.ID `json:"userId"`
	OrgID  snowflake.ID `json:"orgId"`
	Role   string       `json:"role"`
	Name   string       `json:"name"`
	Email  string       `json:"email"`
}

type principalKey struct{}

// WithPrincipal stores the caller in the context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the caller, if one was resolved.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// OrgIDFromContext returns the caller's organization ID, if set.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	p, ok := PrincipalFromContext(ctx)
	if !ok || p.OrgID == 0 {
		return 0, false
	}
	return p.OrgID, true
}
