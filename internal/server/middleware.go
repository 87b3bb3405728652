package server

import (
	"github.com/gin-gonic/gin"
	obscontext "github.com/macfixkou/repair-manager/internal/observability/context"
	"github.com/macfixkou/repair-manager/internal/orgcontext"
)

const contextPrincipalKey = "principal"

// AuthRequired resolves the caller from the session cookie or bearer token and
// stores the principal on the request context. Callers without a profile are
// provisioned on first access.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.Token(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		principal, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := orgcontext.WithPrincipal(c.Request.Context(), principal)
		ctx = obscontext.WithOrgID(ctx, principal.OrgID.String())
		ctx = obscontext.WithUserID(ctx, principal.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Set(contextPrincipalKey, principal)
		c.Next()
	}
}

// RequirePermission checks the caller's role against the policy for object/action.
func (s *Server) RequirePermission(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := orgcontext.PrincipalFromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal.Role, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
