package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/macfixkou/repair-manager/internal/audit/domain"
	"go.uber.org/zap"
)

func (s *Server) ListAuditLogs(c *gin.Context) {
	req := auditdomain.ListRequest{
		Action:     strings.TrimSpace(c.Query("action")),
		TargetType: strings.TrimSpace(c.Query("targetType")),
		TargetID:   strings.TrimSpace(c.Query("targetId")),
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			AbortWithError(c, auditdomain.ErrInvalidLimit)
			return
		}
		req.Limit = limit
	}
	if raw := strings.TrimSpace(c.Query("before")); raw != "" {
		before, err := parseSnowflakeID(raw)
		if err != nil {
			AbortWithError(c, newValidationError("before", "invalid_before", "before must be an audit log id"))
			return
		}
		req.Before = &before
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// recordAudit writes an audit entry for a change that already succeeded.
// Failures are logged and never fail the request.
func (s *Server) recordAudit(c *gin.Context, action, targetType, targetID string, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
		Metadata:   metadata,
		IPAddress:  c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	if err != nil {
		s.log.Warn("audit entry dropped", zap.String("action", action), zap.Error(err))
	}
}
