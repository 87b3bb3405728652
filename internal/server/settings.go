package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/macfixkou/repair-manager/internal/audit/domain"
	orgdomain "github.com/macfixkou/repair-manager/internal/organization/domain"
	"github.com/macfixkou/repair-manager/internal/orgcontext"
	casedomain "github.com/macfixkou/repair-manager/internal/repaircase/domain"
)

type UpdateSettingsRequest struct {
	StallThresholds     map[string]int `json:"stallThresholds"`
	AttachmentLimitFree *int           `json:"attachmentLimitFree"`
	AttachmentLimitPaid *int           `json:"attachmentLimitPaid"`
}

type settingsResponse struct {
	StallThresholds     map[casedomain.Status]int `json:"stallThresholds"`
	AttachmentLimitFree int                       `json:"attachmentLimitFree"`
	AttachmentLimitPaid int                       `json:"attachmentLimitPaid"`
	Version             int                       `json:"version"`
}

func (s *Server) GetSettings(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	settings, err := s.orgSvc.GetSettings(c.Request.Context(), orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toSettingsResponse(settings)})
}

func (s *Server) UpdateSettings(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	settings, err := s.orgSvc.UpdateSettings(c.Request.Context(), orgID, orgdomain.UpdateSettingsRequest{
		StallThresholds:     req.StallThresholds,
		AttachmentLimitFree: req.AttachmentLimitFree,
		AttachmentLimitPaid: req.AttachmentLimitPaid,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.ActionSettingsUpdated, auditdomain.TargetSettings, orgID.String(), map[string]any{
		"version": settings.Version,
	})
	c.JSON(http.StatusOK, gin.H{"data": toSettingsResponse(settings)})
}

func toSettingsResponse(settings orgdomain.Settings) settingsResponse {
	return settingsResponse{
		StallThresholds:     settings.StallThresholds,
		AttachmentLimitFree: settings.AttachmentLimitFree,
		AttachmentLimitPaid: settings.AttachmentLimitPaid,
		Version:             settings.Version,
	}
}
