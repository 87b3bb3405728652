package server

import (
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	attachmentdomain "github.com/macfixkou/repair-manager/internal/attachment/domain"
	auditdomain "github.com/macfixkou/repair-manager/internal/audit/domain"
)

const attachmentFormField = "file"

func (s *Server) UploadAttachment(c *gin.Context) {
	header, err := c.FormFile(attachmentFormField)
	if err != nil {
		AbortWithError(c, attachmentdomain.ErrMissingFile)
		return
	}

	file, err := header.Open()
	if err != nil {
		AbortWithError(c, attachmentdomain.ErrMissingFile)
		return
	}
	defer file.Close()

	attachment, err := s.attachmentSvc.Upload(c.Request.Context(), c.Param("id"), attachmentdomain.UploadRequest{
		FileName: header.Filename,
		MimeType: uploadMimeType(header.Header.Get("Content-Type"), header.Filename),
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.recordAudit(c, auditdomain.ActionAttachmentUploaded, auditdomain.TargetAttachment, attachment.ID.String(), map[string]any{
		"caseId":   attachment.CaseID,
		"mimeType": attachment.MimeType,
		"size":     attachment.Size,
	})
	c.JSON(http.StatusCreated, gin.H{"data": attachment})
}

func (s *Server) DeleteAttachment(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrNotFound)
		return
	}

	if err := s.attachmentSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	s.recordAudit(c, auditdomain.ActionAttachmentDeleted, auditdomain.TargetAttachment, id.String(), nil)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"ok": true}})
}

// uploadMimeType prefers the part's declared type and falls back to the
// file extension when the client sent none.
func uploadMimeType(declared, filename string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		mediaType, _, _ := mime.ParseMediaType(byExt)
		return mediaType
	}
	return declared
}
