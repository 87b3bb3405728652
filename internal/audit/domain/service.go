package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	TargetCase          = "case"
	TargetStatusHistory = "status_history"
	TargetAttachment    = "attachment"
	TargetSettings      = "settings"
)

const (
	ActionCaseCreated          = "case.created"
	ActionCaseUpdated          = "case.updated"
	ActionCaseDeleted          = "case.deleted"
	ActionStatusHistoryUpdated = "status_history.updated"
	ActionStatusHistoryDeleted = "status_history.deleted"
	ActionAttachmentUploaded   = "attachment.uploaded"
	ActionAttachmentDeleted    = "attachment.deleted"
	ActionSettingsUpdated      = "settings.updated"
)

// Entry is a change to record. The organization and actor come from the
// request context.
type Entry struct {
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
	IPAddress  string
	UserAgent  string
}

type ListRequest struct {
	Action     string
	TargetType string
	TargetID   string
	// Before pages backwards from the given entry.
	Before *snowflake.ID
	Limit  int
}

type ListResponse struct {
	AuditLogs []AuditLog `json:"auditLogs"`
	// NextBefore is set when older entries remain.
	NextBefore *snowflake.ID `json:"nextBefore,omitempty"`
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrInvalidLimit        = errors.New("invalid_limit")
)
