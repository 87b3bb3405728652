package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/macfixkou/repair-manager/internal/stall"
)

const (
	MinAttachmentLimit = 1
	MaxAttachmentLimit = 50
)

type Service interface {
	GetSettings(ctx context.Context, orgID snowflake.ID) (Settings, error)
	UpdateSettings(ctx context.Context, orgID snowflake.ID, req UpdateSettingsRequest) (Settings, error)
	ResolveThresholds(ctx context.Context, orgID snowflake.ID) (stall.Thresholds, error)
}

// Settings is the resolved view of an organization's settings.
type Settings struct {
	StallThresholds     stall.Thresholds
	AttachmentLimitFree int
	AttachmentLimitPaid int
	Version             int
}

// UpdateSettingsRequest is a partial update; nil fields keep their value and
// StallThresholds is merged key by key.
type UpdateSettingsRequest struct {
	StallThresholds     map[string]int
	AttachmentLimitFree *int
	AttachmentLimitPaid *int
}

var (
	ErrNotFound                   = errors.New("organization_not_found")
	ErrInvalidStallThresholds     = errors.New("invalid_stall_thresholds")
	ErrInvalidAttachmentLimitFree = errors.New("invalid_attachment_limit_free")
	ErrInvalidAttachmentLimitPaid = errors.New("invalid_attachment_limit_paid")
)
