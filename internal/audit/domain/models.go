package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is one recorded change made by a staff member.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID      `gorm:"not null;index:idx_audit_logs_org_created,priority:1" json:"organizationId"`
	ActorID    *snowflake.ID     `json:"actorId,omitempty"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	TargetType string            `gorm:"size:32;not null" json:"targetType"`
	TargetID   string            `gorm:"size:64;not null;default:'';index" json:"targetId"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress  *string           `gorm:"size:64" json:"ipAddress,omitempty"`
	UserAgent  *string           `json:"userAgent,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;index:idx_audit_logs_org_created,priority:2" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	OrgID      snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	Before     *snowflake.ID
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}
