// Package domain contains persistence models for organizations and their settings.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Organization represents a tenant. The threshold blob and limit columns are
// the first-generation settings storage, read only when no
// OrganizationSettings row exists.
type Organization struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	Name                string       `gorm:"type:text;not null" json:"name"`
	Slug                string       `gorm:"size:255;not null;index" json:"slug"`
	StallThresholdsJSON *string      `gorm:"column:stall_thresholds_json;type:text" json:"-"`
	AttachmentLimitFree *int         `gorm:"column:attachment_limit_free" json:"-"`
	AttachmentLimitPaid *int         `gorm:"column:attachment_limit_paid" json:"-"`
	CreatedAt           time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt           time.Time    `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// OrganizationSettings is the versioned settings record. Version starts at 1
// and increases on every write.
type OrganizationSettings struct {
	OrgID               snowflake.ID   `gorm:"primaryKey;autoIncrement:false" json:"orgId"`
	Version             int            `gorm:"not null" json:"version"`
	StallThresholds     datatypes.JSON `gorm:"not null" json:"stallThresholds"`
	AttachmentLimitFree int            `gorm:"not null" json:"attachmentLimitFree"`
	AttachmentLimitPaid int            `gorm:"not null" json:"attachmentLimitPaid"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (OrganizationSettings) TableName() string { return "organization_settings" }
