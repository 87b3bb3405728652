// Package domain contains attachment records and the object store contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const TypePhoto = "PHOTO"

// Attachment is the metadata of an uploaded file; the bytes live in the object store.
type Attachment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CaseID    string       `gorm:"size:26;not null;index" json:"caseId"`
	OrgID     snowflake.ID `gorm:"not null;index" json:"organizationId"`
	Type      string       `gorm:"size:16;not null" json:"type"`
	FileName  string       `gorm:"size:255;not null" json:"fileName"`
	FilePath  string       `gorm:"size:512;not null" json:"filePath"`
	ObjectKey string       `gorm:"size:512;not null;default:''" json:"-"`
	MimeType  string       `gorm:"size:64;not null" json:"mimeType"`
	Size      int64        `gorm:"not null" json:"size"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
}

func (Attachment) TableName() string { return "case_attachments" }
