package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, a *Attachment) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Attachment, error)
	ListByCase(ctx context.Context, db *gorm.DB, orgID snowflake.ID, caseID string) ([]Attachment, error)
	CountByCase(ctx context.Context, db *gorm.DB, orgID snowflake.ID, caseID string) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error
}
