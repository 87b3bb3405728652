package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository reads and writes cases. Every method is scoped by organization
// and never returns a soft-deleted case.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *Case) error
	FindByID(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id string) (*Case, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, q ListQuery) ([]CaseRow, error)
	Update(ctx context.Context, db *gorm.DB, c *Case) error
	SoftDelete(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id string, at time.Time) (bool, error)
	UserInOrg(ctx context.Context, db *gorm.DB, orgID snowflake.ID, userID snowflake.ID) (bool, error)

	InsertHistory(ctx context.Context, db *gorm.DB, h *StatusHistory) error
	ListHistory(ctx context.Context, db *gorm.DB, orgID snowflake.ID, caseID string) ([]StatusHistory, error)
	FindHistory(ctx context.Context, db *gorm.DB, orgID snowflake.ID, caseID string, id snowflake.ID) (*StatusHistory, error)
	UpdateHistoryStatus(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id snowflake.ID, status Status) error
	DeleteHistory(ctx context.Context, db *gorm.DB, orgID snowflake.ID, id snowflake.ID) error
}
