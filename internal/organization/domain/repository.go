package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrganization(ctx context.Context, org Organization) error
	FindByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	FindSettings(ctx context.Context, orgID snowflake.ID) (*OrganizationSettings, error)
	UpsertSettings(ctx context.Context, settings OrganizationSettings) error
}
