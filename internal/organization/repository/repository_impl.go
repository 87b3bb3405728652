package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/macfixkou/repair-manager/internal/organization/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrganization(ctx context.Context, org domain.Organization) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO organizations (id, name, slug, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		org.ID,
		org.Name,
		org.Slug,
		org.CreatedAt,
		org.CreatedAt,
	).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&org).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &org, nil
}

func (r *repository) FindSettings(ctx context.Context, orgID snowflake.ID) (*domain.OrganizationSettings, error) {
	var settings domain.OrganizationSettings
	err := r.db.WithContext(ctx).Where("org_id = ?", orgID).Take(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *repository) UpsertSettings(ctx context.Context, settings domain.OrganizationSettings) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "org_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"version",
			"stall_thresholds",
			"attachment_limit_free",
			"attachment_limit_paid",
			"updated_at",
		}),
	}).Create(&settings).Error
}
