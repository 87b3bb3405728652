package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/macfixkou/repair-manager/internal/attachment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func New() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, a *domain.Attachment) error {
	return db.WithContext(ctx).Create(a).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Attachment, error) {
	var a domain.Attachment
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Take(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *repo) ListByCase(ctx context.Context, db *gorm.DB, orgID snowflake.ID, caseID string) ([]domain.Attachment, error) {
	items := []domain.Attachment{}
	err := db.WithContext(ctx).
		Where("org_id = ? AND case_id = ?", orgID, caseID).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountByCase(ctx context.Context, db *gorm.DB, orgID snowflake.ID, caseID string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Attachment{}).
		Where("org_id = ? AND case_id = ?", orgID, caseID).
		Count(&count).Error
	return count, err
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) error {
	return db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Delete(&domain.Attachment{}).Error
}
