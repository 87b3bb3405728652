package repository

import (
	"context"
	"errors"

	"github.com/macfixkou/repair-manager/internal/identity/domain"
	"gorm.io/gorm"
)

type repo struct{}

func New() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, identity *domain.Identity) error {
	return db.WithContext(ctx).Create(identity).Error
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.Identity, error) {
	var identity domain.Identity
	err := db.WithContext(ctx).Where("email = ?", email).Take(&identity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &identity, nil
}
