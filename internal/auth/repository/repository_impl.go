package repository

import (
	"context"
	"errors"

	"github.com/macfixkou/repair-manager/internal/auth/domain"
	"gorm.io/gorm"
)

type repo struct{}

func New() domain.Repository {
	return &repo{}
}

func (r *repo) FindBySubject(ctx context.Context, db *gorm.DB, subject string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where("subject = ?", subject).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}
