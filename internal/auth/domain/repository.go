package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	FindBySubject(ctx context.Context, db *gorm.DB, subject string) (*User, error)
	Insert(ctx context.Context, db *gorm.DB, user *User) error
}
