// Package domain contains the local identity provider's records and contracts.
package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Identity is a login credential. Its ID is the subject carried in access
// tokens and referenced by user profiles.
type Identity struct {
	ID           string                       `gorm:"primaryKey;size:36"`
	Email        string                       `gorm:"size:320;not null;uniqueIndex"`
	PasswordHash string                       `gorm:"type:text;not null"`
	Metadata     datatypes.JSONType[Metadata] `gorm:"not null"`
	CreatedAt    time.Time                    `gorm:"not null"`
}

func (Identity) TableName() string { return "identities" }

// Metadata holds the hints given at signup, used when provisioning the
// caller's organization on first access.
type Metadata struct {
	OrgName string `json:"orgName,omitempty"`
	Name    string `json:"name,omitempty"`
}

// Claims is the verified content of an access token.
type Claims struct {
	Subject  string
	Email    string
	Metadata Metadata
}

// Token is an issued access token.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

type RegisterRequest struct {
	Email    string
	Password string
	Metadata Metadata
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, identity *Identity) error
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*Identity, error)
}

type Service interface {
	// Register creates an identity using db, which may be an open transaction.
	Register(ctx context.Context, db *gorm.DB, req RegisterRequest) (Identity, error)
	Authenticate(ctx context.Context, email, password string) (Identity, error)
	IssueToken(identity Identity) (Token, error)
	VerifyToken(raw string) (Claims, error)
}

const MinPasswordLength = 8

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrWeakPassword       = errors.New("invalid_password")
	ErrInvalidToken       = errors.New("invalid_token")
)
