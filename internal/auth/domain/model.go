// Package domain contains user profiles and the authorization gate contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// User is the local profile of an identity inside one organization.
type User struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Subject   string       `gorm:"size:64;not null;uniqueIndex"`
	OrgID     snowflake.ID `gorm:"not null;index"`
	Name      string       `gorm:"type:text;not null"`
	Email     string       `gorm:"size:320;not null"`
	Role      string       `gorm:"size:16;not null"`
	CreatedAt time.Time    `gorm:"not null"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }
