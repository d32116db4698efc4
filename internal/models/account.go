package models

import (
	"time"

	"github.com/google/uuid"
)

// Account is a gateway user. Email is the login identity.
type Account struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"-"`
	Name      string     `gorm:"not null" json:"user"`
	Email     string     `gorm:"uniqueIndex;not null" json:"email"`
	Hash      string     `gorm:"not null" json:"-"`
	Salt      string     `gorm:"not null" json:"-"`
	Admin     bool       `gorm:"not null;default:false;index" json:"admin"`
	LastLogin *time.Time `json:"lastLogin"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
