package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Email          string    `json:"email" gorm:"uniqueIndex;not null"`
	Password       string    `json:"-" gorm:"not null"`
	FirstName      string    `json:"first_name" gorm:"size:100"`
	LastName       string    `json:"last_name" gorm:"size:100"`
	Role           Role      `json:"role" gorm:"type:varchar(20);not null;default:'VIEWER'"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
	OrganizationID uuid.UUID `json:"organization_id" gorm:"type:uuid;not null;index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relations
	Organization Organization `json:"organization" gorm:"foreignKey:OrganizationID"`
}
