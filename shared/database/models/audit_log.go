package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actions and resource kinds recorded by state-changing operations.
const (
	AuditActionCreate = "CREATE"
	AuditActionUpdate = "UPDATE"
	AuditActionDelete = "DELETE"

	AuditResourceUser         = "USER"
	AuditResourceTask         = "TASK"
	AuditResourceOrganization = "ORGANIZATION"
)

// AuditLog is an append-only record of a state-changing operation. Entries
// are never updated or deleted.
type AuditLog struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID         uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index"`
	Action         string     `json:"action" gorm:"type:varchar(20);not null"`
	Resource       string     `json:"resource" gorm:"type:varchar(50);not null"`
	ResourceID     *uuid.UUID `json:"resource_id,omitempty" gorm:"type:uuid"`
	OrganizationID uuid.UUID  `json:"organization_id" gorm:"type:uuid;not null;index"`
	Details        string     `json:"details" gorm:"type:text"`
	IPAddress      string     `json:"ip_address" gorm:"type:varchar(45)"`
	UserAgent      string     `json:"user_agent" gorm:"type:text"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime;index"`
}

// TableName returns the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}
