// Package audit appends immutable records of state-changing operations.
// Appends are best-effort: a persistence failure is logged and swallowed so
// it can never roll back or fail the operation that triggered it.
package audit

import (
	"log"

	"taskhub-backend/shared/database/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entry describes one state-changing operation to record.
type Entry struct {
	ActorID        uuid.UUID
	Action         string // models.AuditActionCreate / Update / Delete
	Resource       string // models.AuditResourceUser / Task / Organization
	ResourceID     *uuid.UUID
	OrganizationID uuid.UUID
	Details        string
	IPAddress      string
	UserAgent      string
}

// Record appends an audit entry. It never returns an error; failures are
// logged only. Callers must not wrap this in their own transaction.
func Record(db *gorm.DB, entry Entry) {
	row := models.AuditLog{
		UserID:         entry.ActorID,
		Action:         entry.Action,
		Resource:       entry.Resource,
		ResourceID:     entry.ResourceID,
		OrganizationID: entry.OrganizationID,
		Details:        entry.Details,
		IPAddress:      entry.IPAddress,
		UserAgent:      entry.UserAgent,
	}

	if err := db.Create(&row).Error; err != nil {
		log.Printf("⚠️ Failed to write audit log (%s %s): %v", entry.Action, entry.Resource, err)
		return
	}

	log.Printf("[AUDIT] user %s performed %s on %s in organization %s",
		entry.ActorID, entry.Action, entry.Resource, entry.OrganizationID)
}

// ListForOrganization returns an organization's audit trail, newest first.
// The Owner/Admin restriction is enforced at the HTTP boundary, not here.
func ListForOrganization(db *gorm.DB, organizationID uuid.UUID, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []models.AuditLog
	err := db.Where("organization_id = ?", organizationID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
