package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"taskhub-backend/core-service/middleware"
	"taskhub-backend/shared/audit"
	"taskhub-backend/shared/utils/authz"
)

type AuditHandler struct {
	db *gorm.DB
}

func NewAuditHandler(db *gorm.DB) *AuditHandler {
	return &AuditHandler{db: db}
}

// GetAuditLogs lists the organization's audit trail, newest first
// @Summary List audit logs
// @Description List the actor's organization audit trail, newest first. Owner/Admin only.
// @Tags audit
// @Produce json
// @Param limit query int false "Maximum entries (default: 100, cap: 500)"
// @Security BearerAuth
// @Success 200 {array} models.AuditLog
// @Failure 403 {object} map[string]string
// @Router /audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if !authz.CanManageUsers(actor.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only owners and admins can view the audit log"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := audit.ListForOrganization(h.db, actor.OrganizationID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit logs"})
		return
	}

	c.JSON(http.StatusOK, entries)
}
