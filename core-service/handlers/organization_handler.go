package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskhub-backend/core-service/middleware"
	"taskhub-backend/shared/audit"
	"taskhub-backend/shared/database/models"
	"taskhub-backend/shared/utils/authz"
)

type OrganizationHandler struct {
	db *gorm.DB
}

func NewOrganizationHandler(db *gorm.DB) *OrganizationHandler {
	return &OrganizationHandler{db: db}
}

// UpdateOrganizationRequest represents request body for updating an organization
type UpdateOrganizationRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
}

// GetOrganization retrieves the actor's organization
// @Summary Get organization
// @Tags organizations
// @Produce json
// @Param id path string true "Organization ID"
// @Security BearerAuth
// @Success 200 {object} models.Organization
// @Failure 404 {object} map[string]string
// @Router /organizations/{id} [get]
func (h *OrganizationHandler) GetOrganization(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}

	// Members can only see their own organization; anything else is
	// reported as missing.
	if id != actor.OrganizationID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var organization models.Organization
	if err := h.db.Preload("Parent").Preload("Children").
		Where("id = ?", id).First(&organization).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	c.JSON(http.StatusOK, organization)
}

// UpdateOrganization updates the actor's organization
// @Summary Update organization
// @Description Update the organization's name, description or parent. Owner/Admin only. A parent change that would create a cycle is rejected.
// @Tags organizations
// @Accept json
// @Produce json
// @Param id path string true "Organization ID"
// @Param organization body UpdateOrganizationRequest true "Fields to update"
// @Security BearerAuth
// @Success 200 {object} models.Organization
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /organizations/{id} [put]
func (h *OrganizationHandler) UpdateOrganization(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if !authz.CanManageUsers(actor.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only owners and admins can update the organization"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid organization ID"})
		return
	}

	if id != actor.OrganizationID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var organization models.Organization
	if err := h.db.Where("id = ?", id).First(&organization).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
		return
	}

	var req UpdateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != nil {
		organization.Name = *req.Name
	}
	if req.Description != nil {
		organization.Description = *req.Description
	}
	if req.ParentID != nil {
		if err := h.checkParentCycle(organization.ID, *req.ParentID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		organization.ParentID = req.ParentID
	}

	if err := h.db.Save(&organization).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update organization"})
		return
	}

	resourceID := organization.ID
	audit.Record(h.db, audit.Entry{
		ActorID:        actor.ID,
		Action:         models.AuditActionUpdate,
		Resource:       models.AuditResourceOrganization,
		ResourceID:     &resourceID,
		OrganizationID: actor.OrganizationID,
		Details:        fmt.Sprintf("Updated organization: %s", organization.Name),
		IPAddress:      c.ClientIP(),
		UserAgent:      c.GetHeader("User-Agent"),
	})

	c.JSON(http.StatusOK, organization)
}

// checkParentCycle walks the proposed parent chain and rejects any path
// leading back to the organization itself. The walk is bounded so a
// corrupted chain cannot loop forever.
func (h *OrganizationHandler) checkParentCycle(orgID, newParentID uuid.UUID) error {
	if newParentID == orgID {
		return fmt.Errorf("organization cannot be its own parent")
	}

	const maxDepth = 100
	current := newParentID
	for depth := 0; depth < maxDepth; depth++ {
		var parent models.Organization
		if err := h.db.Select("id", "parent_id").Where("id = ?", current).First(&parent).Error; err != nil {
			return fmt.Errorf("parent organization not found")
		}
		if parent.ParentID == nil {
			return nil
		}
		if *parent.ParentID == orgID {
			return fmt.Errorf("parent assignment would create a cycle")
		}
		current = *parent.ParentID
	}
	return fmt.Errorf("organization hierarchy too deep")
}
