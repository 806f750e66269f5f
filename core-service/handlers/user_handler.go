package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskhub-backend/core-service/middleware"
	"taskhub-backend/shared/audit"
	"taskhub-backend/shared/database/models"
	utils "taskhub-backend/shared/utils/auth"
	"taskhub-backend/shared/utils/authz"
	"taskhub-backend/shared/utils/cache"
	"taskhub-backend/shared/utils/query"
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

// CreateUserRequest represents request body for creating user
type CreateUserRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      string `json:"role" binding:"required"`
}

// UpdateUserRequest represents request body for updating user. Absent
// fields are left untouched.
type UpdateUserRequest struct {
	Email     *string `json:"email" binding:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	IsActive  *bool   `json:"is_active"`
	Role      *string `json:"role"`
}

// UserListResponse represents a list of users with pagination
type UserListResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items      []models.User            `json:"items"`
		Pagination query.PaginationResponse `json:"pagination"`
	} `json:"data"`
}

// findUserInOrg loads a user visible to the actor. Absence and
// cross-organization access are indistinguishable: both are a miss.
func (h *UserHandler) findUserInOrg(actor middleware.Actor, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := h.db.Preload("Organization").
		Where("id = ? AND organization_id = ?", id, actor.OrganizationID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUsers retrieves the actor's organization members
// @Summary List users
// @Description List users of the actor's organization with pagination, filtering, sorting and search
// @Tags users
// @Accept json
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10)"
// @Param search query string false "Search term across name and email"
// @Param filters[role] query string false "Filter by role (OWNER, ADMIN, VIEWER)"
// @Param filters[is_active] query string false "Filter by active flag"
// @Param sort[field] query string false "Sort field (email, first_name, last_name, created_at)"
// @Param sort[order] query string false "Sort order (asc, desc)"
// @Security BearerAuth
// @Success 200 {object} handlers.UserListResponse
// @Failure 401 {object} map[string]string
// @Router /users [get]
func (h *UserHandler) GetUsers(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	params := query.ParseQueryParams(c)

	filterValidators := map[string]query.FilterValidator{
		"role": func(v string) error {
			_, err := models.ParseRole(v)
			return err
		},
		"is_active": func(v string) error {
			_, err := strconv.ParseBool(v)
			return err
		},
	}
	if err := query.ValidateFilters(params.Filters, filterValidators); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	allowedFilters := map[string]string{
		"role":      "role",
		"is_active": "is_active",
	}
	allowedSortFields := map[string]string{
		"email":      "email",
		"first_name": "first_name",
		"last_name":  "last_name",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	searchFields := []string{"first_name", "last_name", "email"}

	// List scope comes from the actor identity, never from the client.
	baseQuery := h.db.Model(&models.User{}).
		Preload("Organization").
		Where("organization_id = ?", actor.OrganizationID)

	filteredQuery := query.ApplyFilters(baseQuery, params.Filters, allowedFilters)
	searchedQuery := query.ApplySearch(filteredQuery, params.Search, searchFields)

	var total int64
	searchedQuery.Count(&total)

	finalQuery := query.ApplySort(searchedQuery, params.Sort, allowedSortFields)
	finalQuery = query.ApplyPagination(finalQuery, params.Page, params.Limit)

	var users []models.User
	if err := finalQuery.Find(&users).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve users"})
		return
	}

	response := UserListResponse{Success: true}
	response.Data.Items = users
	response.Data.Pagination = query.BuildPaginationResponse(params.Page, params.Limit, total)
	c.JSON(http.StatusOK, response)
}

// GetUser retrieves a single user
// @Summary Get user by ID
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 404 {object} map[string]string
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.findUserInOrg(actor, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// CreateUser creates a user in the actor's organization
// @Summary Create user
// @Description Create a user. Owners may assign ADMIN or VIEWER; admins only VIEWER. The OWNER role is never assignable.
// @Tags users
// @Accept json
// @Produce json
// @Param user body CreateUserRequest true "New user"
// @Security BearerAuth
// @Success 201 {object} models.User
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /users [post]
func (h *UserHandler) CreateUser(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	if !authz.CanManageUsers(actor.Role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only owners and admins can create users"})
		return
	}

	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The binding tag accepts whitespace-only names.
	if err := utils.ValidateRequired(req.FirstName, "first_name"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.ValidateRequired(req.LastName, "last_name"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// No code path ever creates a second Owner.
	if role == models.RoleOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only one Owner can exist in the system"})
		return
	}

	if decision := authz.ExplainAssignRole(actor.Role, role); !decision.Allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": decision.Reason})
		return
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not hash password"})
		return
	}

	user := models.User{
		Email:          req.Email,
		Password:       hashedPassword,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           role,
		IsActive:       true,
		OrganizationID: actor.OrganizationID,
	}

	if err := h.db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create user"})
		return
	}

	resourceID := user.ID
	audit.Record(h.db, audit.Entry{
		ActorID:        actor.ID,
		Action:         models.AuditActionCreate,
		Resource:       models.AuditResourceUser,
		ResourceID:     &resourceID,
		OrganizationID: actor.OrganizationID,
		Details:        fmt.Sprintf("Created user: %s - Role: %s", user.Email, user.Role),
		IPAddress:      c.ClientIP(),
		UserAgent:      c.GetHeader("User-Agent"),
	})

	c.JSON(http.StatusCreated, user)
}

// UpdateUser updates a user
// @Summary Update user
// @Description Update a user. Owners/admins may edit anyone in their organization; everyone may edit their own non-role fields. Role changes follow the assignment rules.
// @Tags users
// @Accept json
// @Produce json
// @Param id path string true "User ID"
// @Param user body UpdateUserRequest true "Fields to update"
// @Security BearerAuth
// @Success 200 {object} models.User
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /users/{id} [put]
func (h *UserHandler) UpdateUser(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.findUserInOrg(actor, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	isSelf := actor.ID == user.ID
	if !authz.CanManageUsers(actor.Role) && !isSelf {
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only update your own profile"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Role != nil {
		newRole, err := models.ParseRole(*req.Role)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if newRole != user.Role {
			if newRole == models.RoleOwner {
				c.JSON(http.StatusForbidden, gin.H{"error": "Only one Owner can exist in the system"})
				return
			}
			if decision := authz.ExplainAssignRole(actor.Role, newRole); !decision.Allowed {
				c.JSON(http.StatusForbidden, gin.H{"error": decision.Reason})
				return
			}
			user.Role = newRole
		}
	}

	if req.Email != nil {
		if err := utils.ValidateEmail(*req.Email); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		user.Email = *req.Email
	}
	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.IsActive != nil {
		// Deactivation is a management action, not a self-edit.
		if !authz.CanManageUsers(actor.Role) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only owners and admins can change the active flag"})
			return
		}
		user.IsActive = *req.IsActive
	}

	if err := h.db.Save(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update user"})
		return
	}

	cache.InvalidateActorSafe(user.ID)

	resourceID := user.ID
	audit.Record(h.db, audit.Entry{
		ActorID:        actor.ID,
		Action:         models.AuditActionUpdate,
		Resource:       models.AuditResourceUser,
		ResourceID:     &resourceID,
		OrganizationID: actor.OrganizationID,
		Details:        fmt.Sprintf("Updated user: %s", user.Email),
		IPAddress:      c.ClientIP(),
		UserAgent:      c.GetHeader("User-Agent"),
	})

	c.JSON(http.StatusOK, user)
}

// DeleteUser deletes a user and cascades over their tasks
// @Summary Delete user
// @Description Delete a user. Owners may delete admins and viewers; admins only viewers; nobody deletes themselves. Tasks created by the user are removed, assignments are cleared.
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /users/{id} [delete]
func (h *UserHandler) DeleteUser(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	user, err := h.findUserInOrg(actor, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if decision := authz.ExplainDeleteUser(actor.Role, user.Role, actor.ID == user.ID); !decision.Allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": decision.Reason})
		return
	}

	// Captured before deletion; the record no longer exists afterwards.
	deletedDetails := fmt.Sprintf("User deleted: %s (%s %s) - Role: %s",
		user.Email, user.FirstName, user.LastName, user.Role)

	// The cascade runs atomically. The audit append stays outside the
	// transaction: its failure must never roll back the deletion.
	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("created_by_id = ?", user.ID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Task{}).
			Where("assigned_to_id = ?", user.ID).
			Update("assigned_to_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", user.ID).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete user"})
		return
	}

	cache.InvalidateActorSafe(user.ID)

	resourceID := user.ID
	audit.Record(h.db, audit.Entry{
		ActorID:        actor.ID,
		Action:         models.AuditActionDelete,
		Resource:       models.AuditResourceUser,
		ResourceID:     &resourceID,
		OrganizationID: actor.OrganizationID,
		Details:        deletedDetails,
		IPAddress:      c.ClientIP(),
		UserAgent:      c.GetHeader("User-Agent"),
	})

	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}
