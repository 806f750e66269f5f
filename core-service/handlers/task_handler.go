package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskhub-backend/core-service/middleware"
	"taskhub-backend/shared/audit"
	"taskhub-backend/shared/database/models"
	"taskhub-backend/shared/utils/authz"
	"taskhub-backend/shared/utils/query"
)

type TaskHandler struct {
	db *gorm.DB
}

func NewTaskHandler(db *gorm.DB) *TaskHandler {
	return &TaskHandler{db: db}
}

// CreateTaskRequest represents request body for creating a task. Status is
// not accepted: new tasks always start as TODO.
type CreateTaskRequest struct {
	Title        string     `json:"title" binding:"required"`
	Description  string     `json:"description"`
	Priority     string     `json:"priority"`
	Category     string     `json:"category"`
	AssignedToID *uuid.UUID `json:"assigned_to_id"`
	DueDate      *time.Time `json:"due_date"`
}

// UpdateTaskRequest represents request body for updating a task. Absent
// fields are left untouched.
type UpdateTaskRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	Status       *string    `json:"status"`
	Priority     *string    `json:"priority"`
	Category     *string    `json:"category"`
	AssignedToID *uuid.UUID `json:"assigned_to_id"`
	DueDate      *time.Time `json:"due_date"`
}

// TaskListResponse represents a list of tasks with pagination
type TaskListResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Items      []models.Task            `json:"items"`
		Pagination query.PaginationResponse `json:"pagination"`
	} `json:"data"`
}

// findTaskInOrg loads a task visible to the actor. A task in another
// organization is reported exactly like a missing one.
func (h *TaskHandler) findTaskInOrg(actor middleware.Actor, id uuid.UUID) (*models.Task, error) {
	var task models.Task
	err := h.db.Preload("CreatedBy").Preload("AssignedTo").
		Where("id = ? AND organization_id = ?", id, actor.OrganizationID).
		First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// validateAssignee checks that an assignee belongs to the actor's
// organization before a task is pointed at them.
func (h *TaskHandler) validateAssignee(actor middleware.Actor, assigneeID uuid.UUID) error {
	var assignee models.User
	return h.db.Where("id = ? AND organization_id = ?", assigneeID, actor.OrganizationID).
		First(&assignee).Error
}

// CreateTask creates a task in the actor's organization
// @Summary Create task
// @Description Create a task. Any authenticated user may create; status is forced to TODO and the organization to the actor's.
// @Tags tasks
// @Accept json
// @Produce json
// @Param task body CreateTaskRequest true "New task"
// @Security BearerAuth
// @Success 201 {object} models.Task
// @Failure 400 {object} map[string]string
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	priority := models.TaskPriorityMedium
	if req.Priority != "" {
		parsed, err := models.ParseTaskPriority(req.Priority)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		priority = parsed
	}

	category := req.Category
	if category == "" {
		category = "General"
	}

	if req.AssignedToID != nil {
		if err := h.validateAssignee(actor, *req.AssignedToID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Assignee not found in your organization"})
			return
		}
	}

	task := models.Task{
		Title:          req.Title,
		Description:    req.Description,
		Status:         models.TaskStatusTodo,
		Priority:       priority,
		Category:       category,
		AssignedToID:   req.AssignedToID,
		CreatedByID:    actor.ID,
		OrganizationID: actor.OrganizationID,
		DueDate:        req.DueDate,
	}

	if err := h.db.Create(&task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create task"})
		return
	}

	resourceID := task.ID
	audit.Record(h.db, audit.Entry{
		ActorID:        actor.ID,
		Action:         models.AuditActionCreate,
		Resource:       models.AuditResourceTask,
		ResourceID:     &resourceID,
		OrganizationID: actor.OrganizationID,
		Details:        fmt.Sprintf("Created task: %s", task.Title),
		IPAddress:      c.ClientIP(),
		UserAgent:      c.GetHeader("User-Agent"),
	})

	c.JSON(http.StatusCreated, task)
}

// GetTasks lists the actor's organization tasks
// @Summary List tasks
// @Description List all tasks of the actor's organization. No role restriction: every member can list.
// @Tags tasks
// @Produce json
// @Param page query int false "Page number (default: 1)"
// @Param limit query int false "Items per page (default: 10)"
// @Param search query string false "Search term across title and description"
// @Param filters[status] query string false "Filter by status"
// @Param filters[priority] query string false "Filter by priority"
// @Param filters[category] query string false "Filter by category"
// @Param sort[field] query string false "Sort field (title, due_date, created_at)"
// @Param sort[order] query string false "Sort order (asc, desc)"
// @Security BearerAuth
// @Success 200 {object} handlers.TaskListResponse
// @Router /tasks [get]
func (h *TaskHandler) GetTasks(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	h.listTasks(c, actor, h.db.Model(&models.Task{}).
		Where("organization_id = ?", actor.OrganizationID))
}

// GetMyTasks lists tasks the actor created or is assigned to
// @Summary List my tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} handlers.TaskListResponse
// @Router /tasks/my [get]
func (h *TaskHandler) GetMyTasks(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	h.listTasks(c, actor, h.db.Model(&models.Task{}).
		Where("organization_id = ?", actor.OrganizationID).
		Where("created_by_id = ? OR assigned_to_id = ?", actor.ID, actor.ID))
}

// GetTasksByUser lists tasks created by or assigned to a given user,
// still scoped to the actor's organization
// @Summary List tasks by user
// @Tags tasks
// @Produce json
// @Param id path string true "User ID"
// @Security BearerAuth
// @Success 200 {object} handlers.TaskListResponse
// @Failure 400 {object} map[string]string
// @Router /tasks/user/{id} [get]
func (h *TaskHandler) GetTasksByUser(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	h.listTasks(c, actor, h.db.Model(&models.Task{}).
		Where("organization_id = ?", actor.OrganizationID).
		Where("created_by_id = ? OR assigned_to_id = ?", userID, userID))
}

func (h *TaskHandler) listTasks(c *gin.Context, actor middleware.Actor, baseQuery *gorm.DB) {
	params := query.ParseQueryParams(c)

	filterValidators := map[string]query.FilterValidator{
		"status": func(v string) error {
			_, err := models.ParseTaskStatus(v)
			return err
		},
		"priority": func(v string) error {
			_, err := models.ParseTaskPriority(v)
			return err
		},
		"assigned_to_id": func(v string) error {
			_, err := uuid.Parse(v)
			return err
		},
	}
	if err := query.ValidateFilters(params.Filters, filterValidators); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	allowedFilters := map[string]string{
		"status":         "status",
		"priority":       "priority",
		"category":       "category",
		"assigned_to_id": "assigned_to_id",
	}
	allowedSortFields := map[string]string{
		"title":      "title",
		"status":     "status",
		"priority":   "priority",
		"due_date":   "due_date",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	searchFields := []string{"title", "description"}

	baseQuery = baseQuery.Preload("CreatedBy").Preload("AssignedTo")

	filteredQuery := query.ApplyFilters(baseQuery, params.Filters, allowedFilters)
	searchedQuery := query.ApplySearch(filteredQuery, params.Search, searchFields)

	var total int64
	searchedQuery.Count(&total)

	finalQuery := query.ApplySort(searchedQuery, params.Sort, allowedSortFields)
	finalQuery = query.ApplyPagination(finalQuery, params.Page, params.Limit)

	var tasks []models.Task
	if err := finalQuery.Find(&tasks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	response := TaskListResponse{Success: true}
	response.Data.Items = tasks
	response.Data.Pagination = query.BuildPaginationResponse(params.Page, params.Limit, total)
	c.JSON(http.StatusOK, response)
}

// GetTask retrieves a single task
// @Summary Get task by ID
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Security BearerAuth
// @Success 200 {object} models.Task
// @Failure 404 {object} map[string]string
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	task, err := h.findTaskInOrg(actor, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// UpdateTask updates a task
// @Summary Update task
// @Description Update a task. Owners/admins may update any task; viewers only tasks they created or are assigned to. Completing a task stamps completed_at, leaving COMPLETED clears it.
// @Tags tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param task body UpdateTaskRequest true "Fields to update"
// @Security BearerAuth
// @Success 200 {object} models.Task
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	task, err := h.findTaskInOrg(actor, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	if decision := authz.ExplainUpdateTask(actor.Role, actor.ID, task); !decision.Allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": decision.Reason})
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Status != nil {
		newStatus, err := models.ParseTaskStatus(*req.Status)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		task.ApplyStatus(newStatus, time.Now())
	}
	if req.Priority != nil {
		newPriority, err := models.ParseTaskPriority(*req.Priority)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		task.Priority = newPriority
	}
	if req.AssignedToID != nil {
		if err := h.validateAssignee(actor, *req.AssignedToID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Assignee not found in your organization"})
			return
		}
		task.AssignedToID = req.AssignedToID
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Category != nil {
		task.Category = *req.Category
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}

	// Save with Select so clearing CompletedAt back to nil is persisted.
	if err := h.db.Model(task).
		Select("Title", "Description", "Status", "Priority", "Category",
			"AssignedToID", "DueDate", "CompletedAt", "UpdatedAt").
		Updates(task).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not update task"})
		return
	}

	resourceID := task.ID
	audit.Record(h.db, audit.Entry{
		ActorID:        actor.ID,
		Action:         models.AuditActionUpdate,
		Resource:       models.AuditResourceTask,
		ResourceID:     &resourceID,
		OrganizationID: actor.OrganizationID,
		Details:        fmt.Sprintf("Updated task: %s", task.Title),
		IPAddress:      c.ClientIP(),
		UserAgent:      c.GetHeader("User-Agent"),
	})

	c.JSON(http.StatusOK, task)
}

// DeleteTask deletes a task
// @Summary Delete task
// @Description Delete a task. Owners/admins may delete any task; viewers only tasks they created. Assignment alone does not grant delete.
// @Tags tasks
// @Produce json
// @Param id path string true "Task ID"
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	task, err := h.findTaskInOrg(actor, id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}

	if decision := authz.ExplainDeleteTask(actor.Role, actor.ID, task); !decision.Allowed {
		c.JSON(http.StatusForbidden, gin.H{"error": decision.Reason})
		return
	}

	// Appended before the delete so the entry still references the title.
	resourceID := task.ID
	audit.Record(h.db, audit.Entry{
		ActorID:        actor.ID,
		Action:         models.AuditActionDelete,
		Resource:       models.AuditResourceTask,
		ResourceID:     &resourceID,
		OrganizationID: actor.OrganizationID,
		Details:        fmt.Sprintf("Deleted task: %s", task.Title),
		IPAddress:      c.ClientIP(),
		UserAgent:      c.GetHeader("User-Agent"),
	})

	if err := h.db.Delete(&models.Task{}, "id = ?", task.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}
