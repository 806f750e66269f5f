package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

func ParseTaskStatus(value string) (TaskStatus, error) {
	switch TaskStatus(value) {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled:
		return TaskStatus(value), nil
	}
	return "", fmt.Errorf("unknown task status: %q", value)
}

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityUrgent TaskPriority = "URGENT"
)

func ParseTaskPriority(value string) (TaskPriority, error) {
	switch TaskPriority(value) {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityUrgent:
		return TaskPriority(value), nil
	}
	return "", fmt.Errorf("unknown task priority: %q", value)
}

type Task struct {
	ID             uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title          string       `json:"title" gorm:"size:255;not null"`
	Description    string       `json:"description" gorm:"type:text"`
	Status         TaskStatus   `json:"status" gorm:"type:varchar(20);not null;default:'TODO'"`
	Priority       TaskPriority `json:"priority" gorm:"type:varchar(20);not null;default:'MEDIUM'"`
	Category       string       `json:"category" gorm:"size:100;default:'General'"`
	AssignedToID   *uuid.UUID   `json:"assigned_to_id" gorm:"type:uuid;index"`
	CreatedByID    uuid.UUID    `json:"created_by_id" gorm:"type:uuid;not null;index"`
	OrganizationID uuid.UUID    `json:"organization_id" gorm:"type:uuid;not null;index"`
	DueDate        *time.Time   `json:"due_date"`
	CompletedAt    *time.Time   `json:"completed_at"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`

	// Relations
	AssignedTo   *User        `json:"assigned_to,omitempty" gorm:"foreignKey:AssignedToID"`
	CreatedBy    User         `json:"created_by" gorm:"foreignKey:CreatedByID"`
	Organization Organization `json:"organization" gorm:"foreignKey:OrganizationID"`
}

// ApplyStatus moves the task to newStatus and keeps CompletedAt in step:
// non-nil iff the status is COMPLETED. Entering COMPLETED stamps now,
// leaving it clears the stamp.
func (t *Task) ApplyStatus(newStatus TaskStatus, now time.Time) {
	if newStatus == TaskStatusCompleted && t.Status != TaskStatusCompleted {
		t.CompletedAt = &now
	} else if newStatus != TaskStatusCompleted && t.Status == TaskStatusCompleted {
		t.CompletedAt = nil
	}
	t.Status = newStatus
}
