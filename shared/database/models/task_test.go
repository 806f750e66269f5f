package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyStatusSetsCompletedAt(t *testing.T) {
	now := time.Now()
	task := Task{Status: TaskStatusTodo}

	task.ApplyStatus(TaskStatusCompleted, now)

	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, now, *task.CompletedAt)
	assert.Equal(t, TaskStatusCompleted, task.Status)
}

func TestApplyStatusClearsCompletedAt(t *testing.T) {
	completed := time.Now().Add(-time.Hour)
	task := Task{Status: TaskStatusCompleted, CompletedAt: &completed}

	task.ApplyStatus(TaskStatusInProgress, time.Now())

	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, TaskStatusInProgress, task.Status)
}

// Toggling A -> COMPLETED -> A restores CompletedAt to nil.
func TestApplyStatusRoundTrip(t *testing.T) {
	task := Task{Status: TaskStatusTodo}

	task.ApplyStatus(TaskStatusCompleted, time.Now())
	require.NotNil(t, task.CompletedAt)

	task.ApplyStatus(TaskStatusTodo, time.Now())
	assert.Nil(t, task.CompletedAt)
	assert.Equal(t, TaskStatusTodo, task.Status)
}

// Re-completing an already completed task keeps the original stamp.
func TestApplyStatusCompletedToCompleted(t *testing.T) {
	first := time.Now().Add(-time.Hour)
	task := Task{Status: TaskStatusCompleted, CompletedAt: &first}

	task.ApplyStatus(TaskStatusCompleted, time.Now())

	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, first, *task.CompletedAt)
}

func TestParseRoleStrict(t *testing.T) {
	role, err := ParseRole("ADMIN")
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, role)

	// Unknown and differently-cased values are rejected, never defaulted.
	for _, bad := range []string{"", "admin", "SUPERUSER", "viewer "} {
		_, err := ParseRole(bad)
		assert.Error(t, err, "value %q", bad)
	}
}

func TestParseTaskStatusAndPriority(t *testing.T) {
	status, err := ParseTaskStatus("IN_PROGRESS")
	require.NoError(t, err)
	assert.Equal(t, TaskStatusInProgress, status)

	_, err = ParseTaskStatus("DONE")
	assert.Error(t, err)

	priority, err := ParseTaskPriority("URGENT")
	require.NoError(t, err)
	assert.Equal(t, TaskPriorityUrgent, priority)

	_, err = ParseTaskPriority("CRITICAL")
	assert.Error(t, err)
}
