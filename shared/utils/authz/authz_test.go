package authz

import (
	"testing"

	"taskhub-backend/shared/database/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanAssignRole(t *testing.T) {
	cases := []struct {
		name   string
		actor  models.Role
		target models.Role
		want   bool
	}{
		{"owner assigns admin", models.RoleOwner, models.RoleAdmin, true},
		{"owner assigns viewer", models.RoleOwner, models.RoleViewer, true},
		{"owner assigns owner", models.RoleOwner, models.RoleOwner, false},
		{"admin assigns viewer", models.RoleAdmin, models.RoleViewer, true},
		{"admin assigns admin", models.RoleAdmin, models.RoleAdmin, false},
		{"admin assigns owner", models.RoleAdmin, models.RoleOwner, false},
		{"viewer assigns viewer", models.RoleViewer, models.RoleViewer, false},
		{"viewer assigns admin", models.RoleViewer, models.RoleAdmin, false},
		{"viewer assigns owner", models.RoleViewer, models.RoleOwner, false},
		{"unknown actor", models.Role("SUPERUSER"), models.RoleViewer, false},
		{"unknown target", models.RoleOwner, models.Role("superuser"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanAssignRole(tc.actor, tc.target))
		})
	}
}

// No role, including OWNER itself, may ever hand out OWNER.
func TestOwnerRoleIsNeverAssignable(t *testing.T) {
	for _, actor := range []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleViewer} {
		decision := ExplainAssignRole(actor, models.RoleOwner)
		assert.False(t, decision.Allowed, "actor %s must not assign OWNER", actor)
		assert.NotEmpty(t, decision.Reason)
	}
}

func TestCanDeleteUser(t *testing.T) {
	cases := []struct {
		name   string
		actor  models.Role
		target models.Role
		isSelf bool
		want   bool
	}{
		{"owner deletes admin", models.RoleOwner, models.RoleAdmin, false, true},
		{"owner deletes viewer", models.RoleOwner, models.RoleViewer, false, true},
		{"owner deletes owner", models.RoleOwner, models.RoleOwner, false, false},
		{"admin deletes viewer", models.RoleAdmin, models.RoleViewer, false, true},
		{"admin deletes admin", models.RoleAdmin, models.RoleAdmin, false, false},
		{"admin deletes owner", models.RoleAdmin, models.RoleOwner, false, false},
		{"viewer deletes viewer", models.RoleViewer, models.RoleViewer, false, false},
		{"viewer deletes admin", models.RoleViewer, models.RoleAdmin, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanDeleteUser(tc.actor, tc.target, tc.isSelf))
		})
	}
}

// Self-deletion is denied for every role, even where the role pair alone
// would permit the delete.
func TestSelfDeletionAlwaysDenied(t *testing.T) {
	for _, role := range []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleViewer} {
		decision := ExplainDeleteUser(role, role, true)
		assert.False(t, decision.Allowed, "role %s must not delete itself", role)
		assert.Equal(t, "you cannot delete your own account", decision.Reason)
	}
}

// Cross product of {role} x {creator/assignee/neither} x {update, delete}.
func TestTaskPermissionMatrix(t *testing.T) {
	actorID := uuid.New()
	otherID := uuid.New()

	type relation string
	const (
		creator  relation = "creator"
		assignee relation = "assignee"
		neither  relation = "neither"
	)

	buildTask := func(rel relation) *models.Task {
		task := &models.Task{
			ID:          uuid.New(),
			CreatedByID: otherID,
		}
		switch rel {
		case creator:
			task.CreatedByID = actorID
		case assignee:
			assigned := actorID
			task.AssignedToID = &assigned
		}
		return task
	}

	cases := []struct {
		role       models.Role
		rel        relation
		wantUpdate bool
		wantDelete bool
	}{
		{models.RoleOwner, creator, true, true},
		{models.RoleOwner, assignee, true, true},
		{models.RoleOwner, neither, true, true},
		{models.RoleAdmin, creator, true, true},
		{models.RoleAdmin, assignee, true, true},
		{models.RoleAdmin, neither, true, true},
		{models.RoleViewer, creator, true, true},
		{models.RoleViewer, assignee, true, false},
		{models.RoleViewer, neither, false, false},
	}

	for _, tc := range cases {
		t.Run(string(tc.role)+"/"+string(tc.rel), func(t *testing.T) {
			task := buildTask(tc.rel)
			assert.Equal(t, tc.wantUpdate, CanUpdateTask(tc.role, actorID, task), "update")
			assert.Equal(t, tc.wantDelete, CanDeleteTask(tc.role, actorID, task), "delete")
		})
	}
}

func TestViewerAssignedToOtherUserTask(t *testing.T) {
	actorID := uuid.New()
	someoneElse := uuid.New()
	task := &models.Task{
		ID:           uuid.New(),
		CreatedByID:  someoneElse,
		AssignedToID: &someoneElse,
	}

	assert.False(t, CanUpdateTask(models.RoleViewer, actorID, task))
	assert.False(t, CanDeleteTask(models.RoleViewer, actorID, task))
}

func TestCanManageUsers(t *testing.T) {
	assert.True(t, CanManageUsers(models.RoleOwner))
	assert.True(t, CanManageUsers(models.RoleAdmin))
	assert.False(t, CanManageUsers(models.RoleViewer))
	assert.False(t, CanManageUsers(models.Role("")))
}
