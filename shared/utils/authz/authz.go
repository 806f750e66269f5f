// Package authz is the single authority for role and ownership decisions.
// Every mutating operation consults these functions; they are pure and hold
// no state, so a decision depends only on the actor, the action and the
// target passed in.
package authz

import (
	"fmt"

	"taskhub-backend/shared/database/models"

	"github.com/google/uuid"
)

// Decision carries an allow/deny verdict plus a human-readable reason for
// the deny path. The reason is informational only and never parsed.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(format string, args ...interface{}) Decision {
	return Decision{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

// roleRank orders roles by privilege. Higher rank wins.
func roleRank(role models.Role) int {
	switch role {
	case models.RoleOwner:
		return 3
	case models.RoleAdmin:
		return 2
	case models.RoleViewer:
		return 1
	}
	return 0
}

// CanAssignRole reports whether an actor may hand out target as a role.
// OWNER is never assignable: it is granted once, at bootstrap registration,
// and through no other code path.
func CanAssignRole(actor, target models.Role) bool {
	return ExplainAssignRole(actor, target).Allowed
}

// ExplainAssignRole is CanAssignRole with the deny reason attached.
func ExplainAssignRole(actor, target models.Role) Decision {
	if !actor.Valid() || !target.Valid() {
		return deny("invalid role")
	}
	if target == models.RoleOwner {
		return deny("the OWNER role cannot be assigned")
	}
	switch actor {
	case models.RoleOwner:
		return allow()
	case models.RoleAdmin:
		if target == models.RoleViewer {
			return allow()
		}
		return deny("admins can only assign the VIEWER role")
	}
	return deny("viewers cannot assign roles")
}

// CanDeleteUser reports whether an actor role may delete a user holding
// target. Self-deletion is always denied, regardless of role.
func CanDeleteUser(actor, target models.Role, isSelf bool) bool {
	return ExplainDeleteUser(actor, target, isSelf).Allowed
}

// ExplainDeleteUser is CanDeleteUser with the deny reason attached.
func ExplainDeleteUser(actor, target models.Role, isSelf bool) Decision {
	if !actor.Valid() || !target.Valid() {
		return deny("invalid role")
	}
	if isSelf {
		return deny("you cannot delete your own account")
	}
	switch actor {
	case models.RoleOwner:
		if target == models.RoleOwner {
			return deny("owners cannot delete other owners")
		}
		return allow()
	case models.RoleAdmin:
		if target == models.RoleViewer {
			return allow()
		}
		return deny("admins can only delete viewer users")
	}
	return deny("viewers cannot delete users")
}

// CanUpdateTask reports whether the actor may modify the task. OWNER and
// ADMIN always may; a VIEWER only when they created the task or are
// assigned to it.
func CanUpdateTask(actorRole models.Role, actorID uuid.UUID, task *models.Task) bool {
	return ExplainUpdateTask(actorRole, actorID, task).Allowed
}

// ExplainUpdateTask is CanUpdateTask with the deny reason attached.
func ExplainUpdateTask(actorRole models.Role, actorID uuid.UUID, task *models.Task) Decision {
	if roleRank(actorRole) >= roleRank(models.RoleAdmin) {
		return allow()
	}
	if task.CreatedByID == actorID {
		return allow()
	}
	if task.AssignedToID != nil && *task.AssignedToID == actorID {
		return allow()
	}
	return deny("you can only update tasks you created or are assigned to")
}

// CanDeleteTask reports whether the actor may delete the task. Narrower
// than update: assignment alone does not grant delete to a VIEWER.
func CanDeleteTask(actorRole models.Role, actorID uuid.UUID, task *models.Task) bool {
	return ExplainDeleteTask(actorRole, actorID, task).Allowed
}

// ExplainDeleteTask is CanDeleteTask with the deny reason attached.
func ExplainDeleteTask(actorRole models.Role, actorID uuid.UUID, task *models.Task) Decision {
	if roleRank(actorRole) >= roleRank(models.RoleAdmin) {
		return allow()
	}
	if task.CreatedByID == actorID {
		return allow()
	}
	return deny("you can only delete tasks you created")
}

// CanManageUsers reports whether the actor role may create users or view
// the audit trail. Owner/Admin boundary shared by several endpoints.
func CanManageUsers(actor models.Role) bool {
	return roleRank(actor) >= roleRank(models.RoleAdmin)
}
