// Package moderation implements kick, ban, unban and role assignment on
// top of the membership service, which remains the only writer of member
// rows. The rules deciding who may act on whom live in Authorize.
package moderation

import (
	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/role"
	"github.com/fkhayef/forumcore/pkg/apperror"
)

// Action is a moderation action
type Action string

const (
	ActionKick       Action = "kick"
	ActionBan        Action = "ban"
	ActionUnban      Action = "unban"
	ActionAssignRole Action = "assign_role"
)

// Common errors
var (
	ErrPermissionDenied = apperror.New(apperror.KindPermissionDenied, "insufficient forum permissions")
	ErrCreatorImmutable = apperror.New(apperror.KindPermissionDenied, "the forum creator cannot be moderated")
	ErrSelfModeration   = apperror.New(apperror.KindPermissionDenied, "you cannot moderate yourself")
	ErrTargetNotActive  = apperror.New(apperror.KindNotFound, "member is not active in this forum")
	ErrNotBanned        = apperror.New(apperror.KindConflict, "member is not banned")
	ErrAlreadyBanned    = apperror.New(apperror.KindConflict, "member is already banned")
	ErrInvalidRole      = apperror.New(apperror.KindValidation, "role must be one of moderator, helper, member")
)

var actionPermission = map[Action]role.Permission{
	ActionKick:       role.PermKick,
	ActionBan:        role.PermBan,
	ActionUnban:      role.PermBan,
	ActionAssignRole: role.PermAssignRole,
}

// Authorize decides whether actor may apply action to target. newRole is
// only read for ActionAssignRole.
func Authorize(actor membership.Actor, target *membership.Member, action Action, newRole role.Role) error {
	if target.UserID == actor.Principal.UserID {
		return ErrSelfModeration
	}
	if target.Role == role.Creator {
		return ErrCreatorImmutable
	}

	perm, ok := actionPermission[action]
	if !ok || !actor.Can(perm) {
		return ErrPermissionDenied
	}

	switch action {
	case ActionKick:
		if !target.IsActive {
			return ErrTargetNotActive
		}
	case ActionBan:
		// a member who already left can still be banned to stop a rejoin
		if target.IsBanned {
			return ErrAlreadyBanned
		}
	case ActionUnban:
		if !target.IsBanned {
			return ErrNotBanned
		}
	case ActionAssignRole:
		if !newRole.Assignable() {
			return ErrInvalidRole
		}
		if !target.IsActive {
			return ErrTargetNotActive
		}
		// only the creator assigns roles, so rank is already settled
		return nil
	}

	if !actor.CanManage(target.Role) {
		return ErrPermissionDenied
	}
	return nil
}

// Apply mutates target for an authorized action
func Apply(actor membership.Actor, target *membership.Member, action Action, newRole role.Role) {
	switch action {
	case ActionKick:
		target.IsActive = false
	case ActionBan:
		bannedBy := actor.Principal.UserID
		target.IsActive = false
		target.IsBanned = true
		target.BannedBy = &bannedBy
	case ActionUnban:
		target.IsBanned = false
		target.BannedBy = nil
	case ActionAssignRole:
		target.Role = newRole
	}
}
