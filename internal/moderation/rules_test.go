package moderation

import (
	"errors"
	"testing"

	"github.com/fkhayef/forumcore/internal/membership"
	"github.com/fkhayef/forumcore/internal/role"
)

func actorWith(r role.Role) membership.Actor {
	return membership.Actor{
		Principal: role.Principal{UserID: 1, SiteRole: role.SiteUser},
		Member:    &membership.Member{UserID: 1, Role: r, IsActive: true},
	}
}

func targetWith(r role.Role) *membership.Member {
	return &membership.Member{UserID: 2, Role: r, IsActive: true}
}

func TestAuthorize(t *testing.T) {
	siteAdmin := membership.Actor{Principal: role.Principal{UserID: 1, SiteRole: role.SiteAdmin}}

	tests := []struct {
		name    string
		actor   membership.Actor
		target  role.Role
		action  Action
		newRole role.Role
		want    error
	}{
		{"helper kicks member", actorWith(role.Helper), role.Member, ActionKick, "", ErrPermissionDenied},
		{"helper bans member", actorWith(role.Helper), role.Member, ActionBan, "", ErrPermissionDenied},
		{"member kicks member", actorWith(role.Member), role.Member, ActionKick, "", ErrPermissionDenied},
		{"moderator kicks member", actorWith(role.Moderator), role.Member, ActionKick, "", nil},
		{"moderator bans helper", actorWith(role.Moderator), role.Helper, ActionBan, "", nil},
		{"moderator bans moderator", actorWith(role.Moderator), role.Moderator, ActionBan, "", ErrPermissionDenied},
		{"moderator kicks moderator", actorWith(role.Moderator), role.Moderator, ActionKick, "", ErrPermissionDenied},
		{"moderator kicks creator", actorWith(role.Moderator), role.Creator, ActionKick, "", ErrCreatorImmutable},
		{"creator bans moderator", actorWith(role.Creator), role.Moderator, ActionBan, "", nil},
		{"admin bans creator", siteAdmin, role.Creator, ActionBan, "", ErrCreatorImmutable},
		{"admin kicks moderator", siteAdmin, role.Moderator, ActionKick, "", nil},
		{"moderator assigns role", actorWith(role.Moderator), role.Member, ActionAssignRole, role.Helper, ErrPermissionDenied},
		{"creator promotes member", actorWith(role.Creator), role.Member, ActionAssignRole, role.Moderator, nil},
		{"creator assigns creator", actorWith(role.Creator), role.Member, ActionAssignRole, role.Creator, ErrInvalidRole},
		{"creator demotes creator", siteAdmin, role.Creator, ActionAssignRole, role.Member, ErrCreatorImmutable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, targetWith(tt.target), tt.action, tt.newRole)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Authorize = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAuthorizeTargetState(t *testing.T) {
	creator := actorWith(role.Creator)

	inactive := targetWith(role.Member)
	inactive.IsActive = false
	if err := Authorize(creator, inactive, ActionKick, ""); !errors.Is(err, ErrTargetNotActive) {
		t.Fatalf("kick inactive = %v, want ErrTargetNotActive", err)
	}
	if err := Authorize(creator, inactive, ActionAssignRole, role.Helper); !errors.Is(err, ErrTargetNotActive) {
		t.Fatalf("assign inactive = %v, want ErrTargetNotActive", err)
	}
	if err := Authorize(creator, inactive, ActionUnban, ""); !errors.Is(err, ErrNotBanned) {
		t.Fatalf("unban not banned = %v, want ErrNotBanned", err)
	}

	if err := Authorize(creator, inactive, ActionBan, ""); err != nil {
		t.Fatalf("ban departed member = %v, want nil", err)
	}
	banned := targetWith(role.Member)
	banned.IsActive = false
	banned.IsBanned = true
	if err := Authorize(creator, banned, ActionBan, ""); !errors.Is(err, ErrAlreadyBanned) {
		t.Fatalf("ban banned = %v, want ErrAlreadyBanned", err)
	}

	self := targetWith(role.Member)
	self.UserID = creator.Principal.UserID
	if err := Authorize(creator, self, ActionKick, ""); !errors.Is(err, ErrSelfModeration) {
		t.Fatalf("self kick = %v, want ErrSelfModeration", err)
	}
}

func TestApplyBan(t *testing.T) {
	actor := actorWith(role.Moderator)
	target := targetWith(role.Helper)

	Apply(actor, target, ActionBan, "")
	if target.IsActive || !target.IsBanned || target.BannedBy == nil || *target.BannedBy != 1 {
		t.Fatalf("after ban: %+v", target)
	}
	if target.Role != role.Helper {
		t.Fatalf("ban changed role to %s", target.Role)
	}

	Apply(actor, target, ActionUnban, "")
	if target.IsBanned || target.BannedBy != nil || target.IsActive {
		t.Fatalf("after unban: %+v", target)
	}
}
