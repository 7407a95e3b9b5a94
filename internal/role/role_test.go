package role

import "testing"

func TestCanManage(t *testing.T) {
	tests := []struct {
		actor, target Role
		want          bool
	}{
		{Creator, Moderator, true},
		{Creator, Helper, true},
		{Creator, Member, true},
		{Creator, Creator, false},
		{Moderator, Helper, true},
		{Moderator, Member, true},
		{Moderator, Moderator, false},
		{Moderator, Creator, false},
		{Helper, Member, true},
		{Helper, Helper, false},
		{Member, Member, false},
		{Member, Helper, false},
	}

	for _, tt := range tests {
		if got := CanManage(tt.actor, tt.target); got != tt.want {
			t.Errorf("CanManage(%s, %s) = %v, want %v", tt.actor, tt.target, got, tt.want)
		}
	}
}

func TestHelperMayOnlyPin(t *testing.T) {
	if !Can(Helper, PermPin) {
		t.Error("helper should be able to pin")
	}
	for _, p := range []Permission{PermUnpin, PermDeleteAny, PermKick, PermBan, PermAssignRole, PermManageForum} {
		if Can(Helper, p) {
			t.Errorf("helper should not hold %s", p)
		}
	}
}

func TestModeratorPermissions(t *testing.T) {
	for _, p := range []Permission{PermPin, PermDeleteAny, PermKick, PermBan} {
		if !Can(Moderator, p) {
			t.Errorf("moderator should hold %s", p)
		}
	}
	for _, p := range []Permission{PermUnpin, PermAssignRole, PermManageForum} {
		if Can(Moderator, p) {
			t.Errorf("moderator should not hold %s", p)
		}
	}
}

func TestMemberHasNoModeration(t *testing.T) {
	for _, p := range []Permission{PermPin, PermUnpin, PermDeleteAny, PermKick, PermBan, PermAssignRole} {
		if Can(Member, p) {
			t.Errorf("member should not hold %s", p)
		}
	}
	if !Can(Member, PermPostMessages) {
		t.Error("member should be able to post")
	}
}

func TestUnknownRole(t *testing.T) {
	unknown := Role("owner")
	if unknown.Valid() {
		t.Error("unknown role reported valid")
	}
	if Can(unknown, PermPostMessages) {
		t.Error("unknown role holds a permission")
	}
	if Member.Outranks(unknown) != true {
		t.Error("member should outrank an unknown role")
	}
}

func TestAssignable(t *testing.T) {
	if Creator.Assignable() {
		t.Error("creator must not be assignable")
	}
	for _, r := range []Role{Moderator, Helper, Member} {
		if !r.Assignable() {
			t.Errorf("%s should be assignable", r)
		}
	}
}
