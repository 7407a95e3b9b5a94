package membership

import "github.com/fkhayef/forumcore/internal/role"

// Actor is the caller of a forum operation together with their member row
// in that forum, if any. All permission decisions go through its methods.
type Actor struct {
	Principal role.Principal
	Member    *Member
}

// IsMember reports whether the actor holds an active row
func (a Actor) IsMember() bool {
	return a.Member != nil && a.Member.IsActive
}

// IsBanned reports whether the actor is banned from the forum
func (a Actor) IsBanned() bool {
	return a.Member != nil && a.Member.IsBanned
}

// Role is the actor's effective forum role, empty for non-members
func (a Actor) Role() role.Role {
	if !a.IsMember() {
		return ""
	}
	return a.Member.Role
}

// Can reports whether the actor holds p. Site admins hold everything.
func (a Actor) Can(p role.Permission) bool {
	if a.Principal.IsAdmin() {
		return true
	}
	return role.Can(a.Role(), p)
}

// CanManage reports whether the actor may act on a member with the target
// role. Nobody manages the creator, site admins included.
func (a Actor) CanManage(target role.Role) bool {
	if target == role.Creator {
		return false
	}
	if a.Principal.IsAdmin() {
		return true
	}
	return role.CanManage(a.Role(), target)
}

// Access is a resolved (forum, caller) pair
type Access struct {
	Forum *ForumInfo
	Actor Actor
}
