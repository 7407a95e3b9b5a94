// Package role defines the forum role hierarchy and the permission rules
// every endpoint evaluates. All checks go through Can and CanManage.
package role

// Role is a member's rank inside a single forum
type Role string

const (
	Creator   Role = "creator"
	Moderator Role = "moderator"
	Helper    Role = "helper"
	Member    Role = "member"
)

// rank orders roles: creator > moderator > helper > member. Unknown roles
// rank below member.
func (r Role) rank() int {
	switch r {
	case Creator:
		return 4
	case Moderator:
		return 3
	case Helper:
		return 2
	case Member:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the four forum roles
func (r Role) Valid() bool {
	return r.rank() > 0
}

// Assignable reports whether r may be granted through role assignment.
// The creator role is fixed at forum creation.
func (r Role) Assignable() bool {
	return r == Moderator || r == Helper || r == Member
}

// Outranks reports whether r is strictly above other
func (r Role) Outranks(other Role) bool {
	return r.rank() > other.rank()
}

// Permission is a forum-level action
type Permission string

const (
	PermPin          Permission = "pin"
	PermUnpin        Permission = "unpin"
	PermDeleteAny    Permission = "delete_any"
	PermKick         Permission = "kick"
	PermBan          Permission = "ban"
	PermAssignRole   Permission = "assign_role"
	PermManageForum  Permission = "manage_forum"
	PermInvite       Permission = "invite"
	PermPostMessages Permission = "post"
)

var grants = map[Role]map[Permission]bool{
	Creator: {
		PermPin: true, PermUnpin: true, PermDeleteAny: true, PermKick: true, PermBan: true,
		PermAssignRole: true, PermManageForum: true, PermInvite: true, PermPostMessages: true,
	},
	Moderator: {
		PermPin: true, PermDeleteAny: true, PermKick: true, PermBan: true,
		PermInvite: true, PermPostMessages: true,
	},
	Helper: {
		PermPin: true, PermInvite: true, PermPostMessages: true,
	},
	Member: {
		PermInvite: true, PermPostMessages: true,
	},
}

// Can reports whether role r holds permission p
func Can(r Role, p Permission) bool {
	return grants[r][p]
}

// CanManage reports whether actor may act on target (kick, ban, unban,
// delete their messages). The actor must strictly outrank the target and
// nobody manages the creator.
func CanManage(actor, target Role) bool {
	if target == Creator {
		return false
	}
	return actor.Outranks(target)
}

// SiteRole is the site-wide role supplied by the identity collaborator
type SiteRole string

const (
	SiteUser  SiteRole = "user"
	SiteAdmin SiteRole = "admin"
)

// Principal is the authenticated caller
type Principal struct {
	UserID   int64
	SiteRole SiteRole
}

// IsAdmin reports whether the principal bypasses forum-level checks
func (p Principal) IsAdmin() bool {
	return p.SiteRole == SiteAdmin
}
