package authz

// Authority represents a single permitted action within a project
type Authority string

const (
	AuthoritySeeProject    Authority = "see_project"
	AuthorityUpdateProject Authority = "update_project"
	AuthorityDeleteProject Authority = "delete_project"
	AuthorityCreateTask    Authority = "create_task"
	AuthorityUpdateTask    Authority = "update_task"
	AuthorityDeleteTask    Authority = "delete_task"
	AuthorityInvite        Authority = "invite"
	AuthorityAssignRoles   Authority = "assign_roles"
)

// Role represents a named bundle of authorities assigned to a project member
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

// roleAuthorities is the static role → authority mapping. It is defined once
// here and read-only everywhere else; AuthoritiesOf hands out copies.
var roleAuthorities = map[Role][]Authority{
	RoleUser: {
		AuthoritySeeProject,
		AuthorityCreateTask,
		AuthorityUpdateTask,
	},
	RoleAdmin: {
		AuthoritySeeProject,
		AuthorityUpdateProject,
		AuthorityCreateTask,
		AuthorityUpdateTask,
		AuthorityDeleteTask,
	},
	RoleOwner: {
		AuthoritySeeProject,
		AuthorityUpdateProject,
		AuthorityDeleteProject,
		AuthorityCreateTask,
		AuthorityUpdateTask,
		AuthorityDeleteTask,
		AuthorityInvite,
		AuthorityAssignRoles,
	},
}

// Roles returns all known roles
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleOwner}
}

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	_, ok := roleAuthorities[r]
	return ok
}

// AuthoritiesOf returns the authority set of a role. Unknown roles have no
// authorities. The returned slice is a copy and safe to modify.
func AuthoritiesOf(role Role) []Authority {
	authorities, ok := roleAuthorities[role]
	if !ok {
		return nil
	}
	out := make([]Authority, len(authorities))
	copy(out, authorities)
	return out
}

// HasAuthority reports whether the role's authority set contains the authority
func (r Role) HasAuthority(authority Authority) bool {
	for _, a := range roleAuthorities[r] {
		if a == authority {
			return true
		}
	}
	return false
}
