package domain

// Role names as stored (unprefixed). The ROLE_ authority prefix is added at
// the trust boundary, never persisted.
const (
	RoleUser    = "USER"
	RoleManager = "MANAGER"
	RoleAdmin   = "ADMIN"
)

var knownRoles = map[string]struct{}{
	RoleUser:    {},
	RoleManager: {},
	RoleAdmin:   {},
}

// IsKnownRole reports whether name is one of the platform roles.
func IsKnownRole(name string) bool {
	_, ok := knownRoles[name]
	return ok
}

// IsGrantableRole reports whether name may be granted or revoked through role
// administration. USER is held by every account and is never administered.
func IsGrantableRole(name string) bool {
	return IsKnownRole(name) && name != RoleUser
}
