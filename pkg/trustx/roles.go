package trustx

import "strings"

// RolePrefix is the canonical authority prefix. Role names travel unprefixed
// in tokens and prefixed in authority headers; both forms name the same role.
const RolePrefix = "ROLE_"

// Canonical returns the prefixed form of a role name ("ADMIN" and
// "ROLE_ADMIN" both canonicalise to "ROLE_ADMIN"). Empty input stays empty.
func Canonical(role string) string {
	role = strings.TrimSpace(role)
	if role == "" {
		return ""
	}
	role = strings.ToUpper(role)
	if strings.HasPrefix(role, RolePrefix) {
		return role
	}
	return RolePrefix + role
}

// Bare strips the canonical prefix, returning the unprefixed role name.
func Bare(role string) string {
	return strings.TrimPrefix(Canonical(role), RolePrefix)
}

// RoleEqual reports whether two role names refer to the same role regardless
// of prefix form.
func RoleEqual(a, b string) bool {
	return Canonical(a) == Canonical(b)
}

// ContainsRole reports whether the list holds the role in either form.
func ContainsRole(roles []string, role string) bool {
	want := Canonical(role)
	for _, r := range roles {
		if Canonical(r) == want {
			return true
		}
	}
	return false
}
