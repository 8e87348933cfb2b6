package domain

import "time"

type User struct {
	ID           string
	Email        string
	FullName     string
	Phone        string
	PasswordHash string // argon2 encoded
	Roles        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasRole reports whether the user currently holds the given role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
