package domain

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

// Capabilities returns the capability set granted by the role.
func (r Role) Capabilities() CapabilitySet {
	if !r.Valid() {
		return CapabilitySet{}
	}
	return NewCapabilitySet(Capability(r))
}

// User represents an account of the system.
type User struct {
	ID                    int64
	Username              string
	PasswordHash          string
	Email                 string
	FullName              string
	Role                  Role
	ProfilePicture        string
	AccountNonExpired     bool
	AccountNonLocked      bool
	CredentialsNonExpired bool
	Enabled               bool
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Active reports whether the account may authenticate.
func (u *User) Active() bool {
	return u.Enabled && u.AccountNonExpired && u.AccountNonLocked && u.CredentialsNonExpired
}

// Sanitized returns a copy of the user without credential material.
func (u *User) Sanitized() *User {
	if u == nil {
		return nil
	}
	clone := *u
	clone.PasswordHash = ""
	return &clone
}
