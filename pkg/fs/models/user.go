package models

import "time"

// UserRole represents the role of a user in the system.
type UserRole string

const (
	// RoleUser is a regular user with filesystem and storage access.
	RoleUser UserRole = "user"
	// RoleAdmin is an administrator with full permissions.
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is a known UserRole.
func (r UserRole) IsValid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents a shelf account. Every medium and filesystem item is
// owned by exactly one user; handlers reject access to items owned by
// anyone other than the authenticated caller.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"default:user;size:50" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}

// IsAdmin checks if the user has the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == string(RoleAdmin)
}

// Scope names a permission domain checked before every handler.
type Scope string

const (
	ScopeFs      Scope = "fs"
	ScopeStorage Scope = "storage"
	ScopeUser    Scope = "user"
)

// Ability is what a role may do within a scope.
type Ability string

const (
	AbilityRead  Ability = "read"
	AbilityWrite Ability = "write"
)

// RolePermission grants an ability on a scope to every user holding the
// role. Defaults are seeded at migration time; see store.SeedPermissions.
type RolePermission struct {
	Role    string `gorm:"primaryKey;size:50" json:"role"`
	Scope   Scope  `gorm:"primaryKey;size:32" json:"scope"`
	Ability Ability `gorm:"primaryKey;size:32" json:"ability"`
}

// TableName returns the table name for RolePermission.
func (RolePermission) TableName() string {
	return "role_permissions"
}

// DefaultPermissions returns the seeded role grants: admins hold every
// ability, users hold read/write on fs and storage.
func DefaultPermissions() []RolePermission {
	var perms []RolePermission
	for _, scope := range []Scope{ScopeFs, ScopeStorage, ScopeUser} {
		for _, ability := range []Ability{AbilityRead, AbilityWrite} {
			perms = append(perms, RolePermission{Role: string(RoleAdmin), Scope: scope, Ability: ability})
		}
	}
	for _, scope := range []Scope{ScopeFs, ScopeStorage} {
		for _, ability := range []Ability{AbilityRead, AbilityWrite} {
			perms = append(perms, RolePermission{Role: string(RoleUser), Scope: scope, Ability: ability})
		}
	}
	return perms
}
