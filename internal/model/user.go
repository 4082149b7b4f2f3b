package model

import (
	"strings"
	"time"
)

// Role is the marketplace capability level of a user.
type Role string

const (
	RoleBuyer  Role = "buyer"  // default for self-registered and OAuth accounts
	RoleSeller Role = "seller" // may list products
	RoleAdmin  Role = "admin"  // may act on any product or session
)

// ParseRole converts a case-insensitive role name into a Role. The second
// return value is false for unknown names.
func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return r, true
	}
	return "", false
}

// User represents an application user record as stored in the `users`
// table. These structs are used internally by the repository and service
// layers; handlers define separate response types with JSON tags.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, trimmed and lower-cased address.
//	PasswordHash – bcrypt hash; empty for OAuth-only accounts (NULL column).
//	Name         – display name.
//	AvatarURL    – optional avatar, synced from OAuth providers.
//	Role         – buyer, seller or admin.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash (nullable)
	Name         string    // users.name
	AvatarURL    string    // users.avatar_url (nullable)
	Role         Role      // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// HasPassword reports whether password login is possible for the account.
func (u User) HasPassword() bool { return u.PasswordHash != "" }

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
