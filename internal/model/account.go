package model

import "time"

// Account represents a row in the `accounts` table. Emails are stored
// lowercased so uniqueness checks are case-insensitive. The password hash is
// a bcrypt digest and must never leave the repository layer; handlers expose
// the Identity projection instead.
//
// Fields:
//  ID           – opaque UUID primary key.
//  Email        – unique, lowercased email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (admin, manager, analyst).
//  Name         – display name shown in the dashboard.
//  AvatarURL    – optional avatar image URL (nullable).
//  IsActive     – soft-deactivation flag; inactive accounts cannot sign in.
//  LastLogin    – timestamp of the most recent successful sign-in (nullable).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Account struct {
	ID           string     // accounts.id
	Email        string     // accounts.email
	PasswordHash string     // accounts.password_hash
	Role         string     // accounts.role
	Name         string     // accounts.name
	AvatarURL    *string    // accounts.avatar_url (nullable)
	IsActive     bool       // accounts.is_active
	LastLogin    *time.Time // accounts.last_login (nullable)
	CreatedAt    time.Time  // accounts.created_at
	UpdatedAt    time.Time  // accounts.updated_at
}

// Identity is the client-facing projection of an Account. It carries no
// secret material and is re-derived from server state on every restore; it is
// never authoritative.
type Identity struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      string     `json:"role"`
	Avatar    *string    `json:"avatar,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// IdentityOf builds the client projection for an account.
func IdentityOf(a Account) Identity {
	return Identity{
		ID:        a.ID,
		Email:     a.Email,
		Name:      a.Name,
		Role:      a.Role,
		Avatar:    a.AvatarURL,
		CreatedAt: a.CreatedAt,
		LastLogin: a.LastLogin,
		IsActive:  a.IsActive,
	}
}
