package models

import (
	"database/sql"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID               int64          `db:"id"`
	Email            string         `db:"email"`
	PasswordHash     string         `db:"password_hash"`
	Role             Role           `db:"role"`
	RefreshTokenHash sql.NullString `db:"refresh_token_hash"`
	CreatedAt        time.Time      `db:"created_at"`
}

// PublicUser is the wire representation of a user. Password and refresh
// token hashes never leave the server.
type PublicUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Public returns the client-safe view of the user.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

// Claims defines the access-token claims: identity, email and role.
type Claims struct {
	UserID int64  `json:"id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// RefreshClaims defines the refresh-token claims. Only the subject id is
// carried; everything else is re-read from the database on refresh.
type RefreshClaims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}
