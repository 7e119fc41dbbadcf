package schema

import "time"

// Role is the authorization tier attached to an authenticated subject.
// The server re-reads it from the store on every request; clients should
// treat it as informational.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// User is the public representation of an account. The password hash never
// appears on the wire.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Credentials is the register/login request body.
type Credentials struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by a successful login or registration.
type AuthResponse struct {
	User User `json:"user"`
}
