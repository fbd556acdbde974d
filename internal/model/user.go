package model

import "time"

// Role names stored in users.role.
const (
    RoleAdmin = "admin"
    RoleUser  = "user"
)

// User represents an application user record as stored in the
// `users` table.  The password hash never leaves the repository
// layer in API responses; handlers copy the public fields into their
// own response types.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique login name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – admin or user.
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64    `json:"id"`         // users.id
    Username     string    `json:"username"`   // users.username
    Email        string    `json:"email"`      // users.email
    PasswordHash string    `json:"-"`          // users.password_hash
    Role         string    `json:"role"`       // users.role
    CreatedAt    time.Time `json:"created_at"` // users.created_at
}
