package entity

import (
	"time"
)

// User is the persisted credential record.
// PasswordHash holds a bcrypt hash and is left empty by default-projection reads.
// Role may be empty for records created before roles existed.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasSecret reports whether the record was read with its password hash.
func (u *User) HasSecret() bool {
	return u != nil && u.PasswordHash != ""
}
