package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Role controls whether a user may write the shared workspace directly and
// review change requests.
type Role string

const (
	RoleRegular    Role = "REGULAR"
	RolePrivileged Role = "PRIVILEGED"
)

func NewRole(r string) (Role, error) {
	role := Role(r)
	if !role.IsValid() {
		return "", errors.New("invalid role")
	}
	return role, nil
}

func (r Role) IsValid() bool {
	switch r {
	case RoleRegular, RolePrivileged:
		return true
	}
	return false
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanReview reports whether the user may review change requests and write
// the shared workspace directly.
func (u *User) CanReview() bool {
	return u.Role == RolePrivileged
}
