package dtos

import (
	"time"

	"github.com/google/uuid"

	"github.com/promptdesk/promptdesk/modules/prompts/domain/aggregates/user"
)

type RegisterUserDTO struct {
	Email string `json:"email" validate:"required,email"`
}

type ChangeRoleDTO struct {
	Role string `json:"role" validate:"required,oneof=REGULAR PRIVILEGED"`
}

func (d *RegisterUserDTO) Ok() (map[string]string, bool) {
	return validateStruct(d)
}

func (d *ChangeRoleDTO) Ok() (map[string]string, bool) {
	return validateStruct(d)
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type UserListResponse struct {
	Data  []UserResponse `json:"data"`
	Total int            `json:"total"`
}
