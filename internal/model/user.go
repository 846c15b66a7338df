package model

import "github.com/google/uuid"

const ROLE_ADMIN = "admin"

type User struct {
	ID   uuid.UUID `json:"id"`
	Role string    `json:"role"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == ROLE_ADMIN
}
