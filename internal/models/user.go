package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents user role in the platform.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleOrganizer Role = "organizer"
	RoleMember    Role = "member"
)

// User represents a platform user.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	ESNMember bool      `json:"esn_member"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanValidateAttendance reports whether the user may record attendance
// outcomes: ESN members and admins only.
func (u *User) CanValidateAttendance() bool {
	return u.ESNMember || u.Role == RoleAdmin
}

// CanManageEvents reports whether the user may create or mutate events.
func (u *User) CanManageEvents() bool {
	return u.Role == RoleAdmin || u.Role == RoleOrganizer
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	ESNMember bool      `json:"esn_member"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		ESNMember: u.ESNMember,
		CreatedAt: u.CreatedAt,
	}
}
