package core

import "time"

type User struct {
	ID        string       `json:"id" db:"id"`
	UID       *string      `json:"-" db:"uid"`
	Email     string       `json:"email" db:"email"`
	Username  string       `json:"username" db:"username"`
	Role      UserRoleName `json:"role" db:"role"`
	Password  string       `json:"-" db:"password"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}

func (u *User) IsDoctor() bool {
	return u.Role == RoleDoctor
}
