package core

// UserRoleName is type of user role
type UserRoleName string

const (
	// RoleDoctor answers queries and sees patients
	RoleDoctor UserRoleName = "doctor"
	// RolePatient books appointments and asks doctors
	RolePatient UserRoleName = "patient"
)

func (r UserRoleName) Valid() bool {
	return r == RoleDoctor || r == RolePatient
}
