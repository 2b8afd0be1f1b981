package models

// Role enum
type Role string

const (
	RoleAdmin         Role = "admin"
	RoleHospitalAdmin Role = "hospital_admin"
	RoleClinicAdmin   Role = "clinic_admin"
	RoleDoctor        Role = "doctor"
)

// Valid reports whether r is one of the known dashboard roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleHospitalAdmin, RoleClinicAdmin, RoleDoctor:
		return true
	}
	return false
}
