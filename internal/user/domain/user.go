package domain

import "time"

// Roles
const (
	RoleStudent       = "student"
	RoleKitchen       = "kitchen"
	RoleDutyOfficer   = "duty-officer"
	RoleYearCommander = "year-commander"
	RoleAdmin         = "admin"
)

// Years outside the curricular range 1-6
const (
	YearConcluded     = 0
	YearFoundation    = 7
	YearComplementary = 8
)

// ValidRole reports whether role is one of the five known roles
func ValidRole(role string) bool {
	switch role {
	case RoleStudent, RoleKitchen, RoleDutyOfficer, RoleYearCommander, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the system. NII is the public login
// identifier; NI is the roster number.
type User struct {
	ID                 string     `db:"id" json:"id"`
	NII                string     `db:"nii" json:"nii"`
	NI                 string     `db:"ni" json:"ni"`
	FullName           string     `db:"full_name" json:"full_name"`
	Year               int        `db:"year" json:"year"`
	Role               string     `db:"role" json:"role"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	MustChangePassword bool    `db:"must_change_password" json:"must_change_password"`
	LockedUntil        *string `db:"locked_until" json:"-"`
	Email              string  `db:"email" json:"email,omitempty"`
	Phone              string  `db:"phone" json:"phone,omitempty"`
	Active             bool    `db:"active" json:"active"`
	CreatedAt          string  `db:"created_at" json:"created_at"`
	UpdatedAt          string  `db:"updated_at" json:"updated_at"`
}

// IsStaff reports whether the user may perform booking overrides
func (u *User) IsStaff() bool {
	return u.Role == RoleDutyOfficer || u.Role == RoleAdmin
}

// CanManageAbsences reports whether the user may edit other users' absences
func (u *User) CanManageAbsences() bool {
	return u.Role == RoleDutyOfficer || u.Role == RoleYearCommander || u.Role == RoleAdmin
}

// LockExpiry parses the stored lock instant, if any
func (u *User) LockExpiry() *time.Time {
	if u.LockedUntil == nil || *u.LockedUntil == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *u.LockedUntil)
	if err != nil {
		return nil
	}
	return &t
}
