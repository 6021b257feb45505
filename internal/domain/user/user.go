package user

import (
	"database/sql"
	"strings"
	"time"
)

// Role is the account role a user holds in the advising system.
type Role string

const (
	RoleStudent Role = "student"
	RoleMentor  Role = "mentor" // peer mentors are students too, but never routed through a mentor stage
	RoleAdvisor Role = "advisor"
	RoleAdmin   Role = "admin"
)

// Classification is the academic standing of a student.
type Classification string

const (
	ClassificationFreshman  Classification = "FRESHMAN"
	ClassificationSophomore Classification = "SOPHOMORE"
	ClassificationJunior    Classification = "JUNIOR"
	ClassificationSenior    Classification = "SENIOR"
	ClassificationOther     Classification = "OTHER"
)

// ParseClassification normalizes a stored classification. Unknown values map to OTHER.
func ParseClassification(s string) Classification {
	switch c := Classification(strings.ToUpper(strings.TrimSpace(s))); c {
	case ClassificationFreshman, ClassificationSophomore, ClassificationJunior, ClassificationSenior:
		return c
	default:
		return ClassificationOther
	}
}

// User is the read model of an account owned by the user service.
// Corresponds to the 'users' table.
type User struct {
	ID             int64
	Email          string
	FirstName      string
	LastName       sql.NullString
	TelegramID     sql.NullInt64 // set once the user has linked the bot
	Role           Role
	Classification Classification
	IsFYEStudent   bool
	MentorID       sql.NullInt64
	AdvisorID      sql.NullInt64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// FullName joins first and last name, skipping an empty last name.
func (u *User) FullName() string {
	if u.LastName.Valid && u.LastName.String != "" {
		return u.FirstName + " " + u.LastName.String
	}
	return u.FirstName
}
