package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleStudent     Role = "student"
	RoleAssessor    Role = "assessor"
	RoleAdmin       Role = "admin"
	RoleParent      Role = "parent"
	RoleSchoolAdmin Role = "school_admin"
	RoleSBAAdmin    Role = "sba_admin"
)

func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	switch role {
	case RoleStudent, RoleAssessor, RoleAdmin, RoleParent, RoleSchoolAdmin, RoleSBAAdmin:
		return role, true
	}
	return "", false
}

// IsAdminEquivalent reports whether the role routes to the admin dashboard
func (r Role) IsAdminEquivalent() bool {
	return r == RoleAdmin || r == RoleSchoolAdmin || r == RoleSBAAdmin
}

// Profile is keyed by the auth identity id
type Profile struct {
	ID       string  `json:"id" gorm:"primaryKey;size:255"`
	FullName string  `json:"full_name" gorm:"not null;size:100"`
	Email    string  `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Phone    *string `json:"phone" gorm:"size:20"`
	Age      *int    `json:"age"`
	PhotoURL *string `json:"photo_url" gorm:"size:500"`
	SchoolID *string `json:"school_id" gorm:"size:255"`

	// Legacy role signals, consulted only when no user_roles rows exist
	Role               *Role      `json:"role" gorm:"size:32"`
	AssessorAssignedAt *time.Time `json:"assessor_assigned_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}

// UserRole tags a user with one role, a user may hold several
type UserRole struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"not null;size:255;uniqueIndex:idx_user_roles_user_role"`
	Role      Role      `json:"role" gorm:"not null;size:32;uniqueIndex:idx_user_roles_user_role"`
	CreatedAt time.Time `json:"created_at"`
}

func (UserRole) TableName() string {
	return "user_roles"
}

type AssessorRequestStatus string

const (
	AssessorRequestPending  AssessorRequestStatus = "pending"
	AssessorRequestApproved AssessorRequestStatus = "approved"
	AssessorRequestRejected AssessorRequestStatus = "rejected"
)

type AssessorRequest struct {
	ID              string                `json:"id" gorm:"primaryKey;type:uuid"`
	UserID          string                `json:"user_id" gorm:"not null;size:255;uniqueIndex"`
	Status          AssessorRequestStatus `json:"status" gorm:"not null;size:16;default:pending;index"`
	Qualifications  *string               `json:"qualifications" gorm:"type:text"`
	ReviewedBy      *string               `json:"reviewed_by" gorm:"size:255"`
	ReviewedAt      *time.Time            `json:"reviewed_at"`
	RejectionReason *string               `json:"rejection_reason" gorm:"type:text"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func (AssessorRequest) TableName() string {
	return "assessor_requests"
}

func (r *AssessorRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = AssessorRequestPending
	}
	return nil
}
