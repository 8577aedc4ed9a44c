package auth

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is a person known to the RFPO system. Approvers and administrators are users with flags set.
type User struct {
	ID                uuid.UUID  `gorm:"type:uuid;column:id;not null;primaryKey" json:"id"`
	RecordID          string     `gorm:"type:varchar(100);column:record_id;not null;uniqueIndex" json:"recordId"` // Stable external identifier referenced by templates and actions
	FullName          string     `gorm:"type:varchar(255);column:fullname;not null" json:"fullName"`
	Email             string     `gorm:"type:varchar(255);column:email;not null;uniqueIndex" json:"email"`
	Active            bool       `gorm:"column:active;not null" json:"active"`
	IsApprover        bool       `gorm:"column:is_approver;not null" json:"isApprover"` // Derived from workflow step assignments
	IsAdmin           bool       `gorm:"column:is_admin;not null" json:"isAdmin"`
	ApproverUpdatedAt *time.Time `gorm:"column:approver_updated_at" json:"approverUpdatedAt,omitempty"`
	CreatedAt         time.Time  `gorm:"column:created_at;not null" json:"createdAt"`
	UpdatedAt         time.Time  `gorm:"column:updated_at;not null" json:"updatedAt"`
}

// TableName specifies the database table name for User
func (u *User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == uuid.Nil {
		u.ID, err = uuid.NewRandom()
	}
	return
}

// DisplayName prefers the full name and falls back to the email.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// AuthContext represents the authentication context available in a request.
// This is a transient context that is injected into the request by the auth middleware.
type AuthContext struct {
	*User
	TokenExpiresAt *time.Time
}

// UserID returns the record id of the authenticated user, or "" for a nil context.
func (ac *AuthContext) UserID() string {
	if ac == nil || ac.User == nil {
		return ""
	}
	return ac.RecordID
}
