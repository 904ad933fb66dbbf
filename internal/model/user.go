package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role enum constants
const (
	RoleRequester = "requester"
	RoleApprover  = "approver"
)

// User represents an account able to act on the purchase workflow:
// requesters submit purchase requests, approvers decide them.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string         `gorm:"type:varchar(255);not null" json:"name"`
	Username       string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"username"`
	Email          string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone          string         `gorm:"type:varchar(20)" json:"phone"`
	Password       string         `gorm:"type:varchar(255);not null" json:"-"`         // Omit password from JSON requests/responses
	Role           string         `gorm:"type:varchar(20);not null;index" json:"role"` // requester, approver
	IsLeadApprover bool           `gorm:"default:false" json:"is_lead_approver"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"` // GORM soft delete
}

// Principal is the acting identity for a single workflow call, extracted
// from the JWT by the auth middleware and passed explicitly into services.
type Principal struct {
	ID             uuid.UUID
	Role           string
	IsLeadApprover bool
}

// IsApprover reports whether the principal may decide purchase requests
// and manage the sale ledger.
func (p Principal) IsApprover() bool {
	return p.Role == RoleApprover
}

// IsRequester reports whether the principal may submit and manage its own
// pending purchase requests.
func (p Principal) IsRequester() bool {
	return p.Role == RoleRequester
}
