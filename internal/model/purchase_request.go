package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseStatus enum constants
const (
	PurchasePending  = "PENDING"
	PurchaseApproved = "APPROVED"
	PurchaseRejected = "REJECTED"
)

// PurchaseRequest represents a requester's intent to buy a product from a
// supplier, subject to approval.
//
// Lifecycle: created PENDING by a requester, mutable by its owner only while
// PENDING, transitioned exactly once to APPROVED or REJECTED by an approver,
// never transitioned again. Approval spawns a linked Sale. ApproverID and
// DecidedAt are unset while PENDING and both set afterwards.
type PurchaseRequest struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequesterID uuid.UUID       `gorm:"type:uuid;not null;index" json:"requester_id"`
	Requester   *User           `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	SupplierID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier    *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity    int             `gorm:"type:int;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"` // snapshotted at request time
	Total       decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"total"`      // quantity * unit_price, always
	Status      string          `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	ApproverID  *uuid.UUID      `gorm:"type:uuid" json:"approver_id"`
	Approver    *User           `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	DecidedAt   *time.Time      `json:"decided_at"`
	Comments    string          `gorm:"type:text" json:"comments"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ComputeTotal recalculates Total from Quantity and UnitPrice.
func (r *PurchaseRequest) ComputeTotal() {
	r.Total = r.UnitPrice.Mul(decimal.NewFromInt(int64(r.Quantity)))
}
