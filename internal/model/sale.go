package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleOrigin enum constants
const (
	SaleOriginDirect      = "DIRECT"
	SaleOriginFromRequest = "FROM_REQUEST"
)

// Sale represents a finalized commercial transaction. DIRECT sales are
// entered manually by an approver and stay editable; FROM_REQUEST sales are
// spawned by the workflow engine when a purchase request is approved and are
// immutable to all direct callers. At most one sale references a given
// purchase request.
type Sale struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ClientName      string           `gorm:"type:varchar(100);not null" json:"client_name"`
	ProductID       uuid.UUID        `gorm:"type:uuid;not null;index" json:"product_id"`
	Product         *Product         `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity        int              `gorm:"type:int;not null" json:"quantity"`
	UnitPrice       decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	Total           decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"total"`
	Origin          string           `gorm:"type:varchar(20);not null;default:'DIRECT';index" json:"origin"` // DIRECT, FROM_REQUEST
	SourceRequestID *uuid.UUID       `gorm:"type:uuid;uniqueIndex" json:"source_request_id"`                 // set iff origin == FROM_REQUEST
	SourceRequest   *PurchaseRequest `gorm:"foreignKey:SourceRequestID" json:"source_request,omitempty"`
	SellerID        *uuid.UUID       `gorm:"type:uuid;index" json:"seller_id"` // approver who triggered or entered the sale
	Seller          *User            `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	CreatedAt       time.Time        `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// ComputeTotal recalculates Total from Quantity and UnitPrice.
func (s *Sale) ComputeTotal() {
	s.Total = s.UnitPrice.Mul(decimal.NewFromInt(int64(s.Quantity)))
}
