package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/types"
)

// Order is the aggregate root for one customer order. Status is written only
// through the ledger's transition operation; History is append-only.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID  uuid.UUID         `gorm:"column:customer_id;type:uuid;not null"`
	Status      enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`
	Currency    enums.Currency    `gorm:"column:currency;type:text;not null;default:'COP'"`

	SubtotalCents int64 `gorm:"column:subtotal_cents;not null"`
	TaxCents      int64 `gorm:"column:tax_cents;not null;default:0"`
	ShippingCents int64 `gorm:"column:shipping_cents;not null;default:0"`
	DiscountCents int64 `gorm:"column:discount_cents;not null;default:0"`
	TotalCents    int64 `gorm:"column:total_cents;not null"`

	History types.OrderHistory `gorm:"column:history;type:jsonb;serializer:json"`

	PaymentSessionID        *string             `gorm:"column:payment_session_id"`
	PaymentURL              *string             `gorm:"column:payment_url"`
	PaymentStatus           enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'none'"`
	PaymentSessionCreatedAt *time.Time          `gorm:"column:payment_session_created_at"`

	DeliveryConfirmed bool `gorm:"column:delivery_confirmed;not null;default:false"`
	ReviewEligible    bool `gorm:"column:review_eligible;not null;default:false"`

	ShippedAt    *time.Time `gorm:"column:shipped_at"`
	DeliveredAt  *time.Time `gorm:"column:delivered_at"`
	CancelledAt  *time.Time `gorm:"column:cancelled_at"`
	CancelReason *string    `gorm:"column:cancel_reason"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
