package orders

import (
	"github.com/google/uuid"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
)

// CreateOrderItemInput is one line of a new order.
type CreateOrderItemInput struct {
	ProductID      uuid.UUID
	MerchantID     uuid.UUID
	Name           string
	UnitPriceCents int64
	Qty            int
}

// CreateOrderInput carries everything needed to open an order.
type CreateOrderInput struct {
	CustomerID    uuid.UUID
	Currency      enums.Currency
	Items         []CreateOrderItemInput
	TaxCents      int64
	ShippingCents int64
	DiscountCents int64
}

// TransitionInput requests one status change on an order.
type TransitionInput struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Actor   string
	Comment string

	// PaymentStatus, when set, is mirrored onto the row in the same write.
	PaymentStatus *enums.PaymentStatus
}

// GetInput scopes a single-order read to the requesting actor.
type GetInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Role    enums.UserRole
}

// ListInput pages through a customer's orders, newest first.
type ListInput struct {
	CustomerID uuid.UUID
	Cursor     string
	Limit      int
}

// ListResult is one page of orders plus the cursor for the next one.
type ListResult struct {
	Orders     []OrderView
	NextCursor string
}
