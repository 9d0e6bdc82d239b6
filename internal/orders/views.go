package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db/models"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/types"
)

// OrderItemView is the outward shape of one order line.
type OrderItemView struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"product_id"`
	MerchantID     uuid.UUID `json:"merchant_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	SubtotalCents  int64     `json:"subtotal_cents"`
}

// OrderView is the outward shape of an order.
type OrderView struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	CustomerID  uuid.UUID         `json:"customer_id"`
	Status      enums.OrderStatus `json:"status"`
	Currency    enums.Currency    `json:"currency"`

	SubtotalCents int64 `json:"subtotal_cents"`
	TaxCents      int64 `json:"tax_cents"`
	ShippingCents int64 `json:"shipping_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TotalCents    int64 `json:"total_cents"`

	History types.OrderHistory `json:"history"`

	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PaymentURL    *string             `json:"payment_url,omitempty"`

	DeliveryConfirmed bool `json:"delivery_confirmed"`
	ReviewEligible    bool `json:"review_eligible"`

	ShippedAt    *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt  *time.Time `json:"delivered_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason *string    `json:"cancel_reason,omitempty"`

	Items []OrderItemView `json:"items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrderView maps the persistence model onto the API shape.
func NewOrderView(order *models.Order) OrderView {
	view := OrderView{
		ID:                order.ID,
		OrderNumber:       order.OrderNumber,
		CustomerID:        order.CustomerID,
		Status:            order.Status,
		Currency:          order.Currency,
		SubtotalCents:     order.SubtotalCents,
		TaxCents:          order.TaxCents,
		ShippingCents:     order.ShippingCents,
		DiscountCents:     order.DiscountCents,
		TotalCents:        order.TotalCents,
		History:           order.History,
		PaymentStatus:     order.PaymentStatus,
		PaymentURL:        order.PaymentURL,
		DeliveryConfirmed: order.DeliveryConfirmed,
		ReviewEligible:    order.ReviewEligible,
		ShippedAt:         order.ShippedAt,
		DeliveredAt:       order.DeliveredAt,
		CancelledAt:       order.CancelledAt,
		CancelReason:      order.CancelReason,
		CreatedAt:         order.CreatedAt,
		UpdatedAt:         order.UpdatedAt,
	}
	for _, item := range order.Items {
		view.Items = append(view.Items, OrderItemView{
			ID:             item.ID,
			ProductID:      item.ProductID,
			MerchantID:     item.MerchantID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			SubtotalCents:  item.SubtotalCents,
		})
	}
	return view
}
