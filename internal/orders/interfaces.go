package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db/models"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/pagination"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/types"
)

// ApplyTransitionParams describes one conditional status write. Sources is the
// set of statuses the row must currently be in for the write to land.
type ApplyTransitionParams struct {
	OrderID uuid.UUID
	Target  enums.OrderStatus
	Sources []enums.OrderStatus
	Entry   types.HistoryEntry

	PaymentStatus *enums.PaymentStatus
	ShippedAt     *time.Time
	DeliveredAt   *time.Time
	CancelledAt   *time.Time
	CancelReason  *string
}

// PaymentSessionFields mirrors the gateway session onto the order row.
type PaymentSessionFields struct {
	SessionID  string
	PaymentURL string
	CreatedAt  time.Time
}

// Repository persists orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error)

	ApplyTransition(ctx context.Context, params ApplyTransitionParams) (int64, error)
	SetPaymentSession(ctx context.Context, orderID uuid.UUID, fields PaymentSessionFields) error
	ConfirmDelivery(ctx context.Context, orderID uuid.UUID, now time.Time) (int64, error)
	MarkReviewEligible(ctx context.Context, deliveredBefore time.Time) (int64, error)
}
