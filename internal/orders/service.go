package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/config"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db/models"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
	pkgerrors "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/errors"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/pagination"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/types"
)

// Service is the order ledger: every status an order ever holds is written
// through Transition, and History records each write.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, input GetInput) (*models.Order, error)
	GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	List(ctx context.Context, input ListInput) (*ListResult, error)

	// Transition moves the order to the target status. The boolean reports
	// whether this call performed the write: a redelivered request that finds
	// the order already at the target returns (order, false, nil).
	Transition(ctx context.Context, input TransitionInput) (*models.Order, bool, error)

	ConfirmDelivery(ctx context.Context, orderID uuid.UUID, actor string) (*models.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, actor, reason string) (*models.Order, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
	cfg  config.OrdersConfig
	now  func() time.Time
}

// ServiceParams carries the service dependencies.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
	Config config.OrdersConfig
	Now    func() time.Time
}

// NewService builds the order ledger service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		repo: params.Repo,
		logg: params.Logger,
		cfg:  params.Config,
		now:  now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyCOP
	}
	if !currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported currency").
			WithDetails(map[string]any{"currency": string(input.Currency)})
	}
	if input.TaxCents < 0 || input.ShippingCents < 0 || input.DiscountCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment amounts cannot be negative")
	}

	var subtotal int64
	items := make([]models.OrderItem, 0, len(input.Items))
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil || item.MerchantID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product and merchant ids required").
				WithDetails(map[string]any{"index": i})
		}
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive").
				WithDetails(map[string]any{"index": i})
		}
		if item.UnitPriceCents < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item price cannot be negative").
				WithDetails(map[string]any{"index": i})
		}
		lineSubtotal := item.UnitPriceCents * int64(item.Qty)
		subtotal += lineSubtotal
		items = append(items, models.OrderItem{
			ProductID:      item.ProductID,
			MerchantID:     item.MerchantID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			SubtotalCents:  lineSubtotal,
		})
	}

	total := subtotal + input.TaxCents + input.ShippingCents - input.DiscountCents
	if total <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total must be positive").
			WithDetails(map[string]any{"total_cents": total})
	}

	now := s.now().UTC()
	order := &models.Order{
		OrderNumber:   newOrderNumber(now),
		CustomerID:    input.CustomerID,
		Status:        enums.OrderStatusPending,
		Currency:      currency,
		SubtotalCents: subtotal,
		TaxCents:      input.TaxCents,
		ShippingCents: input.ShippingCents,
		DiscountCents: input.DiscountCents,
		TotalCents:    total,
		PaymentStatus: enums.PaymentStatusNone,
		History: types.OrderHistory{{
			Status: enums.OrderStatusPending,
			Actor:  fmt.Sprintf("customer:%s", input.CustomerID),
			At:     now,
		}},
		Items: items,
	}

	created, err := s.repo.Create(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
	}

	ctx = s.logg.WithOrderID(ctx, created.ID.String())
	s.logg.Info(ctx, "order.created")
	return created, nil
}

func (s *service) Get(ctx context.Context, input GetInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	switch input.Role {
	case enums.UserRoleAdmin:
	case enums.UserRoleCustomer:
		if order.CustomerID != input.ActorID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to customer")
		}
	case enums.UserRoleMerchant:
		if !merchantHasItems(order, input.ActorID) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order has no items for merchant")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown actor role")
	}

	return order, nil
}

func (s *service) GetByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	if orderNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order number required")
	}
	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*ListResult, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(input.Limit)

	rows, err := s.repo.ListByCustomer(ctx, input.CustomerID, cursor, limit+1)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	result := &ListResult{}
	if len(rows) > limit {
		last := rows[limit-1]
		result.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
		rows = rows[:limit]
	}
	for i := range rows {
		result.Orders = append(result.Orders, NewOrderView(&rows[i]))
	}
	return result, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, bool, error) {
	if input.OrderID == uuid.Nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"status": string(input.Target)})
	}
	actor := input.Actor
	if actor == "" {
		actor = "system"
	}

	now := s.now().UTC()
	params := ApplyTransitionParams{
		OrderID: input.OrderID,
		Target:  input.Target,
		Sources: SourcesFor(input.Target),
		Entry: types.HistoryEntry{
			Status:  input.Target,
			Actor:   actor,
			Comment: input.Comment,
			At:      now,
		},
		PaymentStatus: input.PaymentStatus,
	}

	switch input.Target {
	case enums.OrderStatusShipped:
		params.ShippedAt = &now
	case enums.OrderStatusDelivered:
		params.DeliveredAt = &now
	case enums.OrderStatusCancelled:
		params.CancelledAt = &now
		if input.Comment != "" {
			reason := input.Comment
			params.CancelReason = &reason
		}
	}

	affected, err := s.repo.ApplyTransition(ctx, params)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply transition")
	}

	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}

	if affected > 0 {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID.String(),
			"status":   string(order.Status),
			"actor":    actor,
		})
		s.logg.Info(ctx, "order.transition")
		return order, true, nil
	}

	// The guarded write did not land. A redelivery that already reached the
	// target is a no-op; anything else is an illegal transition.
	if order.Status == input.Target {
		return order, false, nil
	}
	return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, "transition not allowed").
		WithDetails(map[string]any{
			"current":   string(order.Status),
			"requested": string(input.Target),
		})
}

// ConfirmDelivery records the customer's acknowledgement of a delivered
// order. It never moves the status; marking an order delivered is a
// Transition and belongs to whoever fulfils it.
func (s *service) ConfirmDelivery(ctx context.Context, orderID uuid.UUID, actor string) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	affected, err := s.repo.ConfirmDelivery(ctx, orderID, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm delivery")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}

	if affected == 0 {
		// Re-confirming is a no-op; confirming anything not delivered is not.
		if order.DeliveryConfirmed {
			return order, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not delivered").
			WithDetails(map[string]any{"current": string(order.Status)})
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID.String(),
		"actor":    actor,
	})
	s.logg.Info(ctx, "order.delivery_confirmed")
	return order, nil
}

func (s *service) Cancel(ctx context.Context, orderID uuid.UUID, actor, reason string) (*models.Order, error) {
	order, _, err := s.Transition(ctx, TransitionInput{
		OrderID: orderID,
		Target:  enums.OrderStatusCancelled,
		Actor:   actor,
		Comment: reason,
	})
	return order, err
}

// MerchantSubtotalCents sums the line subtotals belonging to one merchant.
func MerchantSubtotalCents(order *models.Order, merchantID uuid.UUID) int64 {
	if order == nil {
		return 0
	}
	var total int64
	for _, item := range order.Items {
		if item.MerchantID == merchantID {
			total += item.SubtotalCents
		}
	}
	return total
}

func merchantHasItems(order *models.Order, merchantID uuid.UUID) bool {
	for _, item := range order.Items {
		if item.MerchantID == merchantID {
			return true
		}
	}
	return false
}

func newOrderNumber(now time.Time) string {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		// uniqueness is still enforced by the database constraint
		copy(suffix, []byte{byte(now.Nanosecond()), byte(now.Nanosecond() >> 8), byte(now.Second()), byte(now.Minute())})
	}
	return fmt.Sprintf("SPG-%s-%s", now.Format("20060102150405"), hex.EncodeToString(suffix))
}
