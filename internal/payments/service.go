package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/orders"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
	pkgerrors "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/errors"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/gateway"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
)

// Fallback contact data for gateway requests. The gateway requires both
// fields, and a customer record without them must still be able to pay.
const (
	fallbackCustomerEmail = "clientes@comercializadoraspg.com"
	fallbackCustomerName  = "Cliente SPG"
)

// sessionableStatuses are the order states from which a payment link may be
// created or refreshed.
var sessionableStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusPending:        true,
	enums.OrderStatusPaymentPending: true,
	enums.OrderStatusPaymentFailed:  true,
}

type gatewayClient interface {
	CreatePaymentSession(ctx context.Context, req gateway.SessionRequest) (*gateway.PaymentSession, error)
	GetTransaction(ctx context.Context, id string) (*gateway.Transaction, error)
	MinAmountCents() int64
	SessionTTL() time.Duration
}

// CreateSessionInput identifies the order and the requesting actor.
type CreateSessionInput struct {
	OrderID uuid.UUID
	ActorID uuid.UUID
	Role    enums.UserRole

	CustomerEmail string
	CustomerName  string
	CustomerPhone string
}

// SessionResult is the outward shape of a created payment session.
type SessionResult struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	SessionID   string    `json:"session_id"`
	PaymentURL  string    `json:"payment_url"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Service opens hosted payment sessions and proxies transaction lookups.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*SessionResult, error)
	GetTransaction(ctx context.Context, transactionID string) (*gateway.Transaction, error)
}

type service struct {
	orders     orders.Service
	ordersRepo orders.Repository
	gateway    gatewayClient
	returnURL  string
	logg       *logger.Logger
	now        func() time.Time
}

// ServiceParams carries the session manager dependencies.
type ServiceParams struct {
	Orders     orders.Service
	OrdersRepo orders.Repository
	Gateway    gatewayClient
	ReturnURL  string
	Logger     *logger.Logger
	Now        func() time.Time
}

// NewService builds the payment session manager.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &service{
		orders:     params.Orders,
		ordersRepo: params.OrdersRepo,
		gateway:    params.Gateway,
		returnURL:  params.ReturnURL,
		logg:       params.Logger,
		now:        now,
	}, nil
}

func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*SessionResult, error) {
	order, err := s.orders.Get(ctx, orders.GetInput{
		OrderID: input.OrderID,
		ActorID: input.ActorID,
		Role:    input.Role,
	})
	if err != nil {
		return nil, err
	}

	if !sessionableStatuses[order.Status] {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot accept a payment session").
			WithDetails(map[string]any{"current": string(order.Status)})
	}

	// Reject below-minimum totals before any gateway traffic.
	if minimum := s.gateway.MinAmountCents(); order.TotalCents < minimum {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total below gateway minimum").
			WithDetails(map[string]any{
				"minimum_cents":  minimum,
				"provided_cents": order.TotalCents,
			})
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.gateway.SessionTTL())

	email := strings.TrimSpace(input.CustomerEmail)
	if email == "" {
		email = fallbackCustomerEmail
	}
	name := strings.TrimSpace(input.CustomerName)
	if name == "" {
		name = fallbackCustomerName
	}

	session, err := s.gateway.CreatePaymentSession(ctx, gateway.SessionRequest{
		AmountCents:   order.TotalCents,
		Currency:      string(order.Currency),
		Reference:     order.OrderNumber,
		CustomerEmail: email,
		CustomerName:  name,
		CustomerPhone: input.CustomerPhone,
		ExpiresAt:     expiresAt.Format(time.RFC3339),
		ReturnURL:     s.returnURL,
	})
	if err != nil {
		return nil, err
	}

	// A fresh session replaces whatever link the order held before; the old
	// session simply expires at the gateway.
	if err := s.ordersRepo.SetPaymentSession(ctx, order.ID, orders.PaymentSessionFields{
		SessionID:  session.SessionID,
		PaymentURL: session.PaymentURL,
		CreatedAt:  now,
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment session")
	}

	// An order already in payment_pending from a prior session makes this a
	// no-op rather than a conflict.
	if _, _, err := s.orders.Transition(ctx, orders.TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusPaymentPending,
		Actor:   fmt.Sprintf("customer:%s", input.ActorID),
		Comment: "payment session created",
	}); err != nil {
		return nil, err
	}

	if !session.ExpiresAt.IsZero() {
		expiresAt = session.ExpiresAt
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":   order.ID.String(),
		"session_id": session.SessionID,
	})
	s.logg.Info(ctx, "payment.session_created")

	return &SessionResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		SessionID:   session.SessionID,
		PaymentURL:  session.PaymentURL,
		AmountCents: order.TotalCents,
		Currency:    string(order.Currency),
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *service) GetTransaction(ctx context.Context, transactionID string) (*gateway.Transaction, error) {
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}
	return s.gateway.GetTransaction(ctx, transactionID)
}
