package orders

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/config"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db/models"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
	pkgerrors "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/errors"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/pagination"
)

type stubOrderRepo struct {
	created *models.Order
	orders  map[uuid.UUID]*models.Order

	applyParams   *ApplyTransitionParams
	applyAffected int64
	applyErr      error

	createErr error
	findErr   error
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{orders: map[uuid.UUID]*models.Order{}}
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	order.ID = uuid.New()
	s.created = order
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubOrderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	for _, order := range s.orders {
		if order.OrderNumber == orderNumber {
			return order, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubOrderRepo) ListByCustomer(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	var rows []models.Order
	for _, order := range s.orders {
		if order.CustomerID == customerID {
			rows = append(rows, *order)
		}
	}
	return rows, nil
}

func (s *stubOrderRepo) ApplyTransition(ctx context.Context, params ApplyTransitionParams) (int64, error) {
	s.applyParams = &params
	if s.applyErr != nil {
		return 0, s.applyErr
	}
	if s.applyAffected > 0 {
		if order, ok := s.orders[params.OrderID]; ok {
			order.Status = params.Target
			order.History = append(order.History, params.Entry)
			if params.PaymentStatus != nil {
				order.PaymentStatus = *params.PaymentStatus
			}
		}
	}
	return s.applyAffected, nil
}

func (s *stubOrderRepo) SetPaymentSession(ctx context.Context, orderID uuid.UUID, fields PaymentSessionFields) error {
	return nil
}

func (s *stubOrderRepo) ConfirmDelivery(ctx context.Context, orderID uuid.UUID, now time.Time) (int64, error) {
	order, ok := s.orders[orderID]
	if !ok || order.Status != enums.OrderStatusDelivered || order.DeliveryConfirmed {
		return 0, nil
	}
	order.DeliveryConfirmed = true
	return 1, nil
}

func (s *stubOrderRepo) MarkReviewEligible(ctx context.Context, deliveredBefore time.Time) (int64, error) {
	return 0, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo:   repo,
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Config: config.OrdersConfig{ReviewDelay: 24 * time.Hour},
		Now:    func() time.Time { return time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func validCreateInput(customerID uuid.UUID) CreateOrderInput {
	return CreateOrderInput{
		CustomerID: customerID,
		Currency:   enums.CurrencyCOP,
		Items: []CreateOrderItemInput{
			{ProductID: uuid.New(), MerchantID: uuid.New(), Name: "Café 500g", UnitPriceCents: 250000, Qty: 2},
			{ProductID: uuid.New(), MerchantID: uuid.New(), Name: "Panela", UnitPriceCents: 80000, Qty: 1},
		},
		TaxCents:      30000,
		ShippingCents: 15000,
		DiscountCents: 5000,
	}
}

func TestCreateComputesTotalsAndSeedsHistory(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)
	customerID := uuid.New()

	order, err := svc.Create(context.Background(), validCreateInput(customerID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if order.SubtotalCents != 580000 {
		t.Fatalf("expected subtotal 580000, got %d", order.SubtotalCents)
	}
	if order.TotalCents != 620000 {
		t.Fatalf("expected total 620000, got %d", order.TotalCents)
	}
	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", order.Status)
	}
	if order.PaymentStatus != enums.PaymentStatusNone {
		t.Fatalf("expected payment status none, got %s", order.PaymentStatus)
	}
	if len(order.History) != 1 {
		t.Fatalf("expected one history entry, got %d", len(order.History))
	}
	entry := order.History[0]
	if entry.Status != enums.OrderStatusPending {
		t.Fatalf("unexpected history status %s", entry.Status)
	}
	if entry.Actor != "customer:"+customerID.String() {
		t.Fatalf("unexpected history actor %q", entry.Actor)
	}
	if !strings.HasPrefix(order.OrderNumber, "SPG-20240310120000-") {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}
	if order.Items[0].SubtotalCents != 500000 {
		t.Fatalf("expected line subtotal 500000, got %d", order.Items[0].SubtotalCents)
	}
}

func TestCreateValidation(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)
	customerID := uuid.New()

	tests := []struct {
		name   string
		mutate func(*CreateOrderInput)
	}{
		{"missing customer", func(in *CreateOrderInput) { in.CustomerID = uuid.Nil }},
		{"no items", func(in *CreateOrderInput) { in.Items = nil }},
		{"bad currency", func(in *CreateOrderInput) { in.Currency = "EUR" }},
		{"zero quantity", func(in *CreateOrderInput) { in.Items[0].Qty = 0 }},
		{"negative price", func(in *CreateOrderInput) { in.Items[0].UnitPriceCents = -1 }},
		{"negative tax", func(in *CreateOrderInput) { in.TaxCents = -1 }},
		{"discount swallows total", func(in *CreateOrderInput) { in.DiscountCents = 10_000_000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validCreateInput(customerID)
			tt.mutate(&input)
			_, err := svc.Create(context.Background(), input)
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGetScopesByRole(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)
	customerID := uuid.New()
	merchantID := uuid.New()

	input := validCreateInput(customerID)
	input.Items[0].MerchantID = merchantID
	order, err := svc.Create(context.Background(), input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Get(context.Background(), GetInput{OrderID: order.ID, ActorID: customerID, Role: enums.UserRoleCustomer}); err != nil {
		t.Fatalf("owner read should succeed: %v", err)
	}
	if _, err := svc.Get(context.Background(), GetInput{OrderID: order.ID, ActorID: uuid.New(), Role: enums.UserRoleCustomer}); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("foreign customer should be forbidden, got %v", err)
	}
	if _, err := svc.Get(context.Background(), GetInput{OrderID: order.ID, ActorID: merchantID, Role: enums.UserRoleMerchant}); err != nil {
		t.Fatalf("merchant with items should read: %v", err)
	}
	if _, err := svc.Get(context.Background(), GetInput{OrderID: order.ID, ActorID: uuid.New(), Role: enums.UserRoleMerchant}); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("merchant without items should be forbidden, got %v", err)
	}
	if _, err := svc.Get(context.Background(), GetInput{OrderID: order.ID, ActorID: uuid.New(), Role: enums.UserRoleAdmin}); err != nil {
		t.Fatalf("admin should read any order: %v", err)
	}
	if _, err := svc.Get(context.Background(), GetInput{OrderID: uuid.New(), ActorID: customerID, Role: enums.UserRoleCustomer}); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("missing order should be not found, got %v", err)
	}
}

func TestTransitionAppliesGuardedWrite(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)
	order, err := svc.Create(context.Background(), validCreateInput(uuid.New()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	repo.applyAffected = 1
	paid := enums.PaymentStatusApproved
	updated, applied, err := svc.Transition(context.Background(), TransitionInput{
		OrderID:       order.ID,
		Target:        enums.OrderStatusPaid,
		Actor:         "system:payment_webhook",
		Comment:       "gateway transaction trx_1 APPROVED",
		PaymentStatus: &paid,
	})
	if err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if !applied {
		t.Fatal("expected transition to report applied")
	}
	if updated.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", updated.Status)
	}
	if updated.PaymentStatus != enums.PaymentStatusApproved {
		t.Fatalf("expected approved payment status, got %s", updated.PaymentStatus)
	}
	if len(updated.History) != 2 {
		t.Fatalf("expected appended history, got %d entries", len(updated.History))
	}
	last := updated.History[len(updated.History)-1]
	if last.Actor != "system:payment_webhook" || last.Comment == "" {
		t.Fatalf("unexpected history entry %+v", last)
	}

	params := repo.applyParams
	if params == nil {
		t.Fatal("expected ApplyTransition call")
	}
	if len(params.Sources) == 0 {
		t.Fatal("expected source guard statuses")
	}
	for _, source := range params.Sources {
		if !CanTransition(source, enums.OrderStatusPaid) {
			t.Fatalf("source %s cannot reach paid", source)
		}
	}
}

func TestTransitionRedeliveryIsNoOp(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)
	order, err := svc.Create(context.Background(), validCreateInput(uuid.New()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	repo.orders[order.ID].Status = enums.OrderStatusPaid
	repo.applyAffected = 0

	got, applied, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusPaid,
	})
	if err != nil {
		t.Fatalf("expected redelivery no-op, got %v", err)
	}
	if applied {
		t.Fatal("redelivery must not report applied")
	}
	if got.Status != enums.OrderStatusPaid {
		t.Fatalf("unexpected status %s", got.Status)
	}
}

func TestTransitionIllegalMoveIsStateConflict(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)
	order, err := svc.Create(context.Background(), validCreateInput(uuid.New()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	repo.applyAffected = 0

	_, _, err = svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusShipped,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected details map, got %T", typed.Details())
	}
	if details["current"] != "pending" || details["requested"] != "shipped" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestTransitionStampsTimestamps(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)
	order, err := svc.Create(context.Background(), validCreateInput(uuid.New()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	repo.applyAffected = 1

	if _, err := svc.Cancel(context.Background(), order.ID, "admin:ops", "out of stock"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	params := repo.applyParams
	if params.CancelledAt == nil {
		t.Fatal("expected cancelled_at stamp")
	}
	if params.CancelReason == nil || *params.CancelReason != "out of stock" {
		t.Fatalf("expected cancel reason, got %v", params.CancelReason)
	}

	repo.orders[order.ID].Status = enums.OrderStatusShipped
	if _, _, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusDelivered,
		Actor:   "admin:ops",
	}); err != nil {
		t.Fatalf("Transition to delivered: %v", err)
	}
	if repo.applyParams.DeliveredAt == nil {
		t.Fatal("expected delivered_at stamp")
	}
}

func TestConfirmDeliveryIsSeparateFromDeliveredTransition(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)
	order, err := svc.Create(context.Background(), validCreateInput(uuid.New()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Confirmation before delivery is a state conflict.
	_, err = svc.ConfirmDelivery(context.Background(), order.ID, "customer:abc")
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict before delivery, got %v", err)
	}

	// Marking the order delivered is the fulfiller's transition and must not
	// flip the customer's confirmation flag.
	repo.applyAffected = 1
	repo.orders[order.ID].Status = enums.OrderStatusShipped
	delivered, _, err := svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusDelivered,
		Actor:   "admin:ops",
	})
	if err != nil {
		t.Fatalf("Transition to delivered: %v", err)
	}
	if delivered.DeliveryConfirmed {
		t.Fatal("delivered transition must not set delivery_confirmed")
	}

	confirmed, err := svc.ConfirmDelivery(context.Background(), order.ID, "customer:abc")
	if err != nil {
		t.Fatalf("ConfirmDelivery: %v", err)
	}
	if !confirmed.DeliveryConfirmed {
		t.Fatal("expected delivery_confirmed set")
	}

	// Re-confirming is a no-op, not an error.
	if _, err := svc.ConfirmDelivery(context.Background(), order.ID, "customer:abc"); err != nil {
		t.Fatalf("repeat ConfirmDelivery: %v", err)
	}

	if _, err := svc.ConfirmDelivery(context.Background(), uuid.New(), "customer:abc"); pkgerrors.As(err) == nil || pkgerrors.As(err).Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown order, got %v", err)
	}
}

func TestTransitionDependencyFailure(t *testing.T) {
	repo := newStubOrderRepo()
	svc := newTestService(t, repo)
	order, err := svc.Create(context.Background(), validCreateInput(uuid.New()))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	repo.applyErr = errors.New("connection reset")

	_, _, err = svc.Transition(context.Background(), TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusPaid,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestMerchantSubtotalCents(t *testing.T) {
	merchantA := uuid.New()
	merchantB := uuid.New()
	order := &models.Order{Items: []models.OrderItem{
		{MerchantID: merchantA, SubtotalCents: 120000},
		{MerchantID: merchantB, SubtotalCents: 45000},
		{MerchantID: merchantA, SubtotalCents: 30000},
	}}

	if got := MerchantSubtotalCents(order, merchantA); got != 150000 {
		t.Fatalf("expected 150000 for merchant A, got %d", got)
	}
	if got := MerchantSubtotalCents(order, merchantB); got != 45000 {
		t.Fatalf("expected 45000 for merchant B, got %d", got)
	}
	if got := MerchantSubtotalCents(order, uuid.New()); got != 0 {
		t.Fatalf("expected 0 for unrelated merchant, got %d", got)
	}
	if got := MerchantSubtotalCents(nil, merchantA); got != 0 {
		t.Fatalf("expected 0 for nil order, got %d", got)
	}
}
