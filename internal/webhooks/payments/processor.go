package paymentwebhook

import (
	"context"
	"errors"
	"fmt"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/orders"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db/models"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
	pkgerrors "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/errors"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/metrics"
)

const webhookActor = "system:payment_webhook"

type guard interface {
	CheckAndMark(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

type notifier interface {
	NotifyPaymentOutcome(ctx context.Context, order *models.Order, status enums.PaymentStatus, failureReason string) error
}

// Service turns verified gateway payloads into order transitions. Every path
// after signature validation ends in an acknowledgment: events that cannot be
// applied are logged and counted, never bounced back to the gateway.
type Service struct {
	orders   orders.Service
	guard    guard
	notifier notifier
	metrics  *metrics.WebhookMetrics
	logg     *logger.Logger
}

// ServiceParams carries the processor dependencies.
type ServiceParams struct {
	Orders   orders.Service
	Guard    guard
	Notifier notifier
	Metrics  *metrics.WebhookMetrics
	Logger   *logger.Logger
}

// NewService builds the webhook processor.
func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		orders:   params.Orders,
		guard:    params.Guard,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// Process normalizes and applies one verified webhook payload. The returned
// error is informational; callers acknowledge the delivery either way.
func (s *Service) Process(ctx context.Context, body []byte) error {
	event, dropReason, err := Normalize(body)
	if err != nil {
		s.metrics.IncDropped("undecodable")
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": err.Error()}), "webhook.undecodable")
		return nil
	}
	if dropReason != DropReasonNone {
		s.metrics.IncDropped(string(dropReason))
		fields := map[string]any{"reason": string(dropReason)}
		if event != nil {
			fields["transaction_id"] = event.TransactionID
			fields["gateway_status"] = event.GatewayStatus
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "webhook.dropped")
		return nil
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"transaction_id": event.TransactionID,
		"reference":      event.Reference,
		"gateway_status": event.GatewayStatus,
	})

	dedupKey := event.DedupKey()
	seen, err := s.guard.CheckAndMark(ctx, dedupKey)
	if err != nil {
		// The guard is a fast path only; the conditional write below is the
		// real idempotency barrier, so processing continues.
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": err.Error()}), "webhook.guard_unavailable")
	} else if seen {
		s.metrics.IncDuplicate()
		s.logg.Info(ctx, "webhook.duplicate")
		return nil
	}

	targetStatus, paymentStatus, _ := event.Outcome()

	order, err := s.orders.GetByOrderNumber(ctx, event.Reference)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			s.metrics.IncDropped("order_not_found")
			s.logg.Warn(ctx, "webhook.order_not_found")
			return nil
		}
		s.metrics.IncFailed()
		s.releaseGuard(ctx, dedupKey)
		s.logg.Error(ctx, "webhook.load_order", err)
		return err
	}

	comment := fmt.Sprintf("gateway transaction %s %s", event.TransactionID, event.GatewayStatus)
	if event.FailureReason != "" {
		comment = fmt.Sprintf("%s: %s", comment, event.FailureReason)
	}

	updated, applied, err := s.orders.Transition(ctx, orders.TransitionInput{
		OrderID:       order.ID,
		Target:        targetStatus,
		Actor:         webhookActor,
		Comment:       comment,
		PaymentStatus: &paymentStatus,
	})
	if err != nil {
		var typed *pkgerrors.Error
		if errors.As(err, &typed) && typed.Code() == pkgerrors.CodeStateConflict {
			// Late or out-of-order delivery against a settled order. The
			// gateway gets its acknowledgment; the ledger stays put.
			s.metrics.IncDropped("state_conflict")
			s.logg.Warn(ctx, "webhook.state_conflict")
			return nil
		}
		s.metrics.IncFailed()
		s.releaseGuard(ctx, dedupKey)
		s.logg.Error(ctx, "webhook.transition", err)
		return err
	}

	if !applied {
		s.metrics.IncDuplicate()
		s.logg.Info(ctx, "webhook.already_applied")
		return nil
	}

	s.metrics.IncProcessed()
	s.logg.Info(ctx, "webhook.applied")

	if s.notifier != nil {
		if err := s.notifier.NotifyPaymentOutcome(ctx, updated, paymentStatus, event.FailureReason); err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": err.Error()}), "webhook.notify")
		}
	}
	return nil
}

func (s *Service) releaseGuard(ctx context.Context, key string) {
	if err := s.guard.Delete(ctx, key); err != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"error": err.Error()}), "webhook.guard_release")
	}
}
