package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/orders"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db/models"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
	pkgerrors "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/errors"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/types"
)

const relatedKindOrder = "order"

// DispatchInput describes one notification to persist and deliver.
type DispatchInput struct {
	Recipient         Recipient
	Type              enums.NotificationType
	Title             string
	Message           string
	Priority          enums.NotificationPriority
	RelatedEntityID   *uuid.UUID
	RelatedEntityKind *string
	Channels          []enums.NotificationChannel
}

// Dispatcher persists notifications and fans them out over the configured
// channels. The persisted row is the in-app delivery; external channels are
// attempted afterwards and tracked independently, and their failures stop at
// this boundary.
type Dispatcher struct {
	repo    Repository
	senders map[enums.NotificationChannel]ChannelSender
	logg    *logger.Logger
	now     func() time.Time
}

// DispatcherParams carries the dispatcher dependencies.
type DispatcherParams struct {
	Repo    Repository
	Senders []ChannelSender
	Logger  *logger.Logger
	Now     func() time.Time
}

// NewDispatcher builds the notification dispatcher.
func NewDispatcher(params DispatcherParams) (*Dispatcher, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	senders := make(map[enums.NotificationChannel]ChannelSender, len(params.Senders))
	for _, sender := range params.Senders {
		if sender == nil {
			continue
		}
		senders[sender.Channel()] = sender
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		repo:    params.Repo,
		senders: senders,
		logg:    params.Logger,
		now:     now,
	}, nil
}

// Dispatch persists the notification and attempts delivery on every requested
// channel. Only the persist step can fail the call; channel errors are
// recorded on the row and logged.
func (d *Dispatcher) Dispatch(ctx context.Context, input DispatchInput) (*models.Notification, error) {
	recipientID, err := uuid.Parse(input.Recipient.UserID)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown notification type")
	}
	priority := input.Priority
	if priority == "" {
		priority = enums.NotificationPriorityNormal
	}

	now := d.now().UTC()
	channels := types.ChannelDeliveries{
		enums.ChannelInApp: {Attempted: true, SucceededAt: &now},
	}
	for _, channel := range input.Channels {
		if channel == enums.ChannelInApp {
			continue
		}
		channels[channel] = types.ChannelDelivery{}
	}

	notification := &models.Notification{
		RecipientID:       recipientID,
		Type:              input.Type,
		Title:             input.Title,
		Message:           input.Message,
		Priority:          priority,
		RelatedEntityID:   input.RelatedEntityID,
		RelatedEntityKind: input.RelatedEntityKind,
		Channels:          channels,
	}
	if err := d.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist notification")
	}

	d.deliver(ctx, notification, input.Recipient, input.Channels)
	return notification, nil
}

// Redeliver re-attempts the requested channels of an existing notification.
func (d *Dispatcher) Redeliver(ctx context.Context, notification *models.Notification, recipient Recipient, requested []enums.NotificationChannel) {
	d.deliver(ctx, notification, recipient, requested)
}

func (d *Dispatcher) deliver(ctx context.Context, notification *models.Notification, recipient Recipient, requested []enums.NotificationChannel) {
	updates := types.ChannelDeliveries{}
	var deliveryErr error

	for _, channel := range requested {
		if channel == enums.ChannelInApp {
			continue
		}
		sender, ok := d.senders[channel]
		if !ok {
			updates[channel] = types.ChannelDelivery{
				Attempted: true,
				Error:     "channel not configured",
			}
			continue
		}
		if err := sender.Send(ctx, recipient, notification); err != nil {
			updates[channel] = types.ChannelDelivery{
				Attempted: true,
				Error:     err.Error(),
			}
			deliveryErr = multierr.Append(deliveryErr, fmt.Errorf("%s: %w", channel, err))
			continue
		}
		succeededAt := d.now().UTC()
		updates[channel] = types.ChannelDelivery{
			Attempted:   true,
			SucceededAt: &succeededAt,
		}
	}

	if len(updates) > 0 {
		if err := d.repo.MergeChannels(ctx, notification.ID, updates); err != nil {
			deliveryErr = multierr.Append(deliveryErr, fmt.Errorf("record outcomes: %w", err))
		}
	}

	if deliveryErr != nil {
		fields := map[string]any{
			"notification_id": notification.ID.String(),
			"error":           deliveryErr.Error(),
		}
		d.logg.Warn(d.logg.WithFields(ctx, fields), "notification.delivery_partial")
	}
}

// NotifyPaymentOutcome emits the customer- and merchant-facing notifications
// for one settled payment webhook. The webhook path only knows recipient ids,
// so it requests in-app delivery alone; contact-addressed channels would fail
// on every dispatch and pollute the delivery map.
func (d *Dispatcher) NotifyPaymentOutcome(ctx context.Context, order *models.Order, status enums.PaymentStatus, failureReason string) error {
	if order == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}

	orderID := order.ID
	kind := relatedKindOrder
	recipient := Recipient{UserID: order.CustomerID.String()}

	switch status {
	case enums.PaymentStatusApproved:
		if _, err := d.Dispatch(ctx, DispatchInput{
			Recipient:         recipient,
			Type:              enums.NotificationTypePaymentSuccess,
			Title:             "Payment received",
			Message:           fmt.Sprintf("Payment for order %s was approved.", order.OrderNumber),
			Priority:          enums.NotificationPriorityHigh,
			RelatedEntityID:   &orderID,
			RelatedEntityKind: &kind,
			Channels:          []enums.NotificationChannel{enums.ChannelInApp},
		}); err != nil {
			return err
		}
		return d.notifyMerchantSales(ctx, order)
	case enums.PaymentStatusDeclined, enums.PaymentStatusError:
		message := fmt.Sprintf("Payment for order %s failed.", order.OrderNumber)
		if failureReason != "" {
			message = fmt.Sprintf("%s Reason: %s", message, failureReason)
		}
		_, err := d.Dispatch(ctx, DispatchInput{
			Recipient:         recipient,
			Type:              enums.NotificationTypePaymentDeclined,
			Title:             "Payment failed",
			Message:           message,
			Priority:          enums.NotificationPriorityHigh,
			RelatedEntityID:   &orderID,
			RelatedEntityKind: &kind,
			Channels:          []enums.NotificationChannel{enums.ChannelInApp},
		})
		return err
	default:
		return nil
	}
}

// notifyMerchantSales tells each merchant with items on the order how much of
// the total belongs to them.
func (d *Dispatcher) notifyMerchantSales(ctx context.Context, order *models.Order) error {
	orderID := order.ID
	kind := relatedKindOrder

	seen := map[uuid.UUID]bool{}
	var combined error
	for _, item := range order.Items {
		if seen[item.MerchantID] {
			continue
		}
		seen[item.MerchantID] = true

		subtotal := orders.MerchantSubtotalCents(order, item.MerchantID)
		_, err := d.Dispatch(ctx, DispatchInput{
			Recipient:         Recipient{UserID: item.MerchantID.String()},
			Type:              enums.NotificationTypeSale,
			Title:             "New sale",
			Message:           fmt.Sprintf("Order %s includes %s %.2f of your products.", order.OrderNumber, order.Currency, float64(subtotal)/100),
			Priority:          enums.NotificationPriorityNormal,
			RelatedEntityID:   &orderID,
			RelatedEntityKind: &kind,
			Channels:          []enums.NotificationChannel{enums.ChannelInApp},
		})
		combined = multierr.Append(combined, err)
	}
	return combined
}
