package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/db/models"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/pagination"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/types"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("customer_id = ?", customerID)

	if cursor != nil {
		query = query.Where(
			"(created_at, id) < (?, ?)",
			cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Order
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyTransition performs the conditional status write. The row moves to the
// target only if its current status is still in params.Sources; the history
// entry is appended in the same statement. Returns the affected row count so
// the caller can distinguish applied from skipped.
func (r *repository) ApplyTransition(ctx context.Context, params ApplyTransitionParams) (int64, error) {
	if len(params.Sources) == 0 {
		return 0, fmt.Errorf("transition to %s has no legal sources", params.Target)
	}

	entryJSON, err := json.Marshal(types.OrderHistory{params.Entry})
	if err != nil {
		return 0, fmt.Errorf("encode history entry: %w", err)
	}

	updates := map[string]any{
		"status":     params.Target,
		"history":    gorm.Expr("history || ?::jsonb", string(entryJSON)),
		"updated_at": gorm.Expr("now()"),
	}
	if params.PaymentStatus != nil {
		updates["payment_status"] = *params.PaymentStatus
	}
	if params.ShippedAt != nil {
		updates["shipped_at"] = *params.ShippedAt
	}
	if params.DeliveredAt != nil {
		updates["delivered_at"] = *params.DeliveredAt
	}
	if params.CancelledAt != nil {
		updates["cancelled_at"] = *params.CancelledAt
	}
	if params.CancelReason != nil {
		updates["cancel_reason"] = *params.CancelReason
	}

	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status IN ?", params.OrderID, params.Sources).
		Updates(updates)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) SetPaymentSession(ctx context.Context, orderID uuid.UUID, fields PaymentSessionFields) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"payment_session_id":         fields.SessionID,
			"payment_url":                fields.PaymentURL,
			"payment_session_created_at": fields.CreatedAt,
			"payment_status":             "pending",
			"updated_at":                 gorm.Expr("now()"),
		}).Error
}

// ConfirmDelivery records the customer's confirmation. The write only lands
// on a delivered order that has not been confirmed yet.
func (r *repository) ConfirmDelivery(ctx context.Context, orderID uuid.UUID, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ? AND delivery_confirmed = false", orderID, "delivered").
		Updates(map[string]any{
			"delivery_confirmed": true,
			"updated_at":         now,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *repository) MarkReviewEligible(ctx context.Context, deliveredBefore time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ? AND review_eligible = false AND delivered_at IS NOT NULL AND delivered_at <= ?",
			"delivered", deliveredBefore).
		Updates(map[string]any{
			"review_eligible": true,
			"updated_at":      gorm.Expr("now()"),
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
