package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/api/responses"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/api/validators"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/payments"
	pkgerrors "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/errors"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
)

// Customer contact fields are optional; the session manager substitutes
// fallback contact data when they are absent.
type createSessionRequest struct {
	OrderID       uuid.UUID `json:"order_id" validate:"required"`
	CustomerEmail string    `json:"customer_email" validate:"omitempty,email"`
	CustomerName  string    `json:"customer_name" validate:"omitempty,max=255"`
	CustomerPhone string    `json:"customer_phone" validate:"omitempty,max=32"`
}

// CreatePaymentSession opens a hosted payment link for an order.
func CreatePaymentSession(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req createSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		session, err := svc.CreateSession(ctx, payments.CreateSessionInput{
			OrderID:       req.OrderID,
			ActorID:       actorID,
			Role:          role,
			CustomerEmail: req.CustomerEmail,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, session)
	}
}

// GetPaymentTransaction proxies a gateway transaction lookup for manual
// reconciliation. Admin only.
func GetPaymentTransaction(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		transactionID := chi.URLParam(r, "id")
		if transactionID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required"))
			return
		}

		tx, err := svc.GetTransaction(ctx, transactionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"id":             tx.ID,
			"status":         tx.Status,
			"amount_cents":   tx.AmountCents,
			"failure_reason": tx.FailureReason,
		})
	}
}
