package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/api/middleware"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/api/responses"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/api/validators"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/internal/orders"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/enums"
	pkgerrors "github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/errors"
	"github.com/ChrispinSantacruz/ComercializadoraSPG-sub002/pkg/logger"
)

type createOrderItemRequest struct {
	ProductID      uuid.UUID `json:"product_id" validate:"required"`
	MerchantID     uuid.UUID `json:"merchant_id" validate:"required"`
	Name           string    `json:"name" validate:"required,max=255"`
	UnitPriceCents int64     `json:"unit_price_cents" validate:"min=0"`
	Qty            int       `json:"qty" validate:"required,gt=0"`
}

type createOrderRequest struct {
	Currency      string                   `json:"currency" validate:"omitempty,oneof=COP USD"`
	Items         []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
	TaxCents      int64                    `json:"tax_cents" validate:"min=0"`
	ShippingCents int64                    `json:"shipping_cents" validate:"min=0"`
	DiscountCents int64                    `json:"discount_cents" validate:"min=0"`
}

type transitionOrderRequest struct {
	Status  string `json:"status" validate:"required"`
	Comment string `json:"comment" validate:"omitempty,max=500"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

func actorFromRequest(r *http.Request) (uuid.UUID, enums.UserRole, error) {
	actorID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	role := enums.UserRole(middleware.RoleFromContext(r.Context()))
	if !role.IsValid() {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "actor role missing")
	}
	return actorID, role, nil
}

// CreateOrder opens a new order for the authenticated customer.
func CreateOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req createOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := orders.CreateOrderInput{
			CustomerID:    actorID,
			Currency:      enums.Currency(req.Currency),
			TaxCents:      req.TaxCents,
			ShippingCents: req.ShippingCents,
			DiscountCents: req.DiscountCents,
		}
		for _, item := range req.Items {
			input.Items = append(input.Items, orders.CreateOrderItemInput{
				ProductID:      item.ProductID,
				MerchantID:     item.MerchantID,
				Name:           item.Name,
				UnitPriceCents: item.UnitPriceCents,
				Qty:            item.Qty,
			})
		}

		order, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.NewOrderView(order))
	}
}

// GetOrder returns one order scoped to the requesting actor.
func GetOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		order, err := svc.Get(ctx, orders.GetInput{OrderID: orderID, ActorID: actorID, Role: role})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(order))
	}
}

// ListOrders pages through the authenticated customer's orders.
func ListOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid limit"))
				return
			}
			limit = parsed
		}

		result, err := svc.List(ctx, orders.ListInput{
			CustomerID: actorID,
			Cursor:     r.URL.Query().Get("cursor"),
			Limit:      limit,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TransitionOrder moves an order along the fulfillment flow. Admin only.
func TransitionOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, _, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		var req transitionOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		target, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, _, err := svc.Transition(ctx, orders.TransitionInput{
			OrderID: orderID,
			Target:  target,
			Actor:   "admin:" + actorID.String(),
			Comment: req.Comment,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(order))
	}
}

// ConfirmOrderDelivery records the customer's delivery confirmation.
func ConfirmOrderDelivery(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		// Ownership check happens before the write.
		if _, err := svc.Get(ctx, orders.GetInput{OrderID: orderID, ActorID: actorID, Role: role}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.ConfirmDelivery(ctx, orderID, "customer:"+actorID.String())
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(order))
	}
}

// CancelOrder cancels an order that has not shipped yet.
func CancelOrder(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		actorID, role, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		orderID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id"))
			return
		}

		var req cancelOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &req); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}

		if _, err := svc.Get(ctx, orders.GetInput{OrderID: orderID, ActorID: actorID, Role: role}); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Cancel(ctx, orderID, string(role)+":"+actorID.String(), req.Reason)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(order))
	}
}
