package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mossery/storefront-api/internal/common"
	"github.com/mossery/storefront-api/internal/obs"
)

// Handler exposes the checkout endpoint.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type checkoutPayload struct {
	Email string `json:"email" validate:"omitempty,email"`
}

// PlaceOrder turns the session's cart into an order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload checkoutPayload
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
			return
		}
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}
	o, err := h.Svc.PlaceOrder(r.Context(), Request{
		SessionID: chi.URLParam(r, "sessionId"),
		Email:     payload.Email,
	})
	if obs.CheckoutTotal != nil {
		result := "ok"
		if err != nil {
			result = "error"
			if errors.Is(err, ErrCartEmpty) || errors.Is(err, ErrDeliveryRequired) {
				result = "rejected"
			}
		}
		obs.CheckoutTotal.WithLabelValues(result).Inc()
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrCartEmpty):
			common.JSONError(w, http.StatusUnprocessableEntity, "CART_EMPTY", "cart has no items", nil)
		case errors.Is(err, ErrDeliveryRequired):
			common.JSONError(w, http.StatusUnprocessableEntity, "DELIVERY_REQUIRED", "select a delivery method before checkout", nil)
		case common.IsAppError(err):
			common.WriteAppError(w, err)
		default:
			common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout failed", nil)
		}
		return
	}
	common.Data(w, http.StatusCreated, o)
}
