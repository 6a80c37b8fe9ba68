package cart

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mossery/storefront-api/internal/catalog"
	"github.com/mossery/storefront-api/internal/common"
	"github.com/mossery/storefront-api/internal/delivery"
	"github.com/mossery/storefront-api/internal/discount"
	"github.com/mossery/storefront-api/internal/obs"
)

// Handler exposes the session-scoped cart endpoints.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "sessionId")
}

func (h *Handler) observe(op string, err error) {
	if obs.CartMutationsTotal == nil {
		return
	}
	obs.CartMutationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrDiscountAlreadyApplied),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, discount.ErrNotFound),
		errors.Is(err, discount.ErrExpired),
		errors.Is(err, discount.ErrUsageExceeded),
		errors.Is(err, discount.ErrMinimumSpendUnmet),
		errors.Is(err, delivery.ErrZoneNotFound),
		errors.Is(err, delivery.ErrNoMethodsAvailable),
		errors.Is(err, delivery.ErrPostalCodeInvalid),
		errors.Is(err, delivery.ErrRegionRequired):
		return "rejected"
	default:
		return "error"
	}
}

// GetCart returns the cart with freshly derived totals.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	agg, err := h.Svc.Get(r.Context(), sessionID(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, View(agg))
}

type addItemPayload struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gte=1"`
}

// AddItem adds a product to the cart at its current catalog price.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var payload addItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}
	agg, err := h.Svc.AddItem(r.Context(), sessionID(r), payload.ProductID, payload.Quantity)
	h.observe("add_item", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, View(agg))
}

// SetQuantity sets a line item's quantity.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	agg, err := h.Svc.SetQuantity(r.Context(), sessionID(r), chi.URLParam(r, "itemId"), payload.Quantity)
	h.observe("set_quantity", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, View(agg))
}

// RemoveItem drops a line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	agg, err := h.Svc.RemoveItem(r.Context(), sessionID(r), chi.URLParam(r, "itemId"))
	h.observe("remove_item", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, View(agg))
}

// AttachDiscount applies a discount code to the cart.
func (h *Handler) AttachDiscount(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	agg, err := h.Svc.AttachDiscount(r.Context(), sessionID(r), payload.Code)
	if obs.DiscountAttachTotal != nil {
		obs.DiscountAttachTotal.WithLabelValues(resultLabel(err)).Inc()
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, View(agg))
}

// ClearDiscount detaches the discount.
func (h *Handler) ClearDiscount(w http.ResponseWriter, r *http.Request) {
	agg, err := h.Svc.ClearDiscount(r.Context(), sessionID(r))
	h.observe("clear_discount", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, View(agg))
}

type deliveryPayload struct {
	Country    string `json:"countryCode" validate:"required,len=2,alpha"`
	MethodID   string `json:"methodId"`
	PostalCode string `json:"postalCode"`
	Region     string `json:"region"`
}

// SetDelivery selects a destination and shipping method.
func (h *Handler) SetDelivery(w http.ResponseWriter, r *http.Request) {
	var payload deliveryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}
	agg, err := h.Svc.SetDelivery(r.Context(), sessionID(r), DeliveryRequest{
		Country:    payload.Country,
		MethodID:   payload.MethodID,
		PostalCode: payload.PostalCode,
		Region:     payload.Region,
	})
	h.observe("set_delivery", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, View(agg))
}

// ClearDelivery drops the delivery selection.
func (h *Handler) ClearDelivery(w http.ResponseWriter, r *http.Request) {
	agg, err := h.Svc.ClearDelivery(r.Context(), sessionID(r))
	h.observe("clear_delivery", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, View(agg))
}

// ClearCart empties the cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	agg, err := h.Svc.Clear(r.Context(), sessionID(r))
	h.observe("clear", err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.Data(w, http.StatusOK, View(agg))
}

// View shapes the aggregate for API responses: primary state plus the
// derived breakdown in both cents and display decimals.
func View(agg *Aggregate) map[string]any {
	t := agg.Totals()
	view := map[string]any{
		"items":         agg.Items(),
		"totalQuantity": agg.TotalQuantity(),
		"pricing": map[string]any{
			"subtotal":           t.Subtotal(),
			"discount":           t.Discount(),
			"priceAfterDiscount": t.PriceAfterDiscount(),
			"deliveryFee":        t.DeliveryFee(),
			"total":              t.Total(),
			"cents":              t,
		},
	}
	if rule := agg.Discount(); rule != nil {
		view["discount"] = rule
	}
	if info := agg.Delivery(); info != nil {
		view["delivery"] = info
	}
	return view
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid cart input", nil)
	case errors.Is(err, ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart item not found", nil)
	case errors.Is(err, ErrCapacityExceeded):
		common.JSONError(w, http.StatusUnprocessableEntity, "CAPACITY_EXCEEDED", "cart quantity limit reached", nil)
	case errors.Is(err, ErrDiscountAlreadyApplied):
		common.JSONError(w, http.StatusConflict, "DISCOUNT_ALREADY_APPLIED", "remove the current discount before applying another", nil)
	case errors.Is(err, catalog.ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product not found", nil)
	case errors.Is(err, discount.ErrNotFound),
		errors.Is(err, discount.ErrExpired),
		errors.Is(err, discount.ErrUsageExceeded),
		errors.Is(err, discount.ErrMinimumSpendUnmet):
		discount.WriteError(w, err)
	case errors.Is(err, delivery.ErrZoneNotFound),
		errors.Is(err, delivery.ErrNoMethodsAvailable),
		errors.Is(err, delivery.ErrPostalCodeInvalid),
		errors.Is(err, delivery.ErrRegionRequired):
		delivery.WriteError(w, err)
	case common.IsAppError(err):
		common.WriteAppError(w, err)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart operation failed", nil)
	}
}
