package order

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mossery/storefront-api/internal/common"
)

// Handler exposes order reads. Orders are written only by checkout.
type Handler struct {
	Store Store
}

// ListBySession returns a session's order history.
func (h *Handler) ListBySession(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	orders, err := h.Store.ListBySession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list orders", nil)
		return
	}
	common.Data(w, http.StatusOK, orders)
}

// Get returns one order with its items.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order store not configured", nil)
		return
	}
	o, err := h.Store.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load order", nil)
		return
	}
	common.Data(w, http.StatusOK, o)
}
