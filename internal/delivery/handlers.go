package delivery

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mossery/storefront-api/internal/common"
	"github.com/mossery/storefront-api/internal/pricing"
)

// Handler exposes zone lookup for the storefront and zone/method management
// for the back-office.
type Handler struct {
	Store    *PGStore
	Resolver *Resolver
	Validate *validator.Validate
}

// GetZone returns the zone for a country, including the fee each active
// method would charge at the optional ?subtotal= goods value.
func (h *Handler) GetZone(w http.ResponseWriter, r *http.Request) {
	if h.Resolver == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "delivery resolver not configured", nil)
		return
	}
	country := chi.URLParam(r, "country")
	zone, err := h.Resolver.ResolveZone(r.Context(), country)
	if err != nil {
		WriteError(w, err)
		return
	}
	var subtotalCents pricing.Money
	if raw := r.URL.Query().Get("subtotal"); raw != "" {
		amount, err := strconv.ParseFloat(raw, 64)
		if err != nil || amount < 0 {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid subtotal", nil)
			return
		}
		subtotalCents = pricing.ToMinorUnits(amount)
	}
	methods := zone.ActiveMethods()
	out := make([]map[string]any, 0, len(methods))
	for _, m := range methods {
		fee := ResolveFee(m, zone.FreeThreshold, subtotalCents)
		out = append(out, map[string]any{
			"id":           m.ID,
			"label":        m.Label,
			"price":        m.Price,
			"freeEligible": m.FreeEligible,
			"fee":          pricing.FromMinorUnits(fee),
		})
	}
	common.Data(w, http.StatusOK, map[string]any{
		"countryCode":   zone.Country,
		"currency":      zone.Currency,
		"freeThreshold": zone.FreeThreshold,
		"methods":       out,
	})
}

type zonePayload struct {
	Country       string  `json:"countryCode" validate:"required,len=2,alpha"`
	Currency      string  `json:"currency" validate:"required,len=3,alpha"`
	FreeThreshold float64 `json:"freeThreshold" validate:"gte=0"`
}

// UpsertZone creates or updates a zone header.
func (h *Handler) UpsertZone(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "delivery store not configured", nil)
		return
	}
	var payload zonePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.Country = strings.ToUpper(strings.TrimSpace(payload.Country))
	payload.Currency = strings.ToUpper(strings.TrimSpace(payload.Currency))
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
	}
	zone := Zone{Country: payload.Country, Currency: payload.Currency, FreeThreshold: payload.FreeThreshold}
	if err := h.Store.UpsertZone(r.Context(), zone); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to save zone", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"countryCode": zone.Country})
}

type methodPayload struct {
	ID           string  `json:"id" validate:"required,min=2,max=64"`
	Label        string  `json:"label" validate:"required"`
	Price        float64 `json:"price" validate:"gte=0"`
	FreeEligible bool    `json:"freeEligible"`
	Active       bool    `json:"active"`
	SortOrder    int     `json:"sortOrder" validate:"gte=0"`
}

// UpsertMethod creates or updates a shipping method inside a zone.
func (h *Handler) UpsertMethod(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "delivery store not configured", nil)
		return
	}
	country := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "country")))
	if _, err := h.Store.FindZoneByCountry(r.Context(), country); err != nil {
		WriteError(w, err)
		return
	}
	var payload methodPayload
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
	method := Method{
		ID:           payload.ID,
		Label:        payload.Label,
		Price:        payload.Price,
		FreeEligible: payload.FreeEligible,
		Active:       payload.Active,
		SortOrder:    payload.SortOrder,
	}
	if err := h.Store.UpsertMethod(r.Context(), country, method); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to save method", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"countryCode": country, "methodId": method.ID})
}

// SetMethodActive toggles a method's availability.
func (h *Handler) SetMethodActive(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "delivery store not configured", nil)
		return
	}
	country := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "country")))
	methodID := chi.URLParam(r, "methodId")
	var payload struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if err := h.Store.SetMethodActive(r.Context(), country, methodID, payload.Active); err != nil {
		WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"methodId": methodID, "active": payload.Active})
}

// ListZones returns every zone for the admin table.
func (h *Handler) ListZones(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "delivery store not configured", nil)
		return
	}
	zones, err := h.Store.ListZones(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list zones", nil)
		return
	}
	common.Data(w, http.StatusOK, zones)
}

// WriteError maps delivery sentinel errors onto stable API error codes.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrZoneNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "delivery zone not found", nil)
	case errors.Is(err, ErrNoMethodsAvailable):
		common.JSONError(w, http.StatusUnprocessableEntity, "NO_METHODS_AVAILABLE", "no shipping methods available for this destination", nil)
	case errors.Is(err, ErrPostalCodeInvalid):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "postal code invalid for country", nil)
	case errors.Is(err, ErrRegionRequired):
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "region is required for country", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
