package discount

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mossery/storefront-api/internal/common"
	"github.com/mossery/storefront-api/internal/pricing"
)

// Handler exposes the admin back-office endpoints for discount codes.
type Handler struct {
	Store    *PGStore
	Svc      *Service
	Validate *validator.Validate
}

type codePayload struct {
	Code         string     `json:"code" validate:"required,min=2,max=64"`
	Published    bool       `json:"published"`
	IsPercentage bool       `json:"isPercentage"`
	Value        float64    `json:"value" validate:"gte=0"`
	MinSubtotal  float64    `json:"minSubtotal" validate:"gte=0"`
	ExpiresAt    *time.Time `json:"expiresAt"`
	MaxUsage     *int32     `json:"maxUsage"`
}

func (h *Handler) validatePayload(p codePayload) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(p)
}

// Create registers a new discount code.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount store not configured", nil)
		return
	}
	var payload codePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.Code = strings.ToUpper(strings.TrimSpace(payload.Code))
	if err := h.validatePayload(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if payload.IsPercentage && payload.Value > 100 {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "percentage value must not exceed 100", nil)
		return
	}
	if err := h.Store.Upsert(r.Context(), recordFromPayload(payload)); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to save discount code", nil)
		return
	}
	common.Data(w, http.StatusCreated, map[string]any{"code": payload.Code})
}

// Update replaces an existing code's rule and constraints.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount store not configured", nil)
		return
	}
	code := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "code")))
	var payload codePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	payload.Code = code
	if err := h.validatePayload(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	if _, err := h.Store.FindByCode(r.Context(), code); err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "discount code not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to load discount code", nil)
		return
	}
	if err := h.Store.Upsert(r.Context(), recordFromPayload(payload)); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to save discount code", nil)
		return
	}
	common.Data(w, http.StatusOK, map[string]any{"code": code})
}

// List returns all codes for the admin table.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount store not configured", nil)
		return
	}
	records, err := h.Store.List(r.Context())
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list discount codes", nil)
		return
	}
	out := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		out = append(out, map[string]any{
			"code":         rec.Code,
			"published":    rec.Published,
			"isPercentage": rec.IsPercentage,
			"value":        rec.Value,
			"minSubtotal":  pricing.FromMinorUnits(rec.MinSubtotal),
			"expiresAt":    rec.ExpiresAt,
			"usageCount":   rec.UsageCount,
			"maxUsage":     rec.MaxUsage,
		})
	}
	common.Data(w, http.StatusOK, out)
}

// Preview evaluates a code against a hypothetical subtotal without consuming usage.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "discount service not configured", nil)
		return
	}
	var payload struct {
		Code     string  `json:"code"`
		Subtotal float64 `json:"subtotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	subtotalCents := pricing.ToMinorUnits(payload.Subtotal)
	rule, err := h.Svc.Revalidate(r.Context(), payload.Code, subtotalCents)
	if err != nil {
		WriteError(w, err)
		return
	}
	applied := rule.Apply(subtotalCents)
	if applied > subtotalCents {
		applied = subtotalCents
	}
	common.Data(w, http.StatusOK, map[string]any{
		"rule":     rule,
		"discount": applied,
	})
}

// WriteError maps discount sentinel errors onto stable API error codes.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "discount code not found", nil)
	case errors.Is(err, ErrExpired):
		common.JSONError(w, http.StatusUnprocessableEntity, "DISCOUNT_EXPIRED", "discount code expired", nil)
	case errors.Is(err, ErrUsageExceeded):
		common.JSONError(w, http.StatusUnprocessableEntity, "DISCOUNT_USAGE_EXCEEDED", "discount usage limit reached", nil)
	case errors.Is(err, ErrMinimumSpendUnmet):
		common.JSONError(w, http.StatusUnprocessableEntity, "DISCOUNT_MIN_SPEND", "minimum order value not met", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}

func recordFromPayload(p codePayload) Record {
	return Record{
		Code:         p.Code,
		Published:    p.Published,
		IsPercentage: p.IsPercentage,
		Value:        p.Value,
		MinSubtotal:  pricing.ToMinorUnits(p.MinSubtotal),
		ExpiresAt:    p.ExpiresAt,
		MaxUsage:     p.MaxUsage,
	}
}
