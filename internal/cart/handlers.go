package cart

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/customer"
	"github.com/noah-isme/toko-pricing/internal/pricing"
)

// Handler wires the cart service to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// NewHandler constructs a handler with a shared validator instance.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New()}
}

// Routes mounts the cart endpoints on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/carts", h.Create)
	r.Route("/carts/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/stats", h.Stats)
		r.Post("/items", h.AddItem)
		r.Put("/items/{key}", h.UpdateItem)
		r.Delete("/items/{key}", h.RemoveItem)
		r.Post("/empty", h.Empty)
		r.Post("/discounts", h.ApplyDiscount)
		r.Delete("/discounts/{code}", h.RemoveDiscount)
		r.Post("/fees", h.AddFee)
		r.Put("/tax-rate", h.SetTaxRate)
	})
}

type createPayload struct {
	CustomerID *int64 `json:"customerId"`
	Email      string `json:"email" validate:"omitempty,email"`
	UserID     *int64 `json:"userId"`
}

// Create starts a new cart session.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid customer reference", nil)
		return
	}
	var cust customer.Ref
	switch {
	case payload.CustomerID != nil:
		cust = customer.ByID(*payload.CustomerID)
	case payload.Email != "":
		cust = customer.ByEmail(strings.ToLower(strings.TrimSpace(payload.Email)))
	case payload.UserID != nil:
		cust = customer.ByUserID(*payload.UserID)
	}
	c, err := h.Svc.Create(r.Context(), cust)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"cartId": c.ID()},
	})
}

// Get returns the cart contents with per-item pricing details.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	details := c.ContentsDetails(r.Context())
	summary := pricing.Summarize(details, c.Fees())
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"cartId":  c.ID(),
			"items":   details,
			"codes":   c.Codes(),
			"fees":    c.Fees(),
			"summary": summary,
			"stats":   c.CalculationStats(),
		},
	})
}

// Stats reports the pricing-cache state without touching it.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": c.CalculationStats()})
}

type addItemPayload struct {
	ProductID string            `json:"productId" validate:"required,uuid4"`
	VariantID string            `json:"variantId" validate:"omitempty,uuid4"`
	Qty       int               `json:"qty" validate:"required,gt=0"`
	Options   map[string]string `json:"options"`
}

// AddItem appends a line item, pricing it from the catalog.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	var payload addItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item payload", nil)
		return
	}
	productID, err := uuid.Parse(payload.ProductID)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	var variantID *uuid.UUID
	if payload.VariantID != "" {
		v, err := uuid.Parse(payload.VariantID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid variant id", nil)
			return
		}
		variantID = &v
	}
	key, err := h.Svc.AddItem(r.Context(), c, productID, variantID, payload.Qty, payload.Options)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"key": key},
	})
}

type updateItemPayload struct {
	Qty int `json:"qty" validate:"required,gt=0"`
}

// UpdateItem changes a line quantity.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	key, err := strconv.Atoi(chi.URLParam(r, "key"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item key", nil)
		return
	}
	var payload updateItemPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "qty must be positive", nil)
		return
	}
	if err := h.Svc.UpdateQty(r.Context(), c, key, payload.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": map[string]any{"key": key}})
}

// RemoveItem deletes a line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	key, err := strconv.Atoi(chi.URLParam(r, "key"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item key", nil)
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), c, key); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Empty clears the cart contents.
func (h *Handler) Empty(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Empty(r.Context(), c); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type codePayload struct {
	Code string `json:"code" validate:"required,min=1,max=64"`
}

// ApplyDiscount validates and attaches a discount code.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	var payload codePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "code required", nil)
		return
	}
	if err := h.Svc.ApplyDiscount(r.Context(), c, payload.Code); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"codes": c.Codes()},
	})
}

// RemoveDiscount detaches a discount code.
func (h *Handler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	code := chi.URLParam(r, "code")
	if err := h.Svc.RemoveDiscount(r.Context(), c, code); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type feePayload struct {
	Name   string `json:"name" validate:"required,min=1,max=64"`
	Amount string `json:"amount" validate:"required"`
}

// AddFee appends an order-level fee. Amount is a decimal string in
// major units, e.g. "4.99".
func (h *Handler) AddFee(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	var payload feePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	if err := h.Validate.Struct(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid fee payload", nil)
		return
	}
	amount, err := pricing.ParseAmount(payload.Amount)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid fee amount", nil)
		return
	}
	if err := h.Svc.AddFee(r.Context(), c, pricing.Fee{Name: payload.Name, Amount: amount}); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{
		"data": map[string]any{"fees": c.Fees()},
	})
}

type taxRatePayload struct {
	// Rate is a decimal fraction, e.g. "0.15" for 15%. Null clears the
	// override and marks the effective rate unknown.
	Rate *string `json:"rate"`
}

// SetTaxRate pins or clears the cart-level tax override.
func (h *Handler) SetTaxRate(w http.ResponseWriter, r *http.Request) {
	c, ok := h.load(w, r)
	if !ok {
		return
	}
	var payload taxRatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json body", nil)
		return
	}
	var rate *pricing.Bps
	if payload.Rate != nil {
		bps, err := pricing.ParseRate(*payload.Rate)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid tax rate", nil)
			return
		}
		rate = &bps
	}
	if err := h.Svc.SetTaxRate(r.Context(), c, rate); err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{"taxOverride": c.TaxOverride()},
	})
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (*Cart, bool) {
	id := chi.URLParam(r, "id")
	if id == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "cart id required", nil)
		return nil, false
	}
	c, err := h.Svc.Load(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return c, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrNotEligible):
		common.JSONError(w, http.StatusUnprocessableEntity, "NOT_ELIGIBLE", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unexpected error", nil)
	}
}
