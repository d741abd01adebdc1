package ratelimit

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/whisperbox/whisperbox/internal/pkg/httputil"
)

// Handler exposes the admin policy endpoints.
type Handler struct {
	guard     *Guard
	validator *validator.Validate
}

// NewHandler creates a new rate limit admin handler.
func NewHandler(guard *Guard) *Handler {
	return &Handler{
		guard:     guard,
		validator: validator.New(),
	}
}

// RegisterRoutes registers policy routes. The caller wraps them in the
// admin-key middleware.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/rate-limit/policy", h.GetPolicy)
	r.Put("/rate-limit/policy", h.SavePolicy)
}

// GetPolicy handles GET /rate-limit/policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policy := h.guard.CurrentPolicy(r.Context())
	httputil.Success(w, http.StatusOK, policy)
}

// SavePolicyRequest represents request body for saving a policy.
type SavePolicyRequest struct {
	MaxMessagesPerHour int `json:"max_messages_per_hour" validate:"required,min=1"`
	MaxMessagesPerDay  int `json:"max_messages_per_day" validate:"required,min=1"`
	BlockDurationHours int `json:"block_duration_hours" validate:"required,min=1"`
}

// SavePolicy handles PUT /rate-limit/policy. The cache is invalidated
// before the response is written, so a check issued right after the save
// observes the new thresholds.
func (h *Handler) SavePolicy(w http.ResponseWriter, r *http.Request) {
	var req SavePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	policy := &Policy{
		ID:                 uuid.NewString(),
		MaxMessagesPerHour: req.MaxMessagesPerHour,
		MaxMessagesPerDay:  req.MaxMessagesPerDay,
		BlockDurationHours: req.BlockDurationHours,
	}

	if err := h.guard.SavePolicy(r.Context(), policy); err != nil {
		httputil.HandleError(r.Context(), w, err, nil)
		return
	}

	httputil.Success(w, http.StatusCreated, policy)
}
