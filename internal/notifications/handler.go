package notifications

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/whisperbox/whisperbox/internal/domain"
	"github.com/whisperbox/whisperbox/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrProfileNotFound, Status: http.StatusNotFound, Message: "profile not found"},
	{Error: ErrChannelNotConfigured, Status: http.StatusBadRequest, Message: "channel not configured"},
	{Error: ErrChannelDisabled, Status: http.StatusBadRequest, Message: "channel is not available"},
	{Error: ErrUnknownChannel, Status: http.StatusBadRequest, Message: "unknown notification channel"},
}

// HandlerDefaults carries the fallback values for optional trigger fields.
type HandlerDefaults struct {
	BatchSize     int
	RetentionDays int
}

// Handler exposes the queue trigger, stats and test-send endpoints.
type Handler struct {
	processor *Processor
	notifier  *Notifier
	queue     Repository
	defaults  HandlerDefaults
	validator *validator.Validate
}

// NewHandler creates a new notifications handler.
func NewHandler(processor *Processor, notifier *Notifier, queue Repository, defaults HandlerDefaults) *Handler {
	return &Handler{
		processor: processor,
		notifier:  notifier,
		queue:     queue,
		defaults:  defaults,
		validator: validator.New(),
	}
}

// RegisterTriggerRoutes registers the scheduler-facing endpoints. The caller
// wraps them in the cron-secret middleware.
func (h *Handler) RegisterTriggerRoutes(r chi.Router) {
	r.Post("/queue/process", h.ProcessQueue)
	r.Post("/queue/cleanup", h.CleanupQueue)
}

// RegisterAdminRoutes registers operator endpoints. The caller wraps them in
// the admin-key middleware.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/queue/stats", h.QueueStats)
	r.Post("/notifications/test", h.SendTest)
}

// ProcessQueueRequest represents request body for processing the queue.
type ProcessQueueRequest struct {
	BatchSize  int  `json:"batch_size" validate:"omitempty,min=1,max=100"`
	Cleanup    bool `json:"cleanup"`
	DaysToKeep int  `json:"days_to_keep" validate:"omitempty,min=1"`
}

// ProcessQueue handles POST /queue/process.
func (h *Handler) ProcessQueue(w http.ResponseWriter, r *http.Request) {
	var req ProcessQueueRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httputil.ValidationError(w, err)
			return
		}
	}

	batchSize := req.BatchSize
	if batchSize == 0 {
		batchSize = h.defaults.BatchSize
	}

	processed := h.processor.ProcessQueue(r.Context(), batchSize)

	var deleted int64
	if req.Cleanup {
		daysToKeep := req.DaysToKeep
		if daysToKeep == 0 {
			daysToKeep = h.defaults.RetentionDays
		}
		var err error
		deleted, err = h.processor.Cleanup(r.Context(), daysToKeep)
		if err != nil {
			httputil.HandleError(r.Context(), w, err, errorMappings)
			return
		}
	}

	httputil.Success(w, http.StatusOK, map[string]int64{
		"processed": int64(processed),
		"deleted":   deleted,
	})
}

// CleanupQueueRequest represents request body for the cleanup-only trigger.
type CleanupQueueRequest struct {
	DaysToKeep int `json:"days_to_keep" validate:"omitempty,min=1"`
}

// CleanupQueue handles POST /queue/cleanup.
func (h *Handler) CleanupQueue(w http.ResponseWriter, r *http.Request) {
	var req CleanupQueueRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Error(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := h.validator.Struct(req); err != nil {
			httputil.ValidationError(w, err)
			return
		}
	}

	daysToKeep := req.DaysToKeep
	if daysToKeep == 0 {
		daysToKeep = h.defaults.RetentionDays
	}

	deleted, err := h.processor.Cleanup(r.Context(), daysToKeep)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

// QueueStats handles GET /queue/stats.
func (h *Handler) QueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.Stats(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}
	httputil.Success(w, http.StatusOK, stats)
}

// SendTestRequest represents request body for a synchronous test send.
type SendTestRequest struct {
	UserID  string `json:"user_id" validate:"required,uuid"`
	Channel string `json:"channel" validate:"required,oneof=telegram whatsapp email"`
}

// SendTest handles POST /notifications/test. Sender failures are surfaced
// verbatim: the requester is the notification's own recipient.
func (h *Handler) SendTest(w http.ResponseWriter, r *http.Request) {
	var req SendTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	if err := h.notifier.SendTest(r.Context(), req.UserID, domain.ChannelType(req.Channel)); err != nil {
		if errors.Is(err, ErrProfileNotFound) || errors.Is(err, ErrChannelNotConfigured) ||
			errors.Is(err, ErrChannelDisabled) || errors.Is(err, ErrUnknownChannel) {
			httputil.HandleError(r.Context(), w, err, errorMappings)
			return
		}
		// Delivery failure: the channel sender's error goes back verbatim.
		httputil.Error(w, http.StatusBadGateway, err.Error())
		return
	}

	httputil.Success(w, http.StatusOK, map[string]string{"message": "test notification sent"})
}
