package messages

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/whisperbox/whisperbox/internal/pkg/httputil"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrProfileNotFound, Status: http.StatusNotFound},
}

// Handler exposes the public message intake endpoint.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new message handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers public message routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/u/{username}/messages", h.SubmitMessage)
}

// SubmitMessageRequest represents request body for submitting a message.
type SubmitMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// SubmitMessageResponse is the public view of an accepted message. The
// sender address never leaves the server.
type SubmitMessageResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// SubmitMessage handles POST /u/{username}/messages.
func (h *Handler) SubmitMessage(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req SubmitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	msg, err := h.service.Submit(r.Context(), SubmitInput{
		Username: username,
		Content:  req.Content,
		SenderIP: clientIP(r),
	})
	if err != nil {
		var limited *RateLimitedError
		if errors.As(err, &limited) {
			seconds := int(time.Until(limited.RetryAfter).Seconds())
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			httputil.Error(w, http.StatusTooManyRequests, "too many messages, slow down")
			return
		}
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, SubmitMessageResponse{
		ID:        msg.ID,
		CreatedAt: msg.CreatedAt,
	})
}

// clientIP returns the request's remote address without the port. The RealIP
// middleware already replaced RemoteAddr with the forwarded address when a
// trusted header was present.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
