package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/salon-booking/internal/application"
)

const contactReceivedNotice = "Thank you for your message! We'll get back to you soon."

type contactService interface {
	SubmitMessage(ctx context.Context, input application.ContactInput) (application.ContactMessage, error)
}

// ContactHandler serves the public contact form.
type ContactHandler struct {
	service   contactService
	responder responder
	logger    *slog.Logger
}

func NewContactHandler(service contactService, logger *slog.Logger) *ContactHandler {
	base := defaultLogger(logger)
	return &ContactHandler{service: service, responder: newResponder(base), logger: base}
}

// Submit handles POST /api/contact.
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := handlerLogger(r.Context(), h.logger, "ContactHandler", "Submit")

	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logger.ErrorContext(r.Context(), "failed to decode contact request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, string(application.KindValidation), errBadRequestBody)
		return
	}

	msg, err := h.service.SubmitMessage(r.Context(), application.ContactInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Message: req.Message,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "contact submission failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err, http.StatusUnauthorized)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, contactResponse{
		Message:   contactReceivedNotice,
		MessageID: msg.ID,
	})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type contactResponse struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}
