package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/salon-booking/internal/application"
)

const (
	maxWebhookBodyBytes = 64 << 10
	stripeSignatureKey  = "Stripe-Signature"
	directBookingNotice = "Booking successful! Confirmation emails have been sent."
)

type bookingService interface {
	InitiatePayment(ctx context.Context, input application.BookingInput) (application.PaymentInitiation, error)
	CreateDirectBooking(ctx context.Context, input application.BookingInput) (application.Booking, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (application.ReconcileResult, error)
}

// BookingHandler serves payment initiation, webhook and direct booking requests.
type BookingHandler struct {
	service   bookingService
	location  *time.Location
	responder responder
	logger    *slog.Logger
}

// NewBookingHandler constructs a BookingHandler. loc is the salon timezone used
// for datetime-local input.
func NewBookingHandler(service bookingService, loc *time.Location, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	if loc == nil {
		loc = time.UTC
	}
	return &BookingHandler{service: service, location: loc, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

// CreatePaymentIntent handles POST /api/create-payment-intent.
func (h *BookingHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	input, ok := h.decodeBooking(w, r, "CreatePaymentIntent")
	if !ok {
		return
	}

	result, err := h.service.InitiatePayment(r.Context(), input)
	if err != nil {
		h.log(r.Context(), "CreatePaymentIntent").ErrorContext(r.Context(), "payment initiation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err, http.StatusUnauthorized)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, paymentIntentResponse{
		ClientSecret: result.ClientSecret,
		BookingID:    result.BookingID,
	})
}

// Book handles POST /api/book.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	input, ok := h.decodeBooking(w, r, "Book")
	if !ok {
		return
	}

	logger := h.log(r.Context(), "Book")
	booking, err := h.service.CreateDirectBooking(r.Context(), input)
	if err != nil {
		logger.ErrorContext(r.Context(), "direct booking failed", "booking_id", booking.ID, "error", err, "error_kind", application.ErrorKind(err))
		if booking.ID != "" && application.KindOf(err) == application.KindCollaboratorFailure {
			h.responder.writeJSON(r.Context(), w, http.StatusBadGateway, errorResponse{
				Error:     serviceMessage(err, http.StatusBadGateway),
				ErrorCode: string(application.KindCollaboratorFailure),
				Details:   map[string]string{"bookingId": booking.ID},
			})
			return
		}
		h.responder.handleServiceError(r.Context(), w, err, http.StatusUnauthorized)
		return
	}

	logger.InfoContext(r.Context(), "direct booking accepted", "booking_id", booking.ID)
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, bookingCreatedResponse{
		Message:   directBookingNotice,
		BookingID: booking.ID,
	})
}

// StripeWebhook handles POST /api/stripe-webhook.
func (h *BookingHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	logger := h.log(r.Context(), "StripeWebhook")
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.responder.writeError(r.Context(), w, http.StatusRequestEntityTooLarge, string(application.KindValidation), nil)
			return
		}
		logger.ErrorContext(r.Context(), "failed to read webhook body", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, string(application.KindValidation), errBadRequestBody)
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), payload, r.Header.Get(stripeSignatureKey))
	if err != nil {
		logger.ErrorContext(r.Context(), "webhook rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	logger.InfoContext(r.Context(), "webhook acknowledged",
		"event_id", result.EventID,
		"event_type", result.EventType,
		"outcome", result.Outcome,
	)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, webhookResponse{
		Received:           true,
		Outcome:            string(result.Outcome),
		EmailDispatchError: result.EmailDispatchError,
	})
}

func (h *BookingHandler) decodeBooking(w http.ResponseWriter, r *http.Request, operation string) (application.BookingInput, bool) {
	var req bookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, string(application.KindValidation), errBadRequestBody)
		return application.BookingInput{}, false
	}

	date, ok := parseAppointment(req.Date, h.location)
	if !ok {
		h.responder.writeJSON(r.Context(), w, http.StatusBadRequest, errorResponse{
			Error:     "Missing or invalid fields.",
			ErrorCode: string(application.KindValidation),
			Details:   map[string]string{"date": "date must be RFC 3339 or YYYY-MM-DDTHH:MM"},
		})
		return application.BookingInput{}, false
	}

	return application.BookingInput{
		Name:    req.Name,
		Email:   req.Email,
		Date:    date,
		Message: req.Message,
	}, true
}

type bookingRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

type paymentIntentResponse struct {
	ClientSecret string `json:"clientSecret"`
	BookingID    string `json:"bookingId"`
}

type bookingCreatedResponse struct {
	Message   string `json:"message"`
	BookingID string `json:"bookingId"`
}

type webhookResponse struct {
	Received           bool   `json:"received"`
	Outcome            string `json:"outcome"`
	EmailDispatchError string `json:"email_dispatch_error,omitempty"`
}
