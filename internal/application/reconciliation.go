package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// metadataBookingID is the payment intent metadata key carrying the booking id.
const metadataBookingID = "bookingId"

// HandleWebhook verifies a provider notification and reconciles it onto the
// booking it refers to. A returned error means the provider should retry.
func (s *BookingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (result ReconcileResult, err error) {
	const op = "HandleWebhook"
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	ctx, span := s.tracer.Start(ctx, "BookingService.HandleWebhook")
	defer span.End()

	logger := s.loggerWith(ctx, op)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, ErrorKind(err))
			logger.ErrorContext(ctx, "webhook rejected",
				"event_id", result.EventID,
				"event_type", result.EventType,
				"booking_id", result.BookingID,
				"error", err,
				"error_kind", ErrorKind(err),
			)
			return
		}
		span.SetAttributes(
			attribute.String("webhook.event_id", result.EventID),
			attribute.String("webhook.outcome", string(result.Outcome)),
		)
		logger.With(
			"event_id", result.EventID,
			"event_type", result.EventType,
			"booking_id", result.BookingID,
			"outcome", result.Outcome,
		).InfoContext(ctx, "webhook acknowledged")
	}()

	if s.payments == nil || s.bookings == nil {
		err = NewError(KindConfiguration, op, "booking store or payment gateway not configured", nil)
		return
	}
	if strings.TrimSpace(signature) == "" {
		err = NewError(KindAuthentication, op, "missing Stripe signature", nil)
		return
	}

	var event WebhookEvent
	event, err = s.payments.ParseWebhookEvent(payload, signature)
	if err != nil {
		if KindOf(err) == "" {
			err = NewError(KindAuthentication, op, "webhook signature verification failed", err)
		}
		return
	}
	result.EventID = event.ID
	result.EventType = event.Type

	if s.alreadyProcessed(ctx, logger, event.ID) {
		result.Outcome = OutcomeDuplicateEvent
		return
	}

	switch event.Type {
	case EventPaymentIntentSucceeded:
		result, err = s.confirmPayment(ctx, logger, event, result)
	case EventPaymentIntentFailed:
		result = s.recordPaymentFailure(ctx, logger, event, result)
	default:
		logger.InfoContext(ctx, "unhandled webhook event type", "event_id", event.ID, "event_type", event.Type)
		result.Outcome = OutcomeIgnored
		return
	}
	if err != nil || result.Outcome == OutcomeNotRecorded {
		return
	}

	s.markProcessed(ctx, logger, event.ID)
	return
}

func (s *BookingService) confirmPayment(ctx context.Context, logger *slog.Logger, event WebhookEvent, result ReconcileResult) (ReconcileResult, error) {
	const op = "HandleWebhook"
	intent := event.PaymentIntent
	bookingID := strings.TrimSpace(intent.Metadata[metadataBookingID])
	if bookingID == "" {
		return result, NewError(KindValidation, op, "booking ID missing in payment intent metadata", nil)
	}
	result.BookingID = bookingID

	booking, applied, err := s.bookings.TransitionStatus(ctx, StatusTransition{
		BookingID:       bookingID,
		PaymentIntentID: intent.ID,
		From:            []PaymentStatus{PaymentStatusPending, PaymentStatusFailed, PaymentStatusRequiresAction},
		To:              PaymentStatusSucceeded,
		At:              s.now(),
	})
	if err != nil {
		if isNotFound(err) {
			return result, NewError(KindNotFound, op, "booking not found", err)
		}
		return result, NewError(KindPersistenceFailure, op, "database error processing webhook", err)
	}

	if !applied {
		if booking.PaymentStatus != PaymentStatusSucceeded {
			logger.With(bookingAttrs(booking)...).WarnContext(ctx, "booking not eligible for payment confirmation",
				"event_payment_intent_id", intent.ID,
			)
		}
		result.Outcome = OutcomeAlreadyProcessed
		return result, nil
	}

	result.Outcome = OutcomeConfirmed
	s.publish(ctx, logger, newBookingEvent(EventBookingConfirmed, booking, booking.UpdatedAt))

	if s.notifier == nil {
		result.EmailDispatchError = "Email config missing, booking confirmed but email not sent."
		logger.ErrorContext(ctx, "notifier not configured", "booking_id", bookingID)
		return result, nil
	}
	if notifyErr := s.notifier.NotifyBooking(ctx, booking); notifyErr != nil {
		result.EmailDispatchError = "Failed to send emails, booking confirmed."
		logger.ErrorContext(ctx, "confirmation emails failed",
			"booking_id", bookingID,
			"error", notifyErr,
			"error_kind", KindCollaboratorFailure,
		)
	}
	return result, nil
}

func (s *BookingService) recordPaymentFailure(ctx context.Context, logger *slog.Logger, event WebhookEvent, result ReconcileResult) ReconcileResult {
	intent := event.PaymentIntent
	bookingID := strings.TrimSpace(intent.Metadata[metadataBookingID])
	result.BookingID = bookingID

	logger = logger.With("booking_id", bookingID, "payment_intent_id", intent.ID)
	logger.InfoContext(ctx, "payment intent failed", "reason", intent.FailureMessage)

	if bookingID == "" {
		result.Outcome = OutcomeUnmatched
		logger.WarnContext(ctx, "failed payment intent carries no booking ID")
		return result
	}

	booking, applied, err := s.bookings.TransitionStatus(ctx, StatusTransition{
		BookingID:                 bookingID,
		PaymentIntentID:           intent.ID,
		RequirePaymentIntentMatch: true,
		From:                      []PaymentStatus{PaymentStatusPending, PaymentStatusRequiresAction},
		To:                        PaymentStatusFailed,
		At:                        s.now(),
	})
	switch {
	case err != nil && isNotFound(err):
		result.Outcome = OutcomeUnmatched
		logger.WarnContext(ctx, "booking not found or payment intent mismatch for failed payment")
		return result
	case err != nil:
		result.Outcome = OutcomeNotRecorded
		logger.ErrorContext(ctx, "failed to record payment failure", "error", err, "error_kind", KindPersistenceFailure)
		return result
	case !applied:
		result.Outcome = OutcomeAlreadyProcessed
		logger.InfoContext(ctx, "payment failure not applied", "payment_status", booking.PaymentStatus)
		return result
	}

	result.Outcome = OutcomeMarkedFailed
	s.publish(ctx, logger, newBookingEvent(EventPaymentFailed, booking, booking.UpdatedAt))
	return result
}

func (s *BookingService) alreadyProcessed(ctx context.Context, logger *slog.Logger, eventID string) bool {
	if s.ledger == nil || eventID == "" {
		return false
	}
	seen, err := s.ledger.Seen(ctx, eventID)
	if err != nil {
		logger.WarnContext(ctx, "event ledger lookup failed", "event_id", eventID, "error", err)
		return false
	}
	return seen
}

func (s *BookingService) markProcessed(ctx context.Context, logger *slog.Logger, eventID string) {
	if s.ledger == nil || eventID == "" {
		return
	}
	if err := s.ledger.MarkProcessed(ctx, eventID); err != nil {
		logger.WarnContext(ctx, "failed to record processed event", "event_id", eventID, "error", err)
	}
}
