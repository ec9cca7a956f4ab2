package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/salon-booking/internal/application"
	"github.com/example/salon-booking/internal/logging"
)

const maxJSONBodyBytes = 1 << 20

var (
	errBadRequestBody      = errors.New("Invalid request body.")
	errMissingSessionToken = errors.New("A session token is required.")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code string, err error) {
	message := statusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}
	r.writeJSON(ctx, w, status, errorResponse{Error: message, ErrorCode: code})
}

// handleServiceError renders a service failure. authStatus is the status used
// for authentication failures, which differs between the webhook and session
// endpoints.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error, authStatus int) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, "unexpected", errors.New("unknown error"))
		return
	}

	kind := application.KindOf(err)
	status := statusForKind(kind, authStatus)
	resp := errorResponse{
		Error:     serviceMessage(err, status),
		ErrorCode: application.ErrorKind(err),
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) && len(vErr.FieldErrors) > 0 {
		resp.Details = vErr.FieldErrors
	}

	r.writeJSON(ctx, w, status, resp)
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

// decodeJSON reads a bounded JSON request body into dst.
func decodeJSON(w http.ResponseWriter, req *http.Request, dst any) error {
	body := http.MaxBytesReader(w, req.Body, maxJSONBodyBytes)
	dec := json.NewDecoder(body)
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func statusForKind(kind application.Kind, authStatus int) int {
	switch kind {
	case application.KindValidation:
		return http.StatusBadRequest
	case application.KindAuthentication:
		return authStatus
	case application.KindNotFound:
		return http.StatusNotFound
	case application.KindConflict:
		return http.StatusConflict
	case application.KindCollaboratorFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func serviceMessage(err error, status int) string {
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		return "Missing or invalid fields."
	}
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		return "Invalid email or password."
	case errors.Is(err, application.ErrSessionExpired):
		return "Session expired. Please sign in again."
	case errors.Is(err, application.ErrSessionRevoked):
		return "Session revoked. Please sign in again."
	}

	var tagged *application.Error
	if errors.As(err, &tagged) && (status < http.StatusInternalServerError || tagged.Kind == application.KindCollaboratorFailure) {
		return tagged.Message()
	}
	return statusMessage(status)
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "The request is invalid."
	case http.StatusUnauthorized:
		return "Authentication is required."
	case http.StatusNotFound:
		return "The requested resource was not found."
	case http.StatusConflict:
		return "The request conflicts with the current state of the resource."
	case http.StatusRequestEntityTooLarge:
		return "The request body is too large."
	case http.StatusBadGateway:
		return "An upstream service failed."
	default:
		return "An internal server error occurred."
	}
}

type errorResponse struct {
	Error     string            `json:"error"`
	ErrorCode string            `json:"error_code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}
