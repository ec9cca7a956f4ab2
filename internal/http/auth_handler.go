package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/salon-booking/internal/application"
)

const (
	sessionCookieName = "session_token"
	sessionHeaderName = "X-Session-Token"
)

type authService interface {
	Authenticate(ctx context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error)
	RevokeSession(ctx context.Context, token string) error
}

type AuthHandler struct {
	service   authService
	responder responder
	logger    *slog.Logger
}

func NewAuthHandler(service authService, logger *slog.Logger) *AuthHandler {
	base := defaultLogger(logger)
	return &AuthHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AuthHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AuthHandler", operation, attrs...)
}

// CreateSession handles POST /api/sessions. The token is returned in the body,
// the X-Session-Token header and the session cookie.
func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(ctx, "CreateSession").WarnContext(ctx, "failed to decode session request", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, string(application.KindValidation), errBadRequestBody)
		return
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	if fields := req.missingFields(email); len(fields) > 0 {
		h.responder.handleServiceError(ctx, w, &application.ValidationError{FieldErrors: fields}, http.StatusUnauthorized)
		return
	}

	result, err := h.service.Authenticate(ctx, application.AuthenticateParams{
		Email:       email,
		Password:    req.Password,
		Fingerprint: r.UserAgent(),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err, http.StatusUnauthorized)
		return
	}

	session := result.Session
	setSessionCookie(w, session.Token, session.ExpiresAt, session.CreatedAt)
	w.Header().Set(sessionHeaderName, session.Token)
	h.log(ctx, "CreateSession", "user_id", result.User.ID).InfoContext(ctx, "session issued")

	h.responder.writeJSON(ctx, w, http.StatusCreated, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339Nano),
		User:      toUserDTO(result.User),
	})
}

// DeleteCurrentSession handles DELETE /api/sessions/current.
func (h *AuthHandler) DeleteCurrentSession(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	token := extractTokenFromRequest(r)
	if token == "" {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, string(application.KindAuthentication), errMissingSessionToken)
		return
	}

	if err := h.service.RevokeSession(ctx, token); err != nil {
		h.responder.handleServiceError(ctx, w, err, http.StatusUnauthorized)
		return
	}

	clearSessionCookie(w)
	h.log(ctx, "DeleteCurrentSession").InfoContext(ctx, "session revoked")
	w.WriteHeader(http.StatusNoContent)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (req loginRequest) missingFields(email string) map[string]string {
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "email is required"
	}
	if req.Password == "" {
		fields["password"] = "password is required"
	}
	return fields
}

type loginResponse struct {
	Token     string  `json:"token"`
	ExpiresAt string  `json:"expires_at"`
	User      userDTO `json:"user"`
}

func setSessionCookie(w http.ResponseWriter, token string, expires, issued time.Time) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires.UTC()
		if !issued.IsZero() && expires.After(issued) {
			cookie.MaxAge = int(expires.Sub(issued).Seconds())
		}
	}
	http.SetCookie(w, cookie)
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// extractTokenFromRequest checks the Authorization bearer token, then the
// X-Session-Token header, then the session cookie.
func extractTokenFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	if scheme, credentials, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " "); ok && strings.EqualFold(scheme, "Bearer") {
		if token := strings.TrimSpace(credentials); token != "" {
			return token
		}
	}
	if token := strings.TrimSpace(r.Header.Get(sessionHeaderName)); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessionCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}
