package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Bookings    *BookingHandler
	Contact     *ContactHandler
	Users       *UserHandler
	Auth        *AuthHandler
	Sessions    SessionValidator
	Middleware  []func(http.Handler) http.Handler
	HealthCheck func(r *http.Request) error
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			methodNotAllowed(w, http.MethodGet, http.MethodHead)
			return
		}
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(r); err != nil {
				http.Error(w, "unhealthy", http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if cfg.Bookings != nil {
		mux.HandleFunc("/api/create-payment-intent", postOnly(cfg.Bookings.CreatePaymentIntent))
		mux.HandleFunc("/api/stripe-webhook", postOnly(cfg.Bookings.StripeWebhook))
		mux.HandleFunc("/api/book", postOnly(cfg.Bookings.Book))
	}

	if cfg.Contact != nil {
		mux.HandleFunc("/api/contact", postOnly(cfg.Contact.Submit))
	}

	if cfg.Users != nil {
		mux.HandleFunc("/api/register", postOnly(cfg.Users.Register))
		if cfg.Sessions != nil {
			me := RequireSession(cfg.Sessions, nil)(http.HandlerFunc(cfg.Users.Me))
			mux.HandleFunc("/api/me", func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					methodNotAllowed(w, http.MethodGet)
					return
				}
				me.ServeHTTP(w, r)
			})
		}
	}

	if cfg.Auth != nil {
		mux.HandleFunc("/api/sessions", postOnly(cfg.Auth.CreateSession))
		mux.HandleFunc("/api/sessions/current", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Auth.DeleteCurrentSession(w, r)
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}

func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		next(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
