// Package server exposes the BookSwap HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"bookswap/internal/app"
	"bookswap/internal/ratelimit"
	"bookswap/internal/util"
	"bookswap/pkg/auth"
	"bookswap/pkg/domain"
	"bookswap/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App *app.App

	// AuthLimiter throttles the unauthenticated auth endpoints per client
	// IP. Nil disables throttling.
	AuthLimiter *ratelimit.FixedWindowLimiter

	// TrustedProxies controls which peers may supply forwarded-for headers.
	TrustedProxies *util.TrustedProxies
}

// Server exposes HTTP endpoints over the application core.
type Server struct {
	app         *app.App
	authLimiter *ratelimit.FixedWindowLimiter
	trusted     *util.TrustedProxies
	mux         *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	s := &Server{
		app:         cfg.App,
		authLimiter: cfg.AuthLimiter,
		trusted:     cfg.TrustedProxies,
		mux:         http.NewServeMux(),
	}
	s.routes()
	return s
}

// Router returns the configured handler wrapped with request id and
// request logging middleware.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/register", s.handleRegister)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/verify-email", s.handleVerifyEmail)
	s.mux.HandleFunc("/api/auth/resend-otp", s.handleResendOTP)

	// catalog
	s.mux.HandleFunc("/api/books", s.handleBooks)
	s.mux.HandleFunc("/api/books/", s.handleBookByID)

	// swaps
	s.mux.Handle("/api/swaps", s.authenticated(s.handleCreateSwap))
	s.mux.Handle("/api/swaps/incoming", s.authenticated(s.handleIncomingSwaps))
	s.mux.Handle("/api/swaps/outgoing", s.authenticated(s.handleOutgoingSwaps))
	s.mux.Handle("/api/swaps/", s.authenticated(s.handleSwapAction))

	// notifications and profiles
	s.mux.Handle("/api/notifications", s.authenticated(s.handleNotifications))
	s.mux.Handle("/api/users/me", s.authenticated(s.handleMe))
	s.mux.Handle("/api/users/", s.authenticated(s.handleUserByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

// allowAuthRate throttles the unauthenticated auth endpoints per client IP.
func (s *Server) allowAuthRate(w http.ResponseWriter, r *http.Request) bool {
	if s.authLimiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trusted)
	if s.authLimiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, "too many attempts, try again later")
	return false
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps a business failure onto its HTTP status. Unexpected
// failures log the detail and surface a generic server fault.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var stateErr *store.SwapStateError
	switch {
	case errors.Is(err, app.ErrNameEmailPasswordRequired),
		errors.Is(err, app.ErrInvalidEmail),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, app.ErrNoPendingCode),
		errors.Is(err, app.ErrCodeExpired),
		errors.Is(err, app.ErrCodeMismatch),
		errors.Is(err, app.ErrBookFieldsRequired),
		errors.Is(err, app.ErrInvalidCondition),
		errors.Is(err, app.ErrBadCoverType),
		errors.Is(err, app.ErrMissingSwapFields),
		errors.Is(err, app.ErrRequestedOwnerMismatch),
		errors.Is(err, app.ErrSelfSwap),
		errors.As(err, &stateErr):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, app.ErrNotVerified),
		errors.Is(err, app.ErrNotOfferedOwner),
		errors.Is(err, app.ErrNotBookOwner),
		errors.Is(err, app.ErrNotRecipient):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrBookNotFound),
		errors.Is(err, app.ErrSwapNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrEmailAlreadyRegistered),
		errors.Is(err, app.ErrDuplicatePendingSwap),
		errors.Is(err, app.ErrOwnershipDrifted):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger := slog.Default()
		if r != nil {
			logger = util.LoggerFromContext(r.Context())
		}
		logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
