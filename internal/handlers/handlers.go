package handlers

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stagelink/talent-bookings/internal/domain"
	"github.com/stagelink/talent-bookings/internal/repository"
	"github.com/stagelink/talent-bookings/internal/response"
	"github.com/stagelink/talent-bookings/internal/service"
	"github.com/stagelink/talent-bookings/pkg/auth"
	"github.com/stagelink/talent-bookings/pkg/config"
	"github.com/stagelink/talent-bookings/pkg/logger"
)

type contextKey string

const (
	bookingKey contextKey = "booking"
	claimsKey  contextKey = "claims"
)

type Handlers struct {
	workflow      service.SubmissionWorkflow
	authenticator *service.SessionAuthenticator
	issuer        *service.ImpersonationIssuer
	adminService  service.AdminService
	bookingRepo   repository.BookingRepository
	rateLimitRepo repository.RateLimitRepository
	config        *config.Config
}

func New(
	workflow service.SubmissionWorkflow,
	authenticator *service.SessionAuthenticator,
	issuer *service.ImpersonationIssuer,
	adminService service.AdminService,
	bookingRepo repository.BookingRepository,
	rateLimitRepo repository.RateLimitRepository,
	config *config.Config,
) *Handlers {
	return &Handlers{
		workflow:      workflow,
		authenticator: authenticator,
		issuer:        issuer,
		adminService:  adminService,
		bookingRepo:   bookingRepo,
		rateLimitRepo: rateLimitRepo,
		config:        config,
	}
}

func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/bookings", func(r chi.Router) {
		r.With(h.OtpRateLimit()).Post("/submit", h.Submit)
		r.Post("/verify-email", h.VerifyEmail)
		r.With(h.OtpRateLimit()).Post("/resend-otp", h.ResendOtp)

		r.Route("/me", func(r chi.Router) {
			r.Use(h.RequireSession)
			r.Get("/", h.GetMyBooking)
			r.Patch("/", h.UpdateMyBooking)
			r.Post("/cancel", h.CancelMyBooking)
		})
	})

	r.Post("/sessions/login", h.Login)

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireAdmin)
		r.Get("/bookings", h.ListBookings)
		r.Get("/bookings/{id}", h.GetBooking)
		r.Post("/bookings/{id}/cancel", h.CancelBooking)
		r.Post("/clients", h.CreateClient)
		r.Post("/impersonate", h.Impersonate)
	})

	return r
}

// RequireSession resolves the bearer credential into a booking record. A
// plain booking ID and an impersonation token are both accepted; the checks
// run on every request so a just-cancelled booking fails immediately.
func (h *Handlers) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential, ok := bearerToken(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "missing or invalid authorization header", response.CodeUnauthorized)
			return
		}

		var (
			booking *domain.Booking
			claims  *auth.Claims
			err     error
		)
		// Booking IDs never contain dots; JWTs always do.
		if strings.Contains(credential, ".") {
			booking, claims, err = h.issuer.Verify(r.Context(), credential)
		} else {
			booking, err = h.authenticator.Authenticate(r.Context(), credential)
		}
		if err != nil {
			response.DomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), bookingKey, booking)
		ctx = context.WithValue(ctx, logger.BookingIDKey, booking.ID)
		if claims != nil {
			ctx = context.WithValue(ctx, claimsKey, claims)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin accepts only admin JWTs. An impersonation token grants access
// as a client, never administrative privilege.
func (h *Handlers) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "missing or invalid authorization header", response.CodeUnauthorized)
			return
		}

		claims, err := auth.Parse(token, h.config.Auth.JWTSecret)
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "invalid token", response.CodeInvalidToken)
			return
		}
		if claims.Role != auth.RoleAdmin {
			response.Error(w, http.StatusForbidden, "insufficient permissions", response.CodeForbidden)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OtpRateLimit throttles code issuance per client IP. Redis errors fail open.
func (h *Handlers) OtpRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := "otp:" + getClientIP(r)

			allowed, err := h.rateLimitRepo.Allow(r.Context(), key, 5, time.Minute)
			if err != nil {
				logger.ErrorContext(r.Context(), "Rate limit check failed", "error", err)
			} else if !allowed {
				response.Error(w, http.StatusTooManyRequests, "too many requests, please try again later", response.CodeRateLimit)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Helper functions

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func sessionBooking(r *http.Request) *domain.Booking {
	if b, ok := r.Context().Value(bookingKey).(*domain.Booking); ok {
		return b
	}
	return nil
}

func getClaims(r *http.Request) *auth.Claims {
	if claims, ok := r.Context().Value(claimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}

func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	offset = 0

	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return limit, offset
}
