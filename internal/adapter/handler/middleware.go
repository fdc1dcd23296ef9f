package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/rl1809/supply-ledger/internal/core/domain"
	"github.com/rl1809/supply-ledger/internal/core/policy"
	"github.com/rl1809/supply-ledger/internal/core/service"
)

type ctxKey int

const (
	userKey ctxKey = iota
	claimsKey
)

func currentUser(ctx context.Context) domain.User {
	u, _ := ctx.Value(userKey).(domain.User)
	return u
}

func currentClaims(ctx context.Context) domain.Claims {
	c, _ := ctx.Value(claimsKey).(domain.Claims)
	return c
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// guard authenticates the caller and checks op against the policy table before
// next runs. The resolved user is available to next via currentUser.
func (h *HTTPHandler) guard(op policy.Operation, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeErrorMessage(w, http.StatusUnauthorized, "Unauthenticated")
			return
		}

		user, claims, err := h.auth.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, service.ErrUnauthenticated) {
				h.writeError(w, r, err)
				return
			}
			h.logger.Debug("authentication failed", zap.Error(err))
			writeErrorMessage(w, http.StatusUnauthorized, "Unauthenticated")
			return
		}

		if err := policy.Authorize(user, op); err != nil {
			h.metrics.ObserveDenied(string(op))
			h.logger.Info("request denied",
				zap.String("operation", string(op)),
				zap.Int64("user_id", user.ID),
				zap.String("role", string(user.Role)),
			)
			writeErrorMessage(w, http.StatusForbidden, "Unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next(w, r.WithContext(ctx))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// instrument records latency and status per route template and writes an access log line.
func (h *HTTPHandler) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		h.metrics.ObserveHTTP(route, r.Method, rec.status, elapsed)
		h.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", elapsed),
		)
	})
}
