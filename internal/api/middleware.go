package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"txtforge/pkg/logger"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	clientCookie    = "clientId"
	clientCookieAge = 365 * 24 * 60 * 60
)

type adminKey struct{}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		logger.Info("HTTP request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Int("bytes", ww.BytesWritten()),
			logger.Duration("duration", time.Since(start)),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.String("remote_addr", r.RemoteAddr),
		)
	})
}

// adminOnly rejects requests without a bearer token with 401 and requests
// with an invalid or expired one with 403.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, http.StatusUnauthorized, "Требуется авторизация")
			return
		}

		username, err := s.deps.Auth.Verify(strings.TrimSpace(token))
		if err != nil {
			logger.Debug("Rejected admin token",
				logger.String("path", r.URL.Path),
				logger.Err(err),
			)
			writeError(w, http.StatusForbidden, "Недействительный токен")
			return
		}

		ctx := context.WithValue(r.Context(), adminKey{}, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminFromContext returns the username stored by adminOnly.
func adminFromContext(ctx context.Context) string {
	name, _ := ctx.Value(adminKey{}).(string)
	return name
}

// readClientID returns the anonymous client id cookie, or "" when absent.
func readClientID(r *http.Request) string {
	c, err := r.Cookie(clientCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// ensureClientID returns the caller's client id, issuing a new cookie when the
// request carries none.
func (s *Server) ensureClientID(w http.ResponseWriter, r *http.Request) string {
	if id := readClientID(r); id != "" {
		return id
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     clientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   clientCookieAge,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
