package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// suspiciousPatterns are path fragments typical of scanners probing for other software
var suspiciousPatterns = []string{
	"wp-admin", "wp-login", "phpmyadmin", ".env", ".git", "backup",
	"login.php", "xmlrpc.php", "../", "etc/passwd",
}

// isSuspiciousPath reports whether the path matches a known probe pattern
func isSuspiciousPath(path string) bool {
	path = strings.ToLower(path)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// LoggingMiddleware logs every request and flags failed or suspicious ones
func LoggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := middleware.GetReqID(r.Context())
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			if isSuspiciousPath(r.URL.Path) {
				logger.Warn("Suspicious request",
					zap.String("request_id", requestID),
					zap.String("remote_addr", r.RemoteAddr),
					zap.String("path", r.URL.Path),
					zap.String("user_agent", r.UserAgent()),
				)
			}

			next.ServeHTTP(ww, r)

			fields := []zap.Field{
				zap.String("request_id", requestID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			}

			switch {
			case ww.Status() >= http.StatusInternalServerError:
				logger.Error("Request failed", fields...)
			case ww.Status() >= http.StatusBadRequest:
				logger.Warn("Request rejected", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
		})
	}
}
