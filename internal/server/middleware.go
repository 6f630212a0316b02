package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/normanking/taskdeck/internal/metrics"
)

// userHandler is a handler that has passed ownership checks.
type userHandler func(w http.ResponseWriter, r *http.Request, userID string)

// requireUser verifies the bearer token and that its subject matches
// the user_id path segment.
func (s *Server) requireUser(next userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}

		userID, err := s.auth.Verify(r.Context(), token)
		if err != nil {
			s.log.Debug("token verification failed", "error", err)
			writeError(w, http.StatusUnauthorized, authErrorMessage(err))
			return
		}

		if pathUser := r.PathValue("user_id"); pathUser != userID {
			writeError(w, http.StatusForbidden, "Access denied: user ID mismatch")
			return
		}

		next(w, r, userID)
	}
}

// withCORS applies CORS and baseline security headers.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.Server.CORSOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// instrument records request count and latency metrics.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		endpoint := metricEndpoint(r.URL.Path)
		metrics.RequestCount.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// metricEndpoint collapses per-user path segments so label
// cardinality stays bounded.
func metricEndpoint(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "api" && parts[1] != "auth" {
		parts[1] = ":user_id"
		if len(parts) >= 4 && parts[2] == "tasks" {
			parts[3] = ":task_id"
		}
	}
	return "/" + strings.Join(parts, "/")
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return token, token != ""
}

// clientIP is the rate-limiting key. Proxy headers are deliberately
// ignored; trusting them would let clients spoof their own key.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
