package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maypok86/otter/v2"

	"github.com/codeGROOVE-dev/tzmeet/pkg/countrytz"
	"github.com/codeGROOVE-dev/tzmeet/pkg/planner"
	"github.com/codeGROOVE-dev/tzmeet/pkg/render"
)

const (
	maxBodyBytes = 64 << 10
	planTimeout  = 30 * time.Second
)

type server struct {
	planner    *planner.Planner
	cache      *otter.Cache[string, []byte]
	limiter    limiter
	logger     *slog.Logger
	now        func() time.Time
	trustProxy bool
}

func newResponseCache() *otter.Cache[string, []byte] {
	return otter.Must(&otter.Options[string, []byte]{
		MaximumSize:      10_000,
		InitialCapacity:  256,
		ExpiryCalculator: otter.ExpiryWriting[string, []byte](10 * time.Minute),
	})
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/plan", s.limited(s.handlePlan))
	mux.HandleFunc("POST /api/v1/resolve", s.limited(s.handleResolve))
	mux.HandleFunc("GET /api/v1/zones/{cc}", s.handleZones)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	return s.wrap(mux)
}

func (s *server) wrap(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)

		defer func() {
			if err := recover(); err != nil {
				const size = 64 << 10
				buf := make([]byte, size)
				buf = buf[:runtime.Stack(buf, false)]

				s.logger.Error("PANIC: Request handler crashed",
					"error", err,
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", requestID,
					"client_ip", clientIP(r, s.trustProxy),
					"user_agent", r.Header.Get("User-Agent"),
					"stack", string(buf))
				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		w.Header().Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=(), bluetooth=()")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		}

		handler.ServeHTTP(w, r)
	})
}

// limited rejects clients over the rate limit. Limiter failures let the
// request through.
func (s *server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r, s.trustProxy)
		ok, err := s.limiter.allow(r.Context(), ip)
		if err != nil {
			s.logger.Warn("rate limiter error", "error", err, "client_ip", ip)
			ok = true
		}
		if !ok {
			s.logger.Warn("Rate limit exceeded",
				"request_id", w.Header().Get("X-Request-ID"),
				"client_ip", ip,
				"path", r.URL.Path)
			s.writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Rate limit exceeded", "")
			return
		}
		next(w, r)
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
}

func (s *server) writeError(w http.ResponseWriter, status int, code, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: msg, Details: details, Code: code}); err != nil {
		s.logger.Error("Failed to encode error response", "request_id", w.Header().Get("X-Request-ID"), "error", err)
	}
}

func (s *server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", "request_id", w.Header().Get("X-Request-ID"), "error", err)
	}
}

var contentTypes = map[string]string{
	"json":     "application/json",
	"ics":      "text/calendar; charset=utf-8",
	"markdown": "text/markdown; charset=utf-8",
}

// planCacheKey hashes the output format, today's date and the raw body.
// Today is part of the key because empty ranges default to the current month.
func planCacheKey(format string, today time.Time, body []byte) string {
	h := sha256.New()
	h.Write([]byte(format + "|" + today.UTC().Format("2006-01-02") + "|"))
	h.Write(body)
	return "plan:" + hex.EncodeToString(h.Sum(nil))
}

func (s *server) handlePlan(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	requestID := w.Header().Get("X-Request-ID")

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	contentType, ok := contentTypes[format]
	if !ok {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Unknown format", "use json, ics or markdown")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, http.StatusRequestEntityTooLarge, "INVALID_REQUEST", "Request body too large", "")
		return
	}

	key := planCacheKey(format, s.now(), body)
	if data, found := s.cache.GetIfPresent(key); found {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("X-Cache", "memory-hit")
		if _, err := w.Write(data); err != nil {
			s.logger.Error("Failed to write cached response", "request_id", requestID, "error", err)
		}
		return
	}

	var req planner.Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.logger.Info("Invalid request body", "request_id", requestID, "error", err, "client_ip", clientIP(r, s.trustProxy))
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), planTimeout)
	defer cancel()

	res, err := s.planner.Plan(ctx, req)
	if err != nil {
		s.planError(w, requestID, err, time.Since(start))
		return
	}

	var buf bytes.Buffer
	switch format {
	case "ics":
		err = render.ICS(&buf, res)
	case "markdown":
		var out string
		if out, err = render.Markdown(res); err == nil {
			buf.WriteString(out)
		}
	default:
		err = json.NewEncoder(&buf).Encode(res)
	}
	if err != nil {
		s.logger.Error("Encoding failed", "request_id", requestID, "format", format, "error", err)
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Encoding failed", "")
		return
	}

	data := buf.Bytes()
	s.cache.Set(key, data)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("X-Cache", "miss")
	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write response", "request_id", requestID, "error", err)
		return
	}
	s.logger.Info("Plan request completed",
		"request_id", requestID,
		"participants", len(res.Participants),
		"countries", res.Countries,
		"matches", len(res.Matches),
		"format", format,
		"duration_ms", time.Since(start).Milliseconds())
}

func (s *server) planError(w http.ResponseWriter, requestID string, err error, elapsed time.Duration) {
	switch {
	case errors.Is(err, planner.ErrInvalidRequest):
		s.logger.Info("Invalid plan request", "request_id", requestID, "error", err)
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Error("Plan timeout", "request_id", requestID, "error", err, "duration_ms", elapsed.Milliseconds())
		s.writeError(w, http.StatusGatewayTimeout, "TIMEOUT", "Planning took too long",
			fmt.Sprintf("The request exceeded the %s timeout. Please try again.", planTimeout))
	case errors.Is(err, context.Canceled):
		s.logger.Info("Plan canceled", "request_id", requestID, "error", err)
		s.writeError(w, http.StatusRequestTimeout, "CANCELED", "Request was canceled", "")
	default:
		s.logger.Error("Plan failed", "request_id", requestID, "error", err, "error_type", fmt.Sprintf("%T", err))
		s.writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Planning failed", "")
	}
}

func (s *server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Lat *float64 `json:"lat"`
		Lng *float64 `json:"lng"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request", err.Error())
		return
	}
	if req.Lat == nil || req.Lng == nil || *req.Lat < -90 || *req.Lat > 90 || *req.Lng < -180 || *req.Lng > 180 {
		s.writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "lat and lng are required and must be in range", "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), planTimeout)
	defer cancel()
	s.writeJSON(w, s.planner.Resolve(ctx, *req.Lat, *req.Lng))
}

func (s *server) handleZones(w http.ResponseWriter, r *http.Request) {
	cc := strings.ToUpper(r.PathValue("cc"))
	if !countrytz.Known(cc) {
		s.writeError(w, http.StatusNotFound, "UNKNOWN_COUNTRY", "Unknown country code", cc)
		return
	}
	s.writeJSON(w, struct {
		CountryCode    string   `json:"country_code"`
		Representative string   `json:"representative"`
		Zones          []string `json:"zones"`
	}{cc, countrytz.Representative(cc), countrytz.Zones(cc)})
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.planner.Ready(ctx); err != nil {
		s.logger.Warn("Readiness check failed", "error", err)
		s.writeError(w, http.StatusServiceUnavailable, "NOT_READY", "Not ready", err.Error())
		return
	}
	s.writeJSON(w, map[string]string{"status": "ready"})
}
