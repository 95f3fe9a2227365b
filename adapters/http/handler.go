// Package http provides the HTTP surface of the conversion gateway.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gabrielgadea/kazuba-saas-api/adapters/convert"
	"github.com/gabrielgadea/kazuba-saas-api/adapters/metrics"
	"github.com/gabrielgadea/kazuba-saas-api/app"
	"github.com/gabrielgadea/kazuba-saas-api/domain/key"
	"github.com/gabrielgadea/kazuba-saas-api/domain/quota"
	"github.com/gabrielgadea/kazuba-saas-api/domain/tier"
	"github.com/gabrielgadea/kazuba-saas-api/ports"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// ErrorBody is the JSON error envelope returned on every non-2xx response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable code and human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConvertResponse is the body returned for a successful conversion.
type ConvertResponse struct {
	DocumentID        string    `json:"document_id"`
	Format            string    `json:"format"`
	Text              string    `json:"text"`
	Pages             int       `json:"pages,omitempty"`
	UserTier          tier.Tier `json:"user_tier"`
	RequestsRemaining int64     `json:"requests_remaining"`
}

// VersionResponse is the /version body.
type VersionResponse struct {
	Version string `json:"version"`
	Service string `json:"service"`
}

// GatewayHandler wires the gateway, reporter and converter into HTTP.
type GatewayHandler struct {
	gateway   *app.GatewayService
	usage     *app.UsageService
	converter ports.Converter
	logger    zerolog.Logger
	metrics   *metrics.Collector // nil when metrics are disabled

	maxUploadBytes int64
}

// GatewayHandlerConfig holds construction parameters for GatewayHandler.
type GatewayHandlerConfig struct {
	Gateway        *app.GatewayService
	Usage          *app.UsageService
	Converter      ports.Converter
	Logger         zerolog.Logger
	Metrics        *metrics.Collector
	MaxUploadBytes int64
}

// NewGatewayHandler creates the HTTP handler for the gateway endpoints.
func NewGatewayHandler(cfg GatewayHandlerConfig) *GatewayHandler {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	return &GatewayHandler{
		gateway:        cfg.Gateway,
		usage:          cfg.Usage,
		converter:      cfg.Converter,
		logger:         cfg.Logger,
		metrics:        cfg.Metrics,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Convert handles POST /convert: authenticate, admit against the daily
// request quota, check the monthly document quota, extract text, then
// count the delivered document.
func (h *GatewayHandler) Convert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	decision, err := h.gateway.Check(ctx, id)
	if err != nil {
		h.logger.Error().Err(err).Str("identity", id.ID).Msg("quota check failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	setRateLimitHeaders(w, decision)
	if !decision.Allowed {
		h.writeRejection(w, decision)
		return
	}

	docDecision, err := h.gateway.CheckDocument(ctx, id)
	if err != nil {
		h.logger.Error().Err(err).Str("identity", id.ID).Msg("document quota check failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}
	if !docDecision.Allowed {
		h.writeDocRejection(w, docDecision)
		return
	}

	filename, data, err := h.readUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	doc, err := h.converter.Extract(ctx, filename, data)
	if err != nil {
		if errors.Is(err, convert.ErrUnsupportedFormat) {
			if h.metrics != nil {
				h.metrics.ConversionsTotal.WithLabelValues("unknown", "unsupported").Inc()
			}
			writeError(w, http.StatusBadRequest, "unsupported_format",
				"Supported formats: pdf, docx, txt, md")
			return
		}
		h.logger.Error().Err(err).Str("filename", filename).Msg("conversion failed")
		if h.metrics != nil {
			h.metrics.ConversionsTotal.WithLabelValues("unknown", "error").Inc()
		}
		writeError(w, http.StatusInternalServerError, "internal_error", "Conversion failed")
		return
	}

	// The document is delivered, count it. Failures inside are logged and
	// swallowed so a flaky store cannot retract a finished conversion.
	h.gateway.RecordDocument(ctx, id)

	if h.metrics != nil {
		h.metrics.ConversionsTotal.WithLabelValues(doc.Format, "success").Inc()
	}

	writeJSON(w, http.StatusOK, ConvertResponse{
		DocumentID:        doc.ID,
		Format:            doc.Format,
		Text:              doc.Text,
		Pages:             doc.Pages,
		UserTier:          id.Tier,
		RequestsRemaining: decision.Remaining,
	})
}

// Usage handles GET /usage: a read-only consumption snapshot.
// The snapshot never consumes quota, and unlike /convert there is no
// fallback: without the store the numbers would be fiction, so store
// failures surface as 503.
func (h *GatewayHandler) Usage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	snap, err := h.usage.Snapshot(r.Context(), id)
	if err != nil {
		if errors.Is(err, ports.ErrStoreUnavailable) {
			h.logger.Warn().Err(err).Str("identity", id.ID).Msg("usage snapshot unavailable")
			writeError(w, http.StatusServiceUnavailable, "store_unavailable",
				"Usage data is temporarily unavailable")
			return
		}
		h.logger.Error().Err(err).Str("identity", id.ID).Msg("usage snapshot failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Root handles GET /: the public service banner with the pricing table.
func (h *GatewayHandler) Root(w http.ResponseWriter, r *http.Request) {
	policy := h.gateway.Policy()

	type tierInfo struct {
		RequestsPerDay int64 `json:"requests_per_day"`
		DocsPerMonth   int64 `json:"docs_per_month"`
	}

	tiers := make(map[string]tierInfo, len(tier.All()))
	for _, t := range tier.All() {
		limits, err := policy.LimitFor(t)
		if err != nil {
			continue
		}
		tiers[string(t)] = tierInfo{
			RequestsPerDay: limits.RequestsPerDay,
			DocsPerMonth:   limits.DocsPerMonth,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"service": "kazuba",
		"version": Version,
		"tiers":   tiers,
	})
}

// authenticate resolves the bearer token and writes the 401 on failure.
func (h *GatewayHandler) authenticate(w http.ResponseWriter, r *http.Request) (key.Identity, bool) {
	id, err := key.Resolve(extractToken(r))
	if err != nil {
		if h.metrics != nil {
			h.metrics.AuthFailures.Inc()
		}
		writeError(w, http.StatusUnauthorized, "unauthenticated",
			"A valid API key is required")
		return key.Identity{}, false
	}
	return id, true
}

func (h *GatewayHandler) writeRejection(w http.ResponseWriter, d quota.Decision) {
	setRetryAfter(w, d)
	if d.Reason == quota.ReasonDegraded {
		writeError(w, http.StatusServiceUnavailable, "service_degraded",
			"Service temporarily degraded, please retry")
		return
	}
	writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded",
		"Daily request limit reached")
}

func (h *GatewayHandler) writeDocRejection(w http.ResponseWriter, d quota.Decision) {
	setRetryAfter(w, d)
	if d.Reason == quota.ReasonDegraded {
		writeError(w, http.StatusServiceUnavailable, "service_degraded",
			"Service temporarily degraded, please retry")
		return
	}
	writeError(w, http.StatusPaymentRequired, "doc_quota_exceeded",
		"Monthly document limit reached, upgrade your plan for more")
}

// readUpload reads the document from a multipart form (field "file") or,
// when the request is not multipart, from the raw body with the filename
// taken from the X-Filename header or ?filename= query parameter.
func (h *GatewayHandler) readUpload(r *http.Request) (string, []byte, error) {
	ct := r.Header.Get("Content-Type")

	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			return "", nil, errors.New("invalid multipart form")
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return "", nil, errors.New("missing form field \"file\"")
		}
		defer file.Close()

		data, err := readBounded(file, h.maxUploadBytes)
		if err != nil {
			return "", nil, err
		}
		return header.Filename, data, nil
	}

	filename := r.Header.Get("X-Filename")
	if filename == "" {
		filename = r.URL.Query().Get("filename")
	}
	if filename == "" {
		return "", nil, errors.New("filename required (multipart \"file\" field, X-Filename header, or ?filename=)")
	}

	data, err := readBounded(r.Body, h.maxUploadBytes)
	if err != nil {
		return "", nil, err
	}
	if len(data) == 0 {
		return "", nil, errors.New("empty request body")
	}
	return filename, data, nil
}

func readBounded(rd io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(rd, limit+1))
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("upload exceeds size limit")
	}
	return data, nil
}

// extractToken pulls the bearer token from the Authorization header, the
// X-API-Key header, or the api_key query parameter, in that order.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(auth, "Bearer ") {
			return strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	return r.URL.Query().Get("api_key")
}

// setRateLimitHeaders advertises the daily request quota state.
// Skipped for degraded decisions: no counts are known then, and a made-up
// remaining would be worse than none.
func setRateLimitHeaders(w http.ResponseWriter, d quota.Decision) {
	if d.Degraded {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
	w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}

func setRetryAfter(w http.ResponseWriter, d quota.Decision) {
	if d.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(d.RetryAfter/time.Second), 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	store Pinger
}

// Pinger reports whether the counter store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler creates a health handler. store may be nil, in which
// case readiness reports ok unconditionally.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// Liveness returns a simple liveness check.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness checks whether the counter store is reachable. The service
// still runs without it (the fallback policy covers /convert), so the
// response marks degradation rather than flat failure.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// VersionHandler returns the service version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version: Version,
		Service: "kazuba",
	})
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics     *metrics.Collector
	MetricsPath string // default: /metrics
}

// NewRouter creates the main HTTP router.
func NewRouter(gw *GatewayHandler, health *HealthHandler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))

		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Get("/version", VersionHandler)

	r.Get("/", gw.Root)
	r.Post("/convert", gw.Convert)
	r.Get("/usage", gw.Usage)

	return r
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			duration := time.Since(start).Seconds()
			status := statusLabel(ww.Status())
			path := metrics.NormalizePath(r.URL.Path)

			m.RequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
			m.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		})
	}
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

// NewLoggingMiddleware creates a new logging middleware.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
