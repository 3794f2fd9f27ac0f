package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"salonledger/internal/domain"
	"salonledger/internal/inventory"
	"salonledger/internal/logger"
	"salonledger/internal/metrics"
	"salonledger/internal/service"
	"salonledger/internal/store"
)

const ServiceName = "salonledger"

type API struct {
	service         *service.Service
	auth            *AuthManager
	allowedOrigin   string
	log             *zap.Logger
	loginLimiter    *attemptLimiter
	registerLimiter *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, log *zap.Logger) *API {
	if log == nil {
		log = zap.NewNop()
	}
	return &API{
		service:         svc,
		auth:            auth,
		allowedOrigin:   allowedOrigin,
		log:             log.Named("http"),
		loginLimiter:    newAttemptLimiter(5, time.Minute),
		registerLimiter: newAttemptLimiter(10, time.Hour),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/api/v1/auth/register", a.handleRegister)
	mux.HandleFunc("/api/v1/auth/login", a.handleLogin)

	mux.HandleFunc("/api/v1/products", a.requireAuth(a.handleProducts))
	mux.HandleFunc("/api/v1/products/low-stock", a.requireAuth(a.handleLowStock))
	mux.HandleFunc("/api/v1/products/{id}", a.requireAuth(a.handleProduct))
	mux.HandleFunc("/api/v1/suppliers", a.requireAuth(a.handleSuppliers))
	mux.HandleFunc("/api/v1/suppliers/{id}", a.requireAuth(a.handleSupplier))

	mux.HandleFunc("/api/v1/sales", a.requireAuth(a.handleSales))
	mux.HandleFunc("/api/v1/sales/quote", a.requireAuth(a.handleQuote))
	mux.HandleFunc("/api/v1/sales/export.csv", a.requireAuth(a.handleSalesExport))
	mux.HandleFunc("/api/v1/sales/audit", a.requireAuth(a.handleSalesAudit))
	mux.HandleFunc("/api/v1/sales/{id}", a.requireAuth(a.handleSale))

	mux.HandleFunc("/api/v1/takings", a.requireAuth(a.handleTakings))
	mux.HandleFunc("/api/v1/takings/daily", a.requireAuth(a.handleDailyTakings))
	mux.HandleFunc("/api/v1/takings/export.csv", a.requireAuth(a.handleTakingsExport))
	mux.HandleFunc("/api/v1/takings/{id}", a.requireAuth(a.handleTakingsEntry))

	mux.HandleFunc("/api/v1/analytics", a.requireAuth(a.handleAnalytics))
	mux.HandleFunc("/api/v1/dashboard", a.requireAuth(a.handleDashboard))

	return logger.Middleware(a.log, observeRequest)(a.withMiddleware(mux))
}

func observeRequest(r *http.Request, pattern string, status int, elapsed time.Duration) {
	if pattern == "" {
		pattern = "unmatched"
	}
	metrics.ObserveRequest(ServiceName, r.Method, pattern, status, elapsed)
}

type sessionKey struct{}

func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			writeError(w, r, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		sess, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		ctx = logger.WithContext(ctx, logger.FromContext(ctx).With(zap.String("owner_id", sess.OwnerID)))
		next(w, r.WithContext(ctx))
	}
}

// sessionFrom returns the caller's session. It is empty outside requireAuth,
// which the service rejects as not authenticated.
func sessionFrom(r *http.Request) domain.Session {
	sess, _ := r.Context().Value(sessionKey{}).(domain.Session)
	return sess
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,PATCH,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")
		w.Header().Set("Vary", "Origin")

		if r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeServiceError maps service and store errors onto HTTP responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var partial *service.PartialReconciliationError
	if errors.As(err, &partial) {
		logger.FromContext(r.Context()).Error("stock reconciliation required",
			zap.String("sale_id", partial.SaleID),
			zap.String("step", partial.Step),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":                   "sale " + partial.Operation + " stopped after changing stock; manual reconciliation required",
			"reconciliation_required": true,
			"sale_id":                 partial.SaleID,
			"step":                    partial.Step,
			"applied_stock_deltas":    partial.Applied,
		})
		return
	}

	var validation *service.ValidationError
	if errors.As(err, &validation) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  err.Error(),
			"fields": validation.Fields,
		})
		return
	}

	var stockErr *inventory.InsufficientStockError
	if errors.As(err, &stockErr) {
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":      err.Error(),
			"product_id": stockErr.ProductID,
			"available":  stockErr.Available,
			"requested":  stockErr.Requested,
		})
		return
	}

	if service.Retryable(err) {
		logger.FromContext(r.Context()).Warn("document store unavailable", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":     "document store unavailable, please retry",
			"retryable": true,
		})
		return
	}

	writeError(w, r, statusFor(err), err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotAuthenticated), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientStock):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrRemote):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parseBool(raw string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && value
}

func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	// 5xx details stay in the log; 4xx messages are meant for the caller.
	msg := err.Error()
	if status >= 500 {
		logger.FromContext(r.Context()).Error("internal error", zap.Int("status", status), zap.Error(err))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
