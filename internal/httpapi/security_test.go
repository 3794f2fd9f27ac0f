package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonledger/internal/domain"
	"salonledger/internal/inventory"
	"salonledger/internal/service"
	"salonledger/internal/store"
)

func TestMiddlewareSetsSecurityHeaders(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := doJSON(t, api.Handler(), http.MethodGet, "/healthz", "", nil)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Referrer-Policy"))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightReturnsNoContent(t *testing.T) {
	api, _ := newTestAPI(t)

	rec := doJSON(t, api.Handler(), http.MethodOptions, "/api/v1/sales", "", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestLoginRateLimitReturns429(t *testing.T) {
	api, _ := newTestAPI(t)
	handler := api.Handler()

	for i := 0; i < 6; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Email: testEmail, Password: "wrong-pass"})
		if i < 5 {
			require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	}
}

func TestJSONBodyTooLargeRejected(t *testing.T) {
	api, _ := newTestAPI(t)
	veryLong := strings.Repeat("a", (1<<20)+1024)
	body := fmt.Sprintf(`{"email":"%s","password":"x"}`, veryLong)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAttemptLimiterWindow(t *testing.T) {
	limiter := newAttemptLimiter(2, time.Hour)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestClientKeyStripsPort(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.7:5000"
	assert.Equal(t, "192.0.2.7", clientKey(req))

	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", clientKey(req))

	req.RemoteAddr = ""
	assert.Equal(t, "unknown", clientKey(req))
}

func TestWriteServiceErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		check  func(t *testing.T, body map[string]any)
	}{
		{
			name: "partial reconciliation",
			err: &service.PartialReconciliationError{
				SaleID:    "sale-1",
				Operation: "edit",
				Step:      "commit stock",
				Applied:   []domain.StockDelta{{ProductID: "p1", Delta: 2}},
				Err:       errors.New("boom"),
			},
			status: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["reconciliation_required"])
				assert.Equal(t, "sale-1", body["sale_id"])
				assert.Equal(t, "commit stock", body["step"])
				assert.Len(t, body["applied_stock_deltas"], 1)
			},
		},
		{
			name:   "partial wrapping insufficient stock stays partial",
			err:    &service.PartialReconciliationError{SaleID: "sale-2", Operation: "edit", Step: "commit stock", Err: &inventory.InsufficientStockError{ProductID: "p1"}},
			status: http.StatusInternalServerError,
		},
		{
			name:   "insufficient stock",
			err:    &inventory.InsufficientStockError{ProductID: "p1", Available: 1, Requested: 3},
			status: http.StatusConflict,
			check: func(t *testing.T, body map[string]any) {
				assert.EqualValues(t, 1, body["available"])
			},
		},
		{
			name:   "store stock shortfall",
			err:    fmt.Errorf("adjust stock: %w", &store.InsufficientStockError{ProductID: "p2", Available: 2, Requested: 5}),
			status: http.StatusConflict,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "p2", body["product_id"])
				assert.EqualValues(t, 2, body["available"])
				assert.EqualValues(t, 5, body["requested"])
			},
		},
		{
			name:   "remote store",
			err:    &store.RemoteError{Op: "get", Collection: "sales", Err: errors.New("timeout")},
			status: http.StatusServiceUnavailable,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, true, body["retryable"])
			},
		},
		{name: "not found", err: fmt.Errorf("sale x: %w", store.ErrNotFound), status: http.StatusNotFound},
		{name: "not authenticated", err: service.ErrNotAuthenticated, status: http.StatusUnauthorized},
		{name: "bad credentials", err: ErrInvalidCredentials, status: http.StatusUnauthorized},
		{name: "invalid input", err: fmt.Errorf("%w: bad", store.ErrInvalidInput), status: http.StatusBadRequest},
		{
			name:   "unexpected",
			err:    errors.New("disk on fire"),
			status: http.StatusInternalServerError,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "internal server error", body["error"])
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)

			require.Equal(t, tc.status, rec.Code)
			if tc.check != nil {
				tc.check(t, decodeBody(t, rec))
			}
		})
	}
}
