package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"salonledger/internal/domain"
	"salonledger/internal/logger"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	if !a.registerLimiter.Allow(clientKey(r)) {
		writeError(w, r, http.StatusTooManyRequests, errors.New("too many registration attempts, try again later"))
		return
	}

	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	user, err := a.service.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	user.PasswordHash = ""
	logger.FromContext(r.Context()).Info("owner registered", zap.String("owner_id", user.ID))
	writeJSON(w, http.StatusCreated, user)
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, r, http.StatusTooManyRequests, errors.New("too many login attempts, try again later"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	switch r.Method {
	case http.MethodGet:
		query := r.URL.Query()
		filter := domain.ProductFilter{
			Category:   strings.TrimSpace(query.Get("category")),
			SupplierID: strings.TrimSpace(query.Get("supplierId")),
			LowStock:   parseBool(query.Get("lowStock")),
		}
		products, err := a.service.ListProducts(r.Context(), sess, filter)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, products)
	case http.MethodPost:
		var req domain.ProductCreateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), sess, req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleProduct(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		product, err := a.service.GetProduct(r.Context(), sess, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodPatch:
		var req domain.ProductUpdateRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.UpdateProduct(r.Context(), sess, id, req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodDelete:
		if err := a.service.DeleteProduct(r.Context(), sess, id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	products, err := a.service.LowStockProducts(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *API) handleSuppliers(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	switch r.Method {
	case http.MethodGet:
		suppliers, err := a.service.ListSuppliers(r.Context(), sess, parseBool(r.URL.Query().Get("active")))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, suppliers)
	case http.MethodPost:
		var req domain.SupplierRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		supplier, err := a.service.CreateSupplier(r.Context(), sess, req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, supplier)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleSupplier(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		supplier, err := a.service.GetSupplier(r.Context(), sess, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, supplier)
	case http.MethodPatch, http.MethodPut:
		var req domain.SupplierRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		supplier, err := a.service.UpdateSupplier(r.Context(), sess, id, req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, supplier)
	case http.MethodDelete:
		if err := a.service.DeleteSupplier(r.Context(), sess, id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleQuote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	var req domain.QuoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, a.service.PreviewTotals(req))
}

func (a *API) handleSales(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	switch r.Method {
	case http.MethodGet:
		filter, err := a.saleFilter(r)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		sales, err := a.service.ListSales(r.Context(), sess, filter)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sales)
	case http.MethodPost:
		var req domain.SaleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.CreateSale(r.Context(), sess, req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, sale)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleSale(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	id := r.PathValue("id")
	switch r.Method {
	case http.MethodGet:
		sale, err := a.service.GetSale(r.Context(), sess, id)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	case http.MethodPut:
		var req domain.SaleRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		sale, err := a.service.EditSale(r.Context(), sess, id, req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sale)
	case http.MethodDelete:
		if err := a.service.DeleteSale(r.Context(), sess, id); err != nil {
			writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleSalesExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	filter, err := a.saleFilter(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}

	// Rendered into memory first so a failed read still gets a JSON error.
	var body strings.Builder
	if err := a.service.ExportSalesCSV(r.Context(), sessionFrom(r), &body, filter); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCSV(w, "sales-"+time.Now().In(a.service.Location()).Format("2006-01-02")+".csv", body.String())
}

func (a *API) handleSalesAudit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	findings, err := a.service.AuditSales(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checked_at": time.Now().UTC().Format(time.RFC3339),
		"findings":   findings,
	})
}

func (a *API) handleTakings(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	switch r.Method {
	case http.MethodGet:
		entries, err := a.service.ListTakings(r.Context(), sess, strings.TrimSpace(r.URL.Query().Get("date")))
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	case http.MethodPost:
		var req domain.TakingsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err)
			return
		}
		entry, err := a.service.RecordTakings(r.Context(), sess, req)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	default:
		writeMethodNotAllowed(w, r)
	}
}

func (a *API) handleTakingsEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeMethodNotAllowed(w, r)
		return
	}
	if err := a.service.DeleteTakings(r.Context(), sessionFrom(r), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDailyTakings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	daily, err := a.service.DailyTakings(r.Context(), sessionFrom(r), strings.TrimSpace(r.URL.Query().Get("date")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, daily)
}

func (a *API) handleTakingsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	date := strings.TrimSpace(r.URL.Query().Get("date"))

	var body strings.Builder
	if err := a.service.ExportTakingsCSV(r.Context(), sessionFrom(r), &body, date); err != nil {
		writeServiceError(w, r, err)
		return
	}
	name := "takings.csv"
	if date != "" {
		name = "takings-" + date + ".csv"
	}
	writeCSV(w, name, body.String())
}

func (a *API) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	report, err := a.service.Analytics(r.Context(), sessionFrom(r), strings.TrimSpace(r.URL.Query().Get("range")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	summary, err := a.service.Dashboard(r.Context(), sessionFrom(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// saleFilter reads the from/to query parameters. Plain dates are taken in the
// business time zone and "to" covers the whole day.
func (a *API) saleFilter(r *http.Request) (domain.SaleFilter, error) {
	query := r.URL.Query()
	from, err := parseBound(query.Get("from"), a.service.Location(), false)
	if err != nil {
		return domain.SaleFilter{}, fmt.Errorf("invalid from: %w", err)
	}
	to, err := parseBound(query.Get("to"), a.service.Location(), true)
	if err != nil {
		return domain.SaleFilter{}, fmt.Errorf("invalid to: %w", err)
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return domain.SaleFilter{}, errors.New("to must not be before from")
	}
	return domain.SaleFilter{From: from, To: to}, nil
}

func parseBound(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if day, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		if endOfDay {
			return day.AddDate(0, 0, 1), nil
		}
		return day, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New("expected YYYY-MM-DD or RFC3339")
	}
	return ts, nil
}

func writeCSV(w http.ResponseWriter, filename string, body string) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
