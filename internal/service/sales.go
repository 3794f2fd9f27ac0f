package service

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"salonledger/internal/domain"
	"salonledger/internal/inventory"
	"salonledger/internal/metrics"
	"salonledger/internal/sales"
	"salonledger/internal/store"
)

// PreviewTotals prices a cart without touching stock or storage.
func (s *Service) PreviewTotals(req domain.QuoteRequest) domain.QuoteResponse {
	tax := s.defaultTax
	if req.TaxPercent != nil {
		tax = *req.TaxPercent
	}
	totals := sales.ComputeSaleTotals(req.Items, req.DiscountPercent, tax)
	return domain.QuoteResponse{Totals: totals, Display: sales.Display(totals)}
}

func (s *Service) GetSale(ctx context.Context, sess domain.Session, id string) (domain.Sale, error) {
	if err := requireSession(sess); err != nil {
		return domain.Sale{}, err
	}
	var sale domain.Sale
	if err := s.getOwned(ctx, sess, store.CollectionSales, id, &sale); err != nil {
		return domain.Sale{}, err
	}
	return sale, nil
}

// ListSales returns the owner's sales in [filter.From, filter.To), newest
// first.
func (s *Service) ListSales(ctx context.Context, sess domain.Session, filter domain.SaleFilter) ([]domain.Sale, error) {
	history, err := s.salesHistory(ctx, sess)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Sale, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if sales.InWindow(history[i].Timestamp, filter.From, filter.To) {
			out = append(out, history[i])
		}
	}
	return out, nil
}

// salesHistory returns every sale for the owner, oldest first.
func (s *Service) salesHistory(ctx context.Context, sess domain.Session) ([]domain.Sale, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	records, err := s.docs.GetCollection(ctx, store.CollectionSales, sess.OwnerID, nil)
	if err != nil {
		return nil, err
	}
	history, err := decodeAll[domain.Sale](records)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(history, func(a, b domain.Sale) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return history, nil
}

func (s *Service) CreateSale(ctx context.Context, sess domain.Session, req domain.SaleRequest) (domain.Sale, error) {
	if err := requireSession(sess); err != nil {
		return domain.Sale{}, err
	}
	if err := validateStruct(req); err != nil {
		return domain.Sale{}, err
	}

	products, err := s.loadProducts(ctx, sess, requestedProductIDs(req.Items))
	if err != nil {
		return domain.Sale{}, err
	}
	items, err := buildLineItems(products, req.Items)
	if err != nil {
		return domain.Sale{}, err
	}

	sale := s.newSale(req, items)
	adj, err := inventory.ApplySaleToStock(products, items, inventory.Commit)
	if err != nil {
		return domain.Sale{}, err
	}

	applied, err := s.writeStock(ctx, sess, products, adj.Deltas)
	if err != nil {
		return domain.Sale{}, s.undoStock(ctx, sess, "create", "", "commit stock", adj.Apply(products), applied, err)
	}

	id, err := s.docs.AddDocument(ctx, store.CollectionSales, sess.OwnerID, sale)
	if err != nil {
		return domain.Sale{}, s.undoStock(ctx, sess, "create", "", "persist sale", adj.Apply(products), applied, err)
	}

	metrics.SalesCommitted.WithLabelValues("create").Inc()
	s.invalidateAnalytics(ctx, sess.OwnerID)
	return s.GetSale(ctx, sess, id)
}

// EditSale reverses the original sale's stock, recomputes totals for the new
// items, commits the new stock and persists the sale, in that order. A
// failure after the reversal is returned as a PartialReconciliationError and
// stock is left as it was at the failing step.
func (s *Service) EditSale(ctx context.Context, sess domain.Session, id string, req domain.SaleRequest) (domain.Sale, error) {
	if err := requireSession(sess); err != nil {
		return domain.Sale{}, err
	}
	if err := validateStruct(req); err != nil {
		return domain.Sale{}, err
	}
	existing, err := s.GetSale(ctx, sess, id)
	if err != nil {
		return domain.Sale{}, err
	}

	ids := append(lineItemProductIDs(existing.Items), requestedProductIDs(req.Items)...)
	products, err := s.loadProducts(ctx, sess, ids)
	if err != nil {
		return domain.Sale{}, err
	}
	if _, err := buildLineItems(products, req.Items); err != nil {
		return domain.Sale{}, err
	}

	// (a) reverse the original stock impact
	reversal, err := inventory.ApplySaleToStock(products, existing.Items, inventory.Reverse)
	if err != nil {
		return domain.Sale{}, err
	}
	applied, err := s.writeStock(ctx, sess, products, reversal.Deltas)
	if err != nil {
		if len(applied) == 0 {
			return domain.Sale{}, err
		}
		return domain.Sale{}, s.reconciliationFailed(ctx, id, "edit", "reverse stock", applied, err)
	}
	afterReverse := reversal.Apply(products)

	// (b) recompute totals against the restored stock
	items, err := buildLineItems(afterReverse, req.Items)
	if err != nil {
		return domain.Sale{}, s.reconciliationFailed(ctx, id, "edit", "recompute totals", applied, err)
	}
	updated := s.newSale(req, items)
	if req.Timestamp == nil {
		updated.Timestamp = existing.Timestamp
		updated.Date = existing.Date
	}

	// (c) commit the new stock impact
	commit, err := inventory.ApplySaleToStock(afterReverse, items, inventory.Commit)
	if err != nil {
		return domain.Sale{}, s.reconciliationFailed(ctx, id, "edit", "commit stock", applied, err)
	}
	committed, err := s.writeStock(ctx, sess, afterReverse, commit.Deltas)
	applied = append(applied, committed...)
	if err != nil {
		return domain.Sale{}, s.reconciliationFailed(ctx, id, "edit", "commit stock", applied, err)
	}

	// (d) persist
	err = s.docs.UpdateDocument(ctx, store.CollectionSales, id, saleFields(updated))
	if err != nil {
		return domain.Sale{}, s.reconciliationFailed(ctx, id, "edit", "persist sale", applied, err)
	}

	metrics.SalesCommitted.WithLabelValues("edit").Inc()
	s.invalidateAnalytics(ctx, sess.OwnerID)
	return s.GetSale(ctx, sess, id)
}

// DeleteSale puts the sale's stock back and then removes the record.
func (s *Service) DeleteSale(ctx context.Context, sess domain.Session, id string) error {
	existing, err := s.GetSale(ctx, sess, id)
	if err != nil {
		return err
	}
	products, err := s.loadProducts(ctx, sess, lineItemProductIDs(existing.Items))
	if err != nil {
		return err
	}

	reversal, err := inventory.ApplySaleToStock(products, existing.Items, inventory.Reverse)
	if err != nil {
		return err
	}
	applied, err := s.writeStock(ctx, sess, products, reversal.Deltas)
	if err != nil {
		if len(applied) == 0 {
			return err
		}
		return s.reconciliationFailed(ctx, id, "delete", "reverse stock", applied, err)
	}

	if err := s.docs.DeleteDocument(ctx, store.CollectionSales, id); err != nil {
		return s.reconciliationFailed(ctx, id, "delete", "delete sale", applied, err)
	}

	metrics.SalesCommitted.WithLabelValues("delete").Inc()
	s.invalidateAnalytics(ctx, sess.OwnerID)
	return nil
}

// AuditSales lists sales whose stored totals no longer match their items and
// percentages.
func (s *Service) AuditSales(ctx context.Context, sess domain.Session) ([]domain.AuditFinding, error) {
	history, err := s.salesHistory(ctx, sess)
	if err != nil {
		return nil, err
	}
	findings := make([]domain.AuditFinding, 0)
	for _, sale := range history {
		expected := sales.Recompute(sale)
		if !expected.Equal(sale.SaleTotals) {
			findings = append(findings, domain.AuditFinding{
				SaleID:   sale.ID,
				Date:     sale.Date,
				Stored:   sale.SaleTotals,
				Expected: expected,
			})
		}
	}
	return findings, nil
}

func (s *Service) newSale(req domain.SaleRequest, items []domain.LineItem) domain.Sale {
	tax := s.defaultTax
	if req.TaxPercent != nil {
		tax = *req.TaxPercent
	}
	at := s.now()
	if req.Timestamp != nil {
		at = req.Timestamp.UTC()
	}
	return domain.Sale{
		Items:           items,
		DiscountPercent: req.DiscountPercent,
		TaxPercent:      tax,
		PaymentMethod:   req.PaymentMethod,
		Date:            at.In(s.loc).Format(time.DateOnly),
		Timestamp:       at,
		CustomerID:      strings.TrimSpace(req.CustomerID),
		CustomerName:    strings.TrimSpace(req.CustomerName),
		Notes:           strings.TrimSpace(req.Notes),
		SaleTotals:      sales.ComputeSaleTotals(items, req.DiscountPercent, tax),
	}
}

// writeStock persists deltas computed against snapshot. With a StockAdjuster
// the write is all or nothing; otherwise products are updated one by one and
// the deltas that landed are returned alongside any error.
func (s *Service) writeStock(ctx context.Context, sess domain.Session, snapshot map[string]domain.Product, deltas []domain.StockDelta) ([]domain.StockDelta, error) {
	if len(deltas) == 0 {
		return nil, nil
	}
	if adjuster, ok := s.docs.(store.StockAdjuster); ok {
		if err := adjuster.AdjustStock(ctx, sess.OwnerID, deltas); err != nil {
			return nil, err
		}
		return deltas, nil
	}

	applied := make([]domain.StockDelta, 0, len(deltas))
	for _, delta := range deltas {
		stock := snapshot[delta.ProductID].Stock + delta.Delta
		err := s.docs.UpdateDocument(ctx, store.CollectionProducts, delta.ProductID, map[string]any{"stock": stock})
		if err != nil {
			return applied, err
		}
		applied = append(applied, delta)
	}
	return applied, nil
}

// undoStock compensates a create that failed after stock was written. The
// undo runs even if ctx was cancelled.
func (s *Service) undoStock(ctx context.Context, sess domain.Session, op string, saleID string, step string, snapshot map[string]domain.Product, applied []domain.StockDelta, cause error) error {
	if len(applied) == 0 {
		return cause
	}
	undoCtx := context.WithoutCancel(ctx)
	undone, err := s.writeStock(undoCtx, sess, snapshot, negate(applied))
	if err != nil {
		return s.reconciliationFailed(ctx, saleID, op, step, unreverted(applied, undone), errors.Join(cause, err))
	}
	s.log.Warn("sale write failed, stock change rolled back",
		zap.String("operation", op),
		zap.String("step", step),
		zap.Error(cause),
	)
	return cause
}

func (s *Service) reconciliationFailed(ctx context.Context, saleID string, op string, step string, applied []domain.StockDelta, err error) error {
	metrics.StockReconciliationFailures.WithLabelValues(op, step).Inc()
	s.log.Error("sale flow left stock needing reconciliation",
		zap.Bool("reconciliation_required", true),
		zap.String("sale_id", saleID),
		zap.String("operation", op),
		zap.String("step", step),
		zap.Any("applied_stock_deltas", applied),
		zap.Error(err),
	)
	return &PartialReconciliationError{
		SaleID:    saleID,
		Operation: op,
		Step:      step,
		Applied:   applied,
		Err:       err,
	}
}

func buildLineItems(products map[string]domain.Product, reqItems []domain.SaleItemRequest) ([]domain.LineItem, error) {
	items := make([]domain.LineItem, 0, len(reqItems))
	for i, reqItem := range reqItems {
		product, ok := products[reqItem.ProductID]
		if !ok {
			return nil, invalidField(itemField(i, "product_id"), "does not exist")
		}
		price := product.Price
		if reqItem.UnitPrice != nil {
			price = *reqItem.UnitPrice
		}
		items = append(items, domain.LineItem{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPrice:      price,
			Quantity:       reqItem.Quantity,
			AvailableStock: product.Stock,
		})
	}
	return items, nil
}

func saleFields(sale domain.Sale) map[string]any {
	return map[string]any{
		"items":            sale.Items,
		"discount_percent": sale.DiscountPercent,
		"tax_percent":      sale.TaxPercent,
		"payment_method":   sale.PaymentMethod,
		"date":             sale.Date,
		"timestamp":        sale.Timestamp,
		"customer_id":      sale.CustomerID,
		"customer_name":    sale.CustomerName,
		"notes":            sale.Notes,
		"subtotal":         sale.Subtotal,
		"discount_amount":  sale.DiscountAmount,
		"taxable_amount":   sale.TaxableAmount,
		"tax_amount":       sale.TaxAmount,
		"total":            sale.Total,
	}
}

func requestedProductIDs(items []domain.SaleItemRequest) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func lineItemProductIDs(items []domain.LineItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

func negate(deltas []domain.StockDelta) []domain.StockDelta {
	out := make([]domain.StockDelta, 0, len(deltas))
	for _, d := range deltas {
		out = append(out, domain.StockDelta{ProductID: d.ProductID, Delta: -d.Delta})
	}
	return out
}

// unreverted returns the part of applied that undone did not cancel.
func unreverted(applied []domain.StockDelta, undone []domain.StockDelta) []domain.StockDelta {
	remaining := make([]domain.StockDelta, 0, len(applied))
	for i, d := range applied {
		if i < len(undone) {
			continue
		}
		remaining = append(remaining, d)
	}
	return remaining
}

func itemField(index int, name string) string {
	return "items[" + strconv.Itoa(index) + "]." + name
}
