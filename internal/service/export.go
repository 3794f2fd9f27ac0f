package service

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"salonledger/internal/domain"
)

var salesCSVHeader = []string{"Date", "Time", "Customer", "Items", "Subtotal", "Discount", "Tax", "Total", "Payment Method"}

var takingsCSVHeader = []string{"Date", "Method", "Amount", "Tip"}

// ExportSalesCSV writes the filtered sales, newest first. Fields containing
// commas, quotes or newlines are quoted.
func (s *Service) ExportSalesCSV(ctx context.Context, sess domain.Session, w io.Writer, filter domain.SaleFilter) error {
	list, err := s.ListSales(ctx, sess, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(salesCSVHeader); err != nil {
		return err
	}
	for _, sale := range list {
		customer := sale.CustomerName
		if customer == "" {
			customer = "Walk-in"
		}
		method := string(sale.PaymentMethod)
		if method == "" {
			method = string(domain.PaymentCash)
		}
		row := []string{
			sale.Date,
			sale.Timestamp.In(s.loc).Format("15:04"),
			customer,
			strconv.Itoa(len(sale.Items)),
			sale.Subtotal.StringFixed(2),
			sale.DiscountAmount.StringFixed(2),
			sale.TaxAmount.StringFixed(2),
			sale.Total.StringFixed(2),
			method,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) ExportTakingsCSV(ctx context.Context, sess domain.Session, w io.Writer, date string) error {
	entries, err := s.ListTakings(ctx, sess, date)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(takingsCSVHeader); err != nil {
		return err
	}
	for _, entry := range entries {
		row := []string{
			entry.Date,
			string(entry.Method),
			entry.Amount.StringFixed(2),
			entry.Tip.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
