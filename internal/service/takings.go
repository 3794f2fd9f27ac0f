package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"salonledger/internal/domain"
	"salonledger/internal/store"
)

// RecordTakings stores a manual takings entry for a day, as counted at the
// till rather than derived from sales.
func (s *Service) RecordTakings(ctx context.Context, sess domain.Session, req domain.TakingsRequest) (domain.TakingsEntry, error) {
	if err := requireSession(sess); err != nil {
		return domain.TakingsEntry{}, err
	}
	req.Date = strings.TrimSpace(req.Date)
	if err := validateStruct(req); err != nil {
		return domain.TakingsEntry{}, err
	}

	entry := domain.TakingsEntry{
		Date:   req.Date,
		Method: req.Method,
		Amount: req.Amount,
		Tip:    req.Tip,
		Note:   strings.TrimSpace(req.Note),
	}
	id, err := s.docs.AddDocument(ctx, store.CollectionTakings, sess.OwnerID, entry)
	if err != nil {
		return domain.TakingsEntry{}, err
	}
	if err := s.getOwned(ctx, sess, store.CollectionTakings, id, &entry); err != nil {
		return domain.TakingsEntry{}, err
	}
	return entry, nil
}

// ListTakings returns takings entries, all of them when date is empty.
func (s *Service) ListTakings(ctx context.Context, sess domain.Session, date string) ([]domain.TakingsEntry, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	var filters store.Filters
	if date = strings.TrimSpace(date); date != "" {
		if _, err := time.Parse(time.DateOnly, date); err != nil {
			return nil, invalidField("date", "must match 2006-01-02")
		}
		filters = store.Filters{"date": date}
	}
	records, err := s.docs.GetCollection(ctx, store.CollectionTakings, sess.OwnerID, filters)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.TakingsEntry](records)
}

// DailyTakings totals one day's entries per payment method. Total includes
// tips.
func (s *Service) DailyTakings(ctx context.Context, sess domain.Session, date string) (domain.DailyTakings, error) {
	if strings.TrimSpace(date) == "" {
		date = s.today()
	}
	entries, err := s.ListTakings(ctx, sess, date)
	if err != nil {
		return domain.DailyTakings{}, err
	}

	daily := domain.DailyTakings{
		Date:     strings.TrimSpace(date),
		ByMethod: make(map[string]decimal.Decimal, len(domain.PaymentMethods)),
		Tips:     decimal.Zero,
		Total:    decimal.Zero,
		Entries:  len(entries),
	}
	for _, method := range domain.PaymentMethods {
		daily.ByMethod[string(method)] = decimal.Zero
	}
	for _, entry := range entries {
		method := string(entry.Method)
		daily.ByMethod[method] = daily.ByMethod[method].Add(entry.Amount)
		daily.Tips = daily.Tips.Add(entry.Tip)
		daily.Total = daily.Total.Add(entry.Amount).Add(entry.Tip)
	}
	return daily, nil
}

func (s *Service) DeleteTakings(ctx context.Context, sess domain.Session, id string) error {
	if err := requireSession(sess); err != nil {
		return err
	}
	var entry domain.TakingsEntry
	if err := s.getOwned(ctx, sess, store.CollectionTakings, id, &entry); err != nil {
		return err
	}
	return s.docs.DeleteDocument(ctx, store.CollectionTakings, id)
}
