package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"salonledger/internal/domain"
	"salonledger/internal/store"
	"salonledger/internal/xid"
)

type document struct {
	id        string
	ownerID   string
	seq       uint64
	fields    map[string]json.RawMessage
	createdAt time.Time
	updatedAt time.Time
}

type Store struct {
	mu          sync.RWMutex
	seq         uint64
	now         func() time.Time
	collections map[string]map[string]*document
}

func New() *Store {
	return &Store{
		now:         func() time.Time { return time.Now().UTC() },
		collections: make(map[string]map[string]*document),
	}
}

// WithClock replaces the timestamp source. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *Store) GetCollection(ctx context.Context, collection string, ownerID string, filters store.Filters) ([]store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(ownerID) == "" {
		return nil, fmt.Errorf("%w: owner id required", store.ErrInvalidInput)
	}
	encodedFilters, err := store.EncodePartial(filters)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]*document, 0, len(s.collections[collection]))
	for _, doc := range s.collections[collection] {
		if doc.ownerID != ownerID || !matches(doc, encodedFilters) {
			continue
		}
		docs = append(docs, doc)
	}
	slices.SortFunc(docs, func(a, b *document) int {
		if a.seq < b.seq {
			return -1
		}
		if a.seq > b.seq {
			return 1
		}
		return 0
	})

	records := make([]store.Record, 0, len(docs))
	for _, doc := range docs {
		record, err := doc.record()
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *Store) GetDocument(ctx context.Context, collection string, id string) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, store.ErrNotFound
	}
	record, err := doc.record()
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *Store) AddDocument(ctx context.Context, collection string, ownerID string, data any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(ownerID) == "" {
		return "", fmt.Errorf("%w: owner id required", store.ErrInvalidInput)
	}
	fields, err := store.EncodeFields(data)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := xid.New(strings.TrimSuffix(collection, "s"))
	s.insertLocked(collection, id, ownerID, fields)
	return id, nil
}

func (s *Store) UpdateDocument(ctx context.Context, collection string, id string, partial map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fields, err := store.EncodePartial(partial)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return store.ErrNotFound
	}
	for key, value := range fields {
		doc.fields[key] = value
	}
	doc.updatedAt = s.now()
	return nil
}

func (s *Store) DeleteDocument(ctx context.Context, collection string, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return store.ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

// AdjustStock validates every delta against current stock before writing any
// of them, all under the store lock.
func (s *Store) AdjustStock(ctx context.Context, ownerID string, deltas []domain.StockDelta) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products := s.collections[store.CollectionProducts]
	next := make(map[string]int, len(deltas))
	before := make(map[string]int, len(deltas))
	order := make([]string, 0, len(deltas))
	for _, delta := range deltas {
		doc, ok := products[delta.ProductID]
		if !ok || doc.ownerID != ownerID {
			return fmt.Errorf("product %s: %w", delta.ProductID, store.ErrNotFound)
		}
		current, seen := next[delta.ProductID]
		if !seen {
			if err := json.Unmarshal(doc.fields["stock"], &current); err != nil && len(doc.fields["stock"]) > 0 {
				return fmt.Errorf("product %s stock: %w", delta.ProductID, err)
			}
			before[delta.ProductID] = current
			order = append(order, delta.ProductID)
		}
		next[delta.ProductID] = current + delta.Delta
	}
	for _, productID := range order {
		if next[productID] < 0 {
			var name string
			_ = json.Unmarshal(products[productID].fields["name"], &name)
			return &store.InsufficientStockError{
				ProductID: productID,
				Name:      name,
				Available: before[productID],
				Requested: before[productID] - next[productID],
			}
		}
	}

	now := s.now()
	for _, productID := range order {
		encoded, _ := json.Marshal(next[productID])
		doc := products[productID]
		doc.fields["stock"] = encoded
		doc.updatedAt = now
	}
	return nil
}

func (s *Store) insertLocked(collection string, id string, ownerID string, fields map[string]json.RawMessage) {
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]*document)
	}
	s.seq++
	now := s.now()
	s.collections[collection][id] = &document{
		id:        id,
		ownerID:   ownerID,
		seq:       s.seq,
		fields:    fields,
		createdAt: now,
		updatedAt: now,
	}
}

func (d *document) record() (store.Record, error) {
	data, err := json.Marshal(d.fields)
	if err != nil {
		return store.Record{}, err
	}
	return store.Record{
		ID:        d.id,
		OwnerID:   d.ownerID,
		Data:      data,
		CreatedAt: d.createdAt,
		UpdatedAt: d.updatedAt,
	}, nil
}

func matches(doc *document, filters map[string]json.RawMessage) bool {
	for key, want := range filters {
		got, ok := doc.fields[key]
		if !ok || !jsonEqual(got, want) {
			return false
		}
	}
	return true
}

func jsonEqual(a, b json.RawMessage) bool {
	var left, right bytes.Buffer
	if json.Compact(&left, a) != nil || json.Compact(&right, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(left.Bytes(), right.Bytes())
}
