package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"salonledger/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidInput      = errors.New("invalid input")
	ErrRemote            = errors.New("document store unavailable")
)

// InsufficientStockError reports a product whose stock cannot cover the
// units a sale asks for.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	name := e.Name
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d", name, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

const (
	CollectionProducts  = "products"
	CollectionSuppliers = "suppliers"
	CollectionSales     = "sales"
	CollectionTakings   = "takings"
	CollectionUsers     = "users"
)

// UsersOwner owns every record in the users collection so accounts can be
// looked up by email before a session exists.
const UsersOwner = "auth"

// Keys stamped by the store. Values supplied for them on write are dropped.
const (
	KeyID        = "id"
	KeyOwnerID   = "user_id"
	KeyCreatedAt = "created_at"
	KeyUpdatedAt = "updated_at"
)

var reservedKeys = []string{KeyID, KeyOwnerID, KeyCreatedAt, KeyUpdatedAt}

// Filters narrows GetCollection to records whose top-level fields equal the
// given values after JSON encoding.
type Filters map[string]any

type Record struct {
	ID        string
	OwnerID   string
	Data      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Decode unmarshals the stored fields into dest and overlays the
// store-managed metadata.
func (r Record) Decode(dest any) error {
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, dest); err != nil {
			return fmt.Errorf("decode %s: %w", r.ID, err)
		}
	}
	meta, err := json.Marshal(map[string]any{
		KeyID:        r.ID,
		KeyOwnerID:   r.OwnerID,
		KeyCreatedAt: r.CreatedAt,
		KeyUpdatedAt: r.UpdatedAt,
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(meta, dest)
}

type DocumentStore interface {
	GetCollection(ctx context.Context, collection string, ownerID string, filters Filters) ([]Record, error)
	GetDocument(ctx context.Context, collection string, id string) (*Record, error)
	AddDocument(ctx context.Context, collection string, ownerID string, data any) (string, error)
	UpdateDocument(ctx context.Context, collection string, id string, partial map[string]any) error
	DeleteDocument(ctx context.Context, collection string, id string) error
}

// StockAdjuster applies a set of product stock deltas as one conditional
// write. Either every delta is applied or none is, and no product may end
// below zero.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, ownerID string, deltas []domain.StockDelta) error
}

type RemoteError struct {
	Op         string
	Collection string
	Err        error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func (e *RemoteError) Is(target error) bool {
	return target == ErrRemote
}

// EncodeFields turns a document value into its top-level JSON fields with the
// reserved metadata keys removed.
func EncodeFields(data any) (map[string]json.RawMessage, error) {
	raw, ok := data.(json.RawMessage)
	if !ok {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		raw = encoded
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: document must be a JSON object", ErrInvalidInput)
	}
	for _, key := range reservedKeys {
		delete(fields, key)
	}
	return fields, nil
}

// EncodePartial encodes an update payload, dropping reserved keys.
func EncodePartial(partial map[string]any) (map[string]json.RawMessage, error) {
	fields := make(map[string]json.RawMessage, len(partial))
	for key, value := range partial {
		if isReserved(key) {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: field %s: %v", ErrInvalidInput, key, err)
		}
		fields[key] = encoded
	}
	return fields, nil
}

func isReserved(key string) bool {
	for _, reserved := range reservedKeys {
		if key == reserved {
			return true
		}
	}
	return false
}
