package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonledger/internal/domain"
	"salonledger/internal/store"
)

func newIntegrationStore(t *testing.T) *Store {
	t.Helper()
	databaseURL := os.Getenv("SALONLEDGER_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set SALONLEDGER_TEST_DATABASE_URL to run postgres integration test")
	}

	s, err := New(context.Background(), databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

func TestDocumentLifecycle(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	ownerID := fmt.Sprintf("owner-it-%d", time.Now().UnixNano())

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM documents WHERE owner_id = $1`, ownerID)
	})

	id, err := s.AddDocument(ctx, store.CollectionSuppliers, ownerID, domain.Supplier{Name: "Glow", Active: true})
	require.NoError(t, err)
	_, err = s.AddDocument(ctx, store.CollectionSuppliers, ownerID, domain.Supplier{Name: "Dormant", Active: false})
	require.NoError(t, err)

	active, err := s.GetCollection(ctx, store.CollectionSuppliers, ownerID, store.Filters{"active": true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)

	require.NoError(t, s.UpdateDocument(ctx, store.CollectionSuppliers, id, map[string]any{"phone": "021 555 0101"}))
	record, err := s.GetDocument(ctx, store.CollectionSuppliers, id)
	require.NoError(t, err)
	var supplier domain.Supplier
	require.NoError(t, record.Decode(&supplier))
	assert.Equal(t, "Glow", supplier.Name)
	assert.Equal(t, "021 555 0101", supplier.Phone)
	assert.Equal(t, ownerID, supplier.OwnerID)

	require.NoError(t, s.DeleteDocument(ctx, store.CollectionSuppliers, id))
	_, err = s.GetDocument(ctx, store.CollectionSuppliers, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()
	ownerID := fmt.Sprintf("owner-it-%d", time.Now().UnixNano())

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM documents WHERE owner_id = $1`, ownerID)
	})

	first, err := s.AddDocument(ctx, store.CollectionProducts, ownerID, domain.Product{Name: "Shampoo", Price: decimal.NewFromInt(100), Stock: 5})
	require.NoError(t, err)
	second, err := s.AddDocument(ctx, store.CollectionProducts, ownerID, domain.Product{Name: "Polish", Price: decimal.NewFromInt(50), Stock: 1})
	require.NoError(t, err)

	err = s.AdjustStock(ctx, ownerID, []domain.StockDelta{
		{ProductID: first, Delta: -2},
		{ProductID: second, Delta: -3},
	})
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	var short *store.InsufficientStockError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, second, short.ProductID)
	assert.Equal(t, "Polish", short.Name)
	assert.Equal(t, 1, short.Available)
	assert.Equal(t, 3, short.Requested)

	stock := func(id string) int {
		record, err := s.GetDocument(ctx, store.CollectionProducts, id)
		require.NoError(t, err)
		var p domain.Product
		require.NoError(t, record.Decode(&p))
		return p.Stock
	}
	assert.Equal(t, 5, stock(first))
	assert.Equal(t, 1, stock(second))

	require.NoError(t, s.AdjustStock(ctx, ownerID, []domain.StockDelta{
		{ProductID: first, Delta: -2},
		{ProductID: second, Delta: 4},
	}))
	assert.Equal(t, 3, stock(first))
	assert.Equal(t, 5, stock(second))
}
