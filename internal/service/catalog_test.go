package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonledger/internal/domain"
	"salonledger/internal/store"
	"salonledger/internal/store/memory"
)

func TestCreateProductDefaultsAndGeneratedSKU(t *testing.T) {
	svc, _ := seededService(t)

	product, err := svc.CreateProduct(context.Background(), owner, domain.ProductCreateRequest{
		Name:       "  Heat Protect Spray ",
		Category:   "Hair Care",
		Price:      dec("159.90"),
		Cost:       dec("80"),
		Stock:      12,
		SupplierID: "supplier-demo-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Heat Protect Spray", product.Name)
	assert.Equal(t, defaultMinStock, product.MinStock)
	assert.True(t, strings.HasPrefix(product.SKU, "HAI-"), product.SKU)
	assert.Len(t, product.SKU, 10)
	assert.Equal(t, memory.SeedOwnerID, product.OwnerID)
	requireAmount(t, "159.9", product.Price)
}

func TestGenerateSKUFallsBackForShortCategories(t *testing.T) {
	sku := GenerateSKU("x1")
	assert.True(t, strings.HasPrefix(sku, "PRO-"), sku)
	for _, r := range sku[4:] {
		assert.True(t, r >= 'A' && r <= 'Z', sku)
	}
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, owner, domain.ProductCreateRequest{Name: "Toner", Price: dec("-1")})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "price")

	_, err = svc.CreateProduct(ctx, owner, domain.ProductCreateRequest{Name: "Toner", Price: dec("10"), SupplierID: "supplier-nope"})
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "supplier_id")
}

func TestUpdateProductAppliesOnlyGivenFields(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	price := dec("199.99")
	stock := 30
	updated, err := svc.UpdateProduct(ctx, owner, "product-demo-1", domain.ProductUpdateRequest{Price: &price, Stock: &stock})
	require.NoError(t, err)

	requireAmount(t, "199.99", updated.Price)
	assert.Equal(t, 30, updated.Stock)
	assert.Equal(t, "Argan Shampoo 500ml", updated.Name)
	assert.Equal(t, "HAI-ARG500", updated.SKU)

	blank := "   "
	_, err = svc.UpdateProduct(ctx, owner, "product-demo-1", domain.ProductUpdateRequest{Name: &blank})
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestProductsAreOwnerScoped(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()
	other := domain.Session{OwnerID: "owner-other"}

	_, err := svc.GetProduct(ctx, other, "product-demo-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	err = svc.DeleteProduct(ctx, other, "product-demo-1")
	require.ErrorIs(t, err, store.ErrNotFound)

	list, err := svc.ListProducts(ctx, other, domain.ProductFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListProductsFilters(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	nails, err := svc.ListProducts(ctx, owner, domain.ProductFilter{Category: "nails"})
	require.NoError(t, err)
	assert.Len(t, nails, 2)

	bySupplier, err := svc.ListProducts(ctx, owner, domain.ProductFilter{SupplierID: "supplier-demo-1"})
	require.NoError(t, err)
	assert.Len(t, bySupplier, 2)

	low, err := svc.LowStockProducts(ctx, owner)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Cuticle Oil", low[0].Name)
}

func TestSupplierLifecycle(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	inactive := false
	created, err := svc.CreateSupplier(ctx, owner, domain.SupplierRequest{
		Name:   " Lash Lab ",
		Email:  "orders@lashlab.example",
		Active: &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Lash Lab", created.Name)
	assert.False(t, created.Active)

	active, err := svc.ListSuppliers(ctx, owner, true)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	all, err := svc.ListSuppliers(ctx, owner, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	updated, err := svc.UpdateSupplier(ctx, owner, created.ID, domain.SupplierRequest{Name: "Lash Lab SA", Phone: "011 555 0000"})
	require.NoError(t, err)
	assert.Equal(t, "Lash Lab SA", updated.Name)
	assert.Equal(t, "", updated.Email)
	assert.False(t, updated.Active)

	_, err = svc.CreateSupplier(ctx, owner, domain.SupplierRequest{Name: "Bad", Email: "not-an-email"})
	require.ErrorIs(t, err, store.ErrInvalidInput)

	require.NoError(t, svc.DeleteSupplier(ctx, owner, created.ID))
	_, err = svc.GetSupplier(ctx, owner, created.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDailyTakingsIncludesTips(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	entries := []domain.TakingsRequest{
		{Date: "2026-03-15", Method: domain.PaymentCash, Amount: dec("500"), Tip: dec("50")},
		{Date: "2026-03-15", Method: domain.PaymentCard, Amount: dec("300"), Tip: dec("0")},
		{Date: "2026-03-15", Method: domain.PaymentCash, Amount: dec("120.50"), Tip: dec("10")},
		{Date: "2026-03-14", Method: domain.PaymentEFT, Amount: dec("999"), Tip: dec("0")},
	}
	for _, req := range entries {
		_, err := svc.RecordTakings(ctx, owner, req)
		require.NoError(t, err)
	}

	daily, err := svc.DailyTakings(ctx, owner, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-03-15", daily.Date)
	assert.Equal(t, 3, daily.Entries)
	requireAmount(t, "620.5", daily.ByMethod["cash"])
	requireAmount(t, "300", daily.ByMethod["card"])
	requireAmount(t, "0", daily.ByMethod["eft"])
	requireAmount(t, "60", daily.Tips)
	requireAmount(t, "980.5", daily.Total)

	list, err := svc.ListTakings(ctx, owner, "")
	require.NoError(t, err)
	assert.Len(t, list, 4)

	require.NoError(t, svc.DeleteTakings(ctx, owner, list[3].ID))
	list, err = svc.ListTakings(ctx, owner, "2026-03-14")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecordTakingsValidation(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	_, err := svc.RecordTakings(ctx, owner, domain.TakingsRequest{Date: "15/03/2026", Method: domain.PaymentCash, Amount: dec("10")})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "date")

	_, err = svc.RecordTakings(ctx, owner, domain.TakingsRequest{Date: "2026-03-15", Method: domain.PaymentCash, Amount: dec("-10")})
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "amount")

	_, err = svc.ListTakings(ctx, owner, "yesterday")
	require.ErrorIs(t, err, store.ErrInvalidInput)
}

func TestExportSalesCSVQuotesFreeText(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	walkIn := saleReq(domain.PaymentCash, line("product-demo-3", 1))
	walkIn.TaxPercent = noTax()
	earlier := testNow.Add(-time.Hour)
	walkIn.Timestamp = &earlier
	_, err := svc.CreateSale(ctx, owner, walkIn)
	require.NoError(t, err)

	named := saleReq(domain.PaymentCard, line("product-demo-1", 1))
	named.CustomerName = `Smith, Jane "JJ"`
	_, err = svc.CreateSale(ctx, owner, named)
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, svc.ExportSalesCSV(ctx, owner, &out, domain.SaleFilter{}))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Date,Time,Customer,Items,Subtotal,Discount,Tax,Total,Payment Method", lines[0])
	assert.Equal(t, `2026-03-15,10:00,"Smith, Jane ""JJ""",1,189.99,0.00,28.50,218.49,card`, lines[1])
	assert.Equal(t, "2026-03-15,09:00,Walk-in,1,89.00,0.00,0.00,89.00,cash", lines[2])
}

func TestExportTakingsCSV(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	_, err := svc.RecordTakings(ctx, owner, domain.TakingsRequest{Date: "2026-03-15", Method: domain.PaymentCard, Amount: dec("250.5"), Tip: dec("20")})
	require.NoError(t, err)

	var out strings.Builder
	require.NoError(t, svc.ExportTakingsCSV(ctx, owner, &out, "2026-03-15"))
	assert.Equal(t, "Date,Method,Amount,Tip\n2026-03-15,card,250.50,20.00\n", out.String())
}

func TestRegisterAndFindUser(t *testing.T) {
	svc, _ := seededService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, domain.RegisterRequest{
		Email:        "  Nomsa@Example.com ",
		Password:     "correct-horse",
		Name:         "Nomsa",
		BusinessName: "Nomsa's Nails",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "nomsa@example.com", user.Email)
	assert.Equal(t, RoleBusinessOwner, user.Role)
	assert.Equal(t, 15.0, user.Settings.TaxRate)
	assert.NotEqual(t, "correct-horse", user.PasswordHash)

	found, err := svc.FindUserByEmail(ctx, "NOMSA@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = svc.Register(ctx, domain.RegisterRequest{Email: "nomsa@example.com", Password: "another-pass", Name: "Again"})
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "email")

	_, err = svc.Register(ctx, domain.RegisterRequest{Email: "short@example.com", Password: "short", Name: "Short"})
	require.ErrorAs(t, err, &validation)
	assert.Contains(t, validation.Fields, "password")

	_, err = svc.FindUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}
