package memory

import (
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"salonledger/internal/domain"
	"salonledger/internal/store"
)

const SeedOwnerID = "owner-demo"

// NewSeeded returns a store holding one demo owner with a small salon
// catalogue. Credentials come from SEED_OWNER_EMAIL and SEED_OWNER_PASSWORD;
// dev defaults are used with a warning when they are unset.
func NewSeeded() *Store {
	s := New()

	email := envOr("SEED_OWNER_EMAIL", "owner@salon.local")
	password := envOr("SEED_OWNER_PASSWORD", "salon-demo-123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" {
		zap.L().Warn("memory store using default demo credentials; set SEED_OWNER_PASSWORD to override",
			zap.String("email", email))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		zap.L().Fatal("hash seed password", zap.Error(err))
	}

	s.seed(store.CollectionUsers, SeedOwnerID, store.UsersOwner, domain.User{
		Email:        email,
		Name:         "Demo Owner",
		BusinessName: "Demo Salon",
		Role:         "business_owner",
		PasswordHash: string(hash),
		Settings: domain.UserSettings{
			Currency:      "ZAR",
			Language:      "en",
			TaxRate:       15,
			Notifications: true,
			LowStockAlert: true,
		},
	})

	suppliers := []struct {
		id       string
		supplier domain.Supplier
	}{
		{"supplier-demo-1", domain.Supplier{Name: "Glow Beauty Wholesale", ContactPerson: "Thandi Mokoena", Phone: "021 555 0101", Active: true}},
		{"supplier-demo-2", domain.Supplier{Name: "Cape Nail Supplies", ContactPerson: "Pieter Botha", Phone: "021 555 0199", Active: true}},
	}
	for _, entry := range suppliers {
		s.seed(store.CollectionSuppliers, entry.id, SeedOwnerID, entry.supplier)
	}

	products := []struct {
		id      string
		product domain.Product
	}{
		{"product-demo-1", domain.Product{Name: "Argan Shampoo 500ml", Category: "haircare", SKU: "HAI-ARG500", Unit: "bottle", Price: decimal.RequireFromString("189.99"), Cost: decimal.RequireFromString("95.00"), Stock: 24, MinStock: 10, SupplierID: "supplier-demo-1"}},
		{"product-demo-2", domain.Product{Name: "Keratin Conditioner", Category: "haircare", SKU: "HAI-KER250", Unit: "bottle", Price: decimal.RequireFromString("149.50"), Cost: decimal.RequireFromString("70.00"), Stock: 18, MinStock: 10, SupplierID: "supplier-demo-1"}},
		{"product-demo-3", domain.Product{Name: "Gel Polish Ruby", Category: "nails", SKU: "NAI-RUBY01", Unit: "bottle", Price: decimal.RequireFromString("89.00"), Cost: decimal.RequireFromString("32.00"), Stock: 40, MinStock: 10, SupplierID: "supplier-demo-2"}},
		{"product-demo-4", domain.Product{Name: "Cuticle Oil", Category: "nails", SKU: "NAI-CUT015", Unit: "bottle", Price: decimal.RequireFromString("65.00"), Cost: decimal.RequireFromString("21.50"), Stock: 8, MinStock: 10, SupplierID: "supplier-demo-2"}},
		{"product-demo-5", domain.Product{Name: "Wax Strips 20pk", Category: "skincare", SKU: "SKI-WAX020", Unit: "pack", Price: decimal.RequireFromString("120.00"), Cost: decimal.RequireFromString("48.00"), Stock: 30, MinStock: 5}},
	}
	for _, entry := range products {
		s.seed(store.CollectionProducts, entry.id, SeedOwnerID, entry.product)
	}

	return s
}

func (s *Store) seed(collection string, id string, ownerID string, data any) {
	fields, err := store.EncodeFields(data)
	if err != nil {
		zap.L().Fatal("encode seed document", zap.String("collection", collection), zap.Error(err))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(collection, id, ownerID, fields)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
