package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"salonledger/internal/domain"
	"salonledger/internal/store"
)

const defaultMinStock = 10

func (s *Service) ListProducts(ctx context.Context, sess domain.Session, filter domain.ProductFilter) ([]domain.Product, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	filters := store.Filters{}
	if category := strings.TrimSpace(filter.Category); category != "" {
		filters["category"] = category
	}
	if supplierID := strings.TrimSpace(filter.SupplierID); supplierID != "" {
		filters["supplier_id"] = supplierID
	}

	records, err := s.docs.GetCollection(ctx, store.CollectionProducts, sess.OwnerID, filters)
	if err != nil {
		return nil, err
	}
	products, err := decodeAll[domain.Product](records)
	if err != nil {
		return nil, err
	}
	if !filter.LowStock {
		return products, nil
	}

	low := products[:0]
	for _, p := range products {
		if p.LowStock() {
			low = append(low, p)
		}
	}
	return low, nil
}

func (s *Service) GetProduct(ctx context.Context, sess domain.Session, id string) (domain.Product, error) {
	if err := requireSession(sess); err != nil {
		return domain.Product{}, err
	}
	var product domain.Product
	if err := s.getOwned(ctx, sess, store.CollectionProducts, id, &product); err != nil {
		return domain.Product{}, err
	}
	return product, nil
}

func (s *Service) CreateProduct(ctx context.Context, sess domain.Session, req domain.ProductCreateRequest) (domain.Product, error) {
	if err := requireSession(sess); err != nil {
		return domain.Product{}, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	if err := validateStruct(req); err != nil {
		return domain.Product{}, err
	}
	if err := s.checkSupplier(ctx, sess, req.SupplierID); err != nil {
		return domain.Product{}, err
	}

	product := domain.Product{
		Name:        req.Name,
		Description: strings.TrimSpace(req.Description),
		Category:    req.Category,
		SKU:         req.SKU,
		Barcode:     strings.TrimSpace(req.Barcode),
		Unit:        strings.TrimSpace(req.Unit),
		Price:       req.Price,
		Cost:        req.Cost,
		Stock:       req.Stock,
		MinStock:    defaultMinStock,
		SupplierID:  strings.TrimSpace(req.SupplierID),
	}
	if req.MinStock != nil {
		product.MinStock = *req.MinStock
	}
	if product.SKU == "" {
		product.SKU = GenerateSKU(product.Category)
	}

	id, err := s.docs.AddDocument(ctx, store.CollectionProducts, sess.OwnerID, product)
	if err != nil {
		return domain.Product{}, err
	}
	return s.GetProduct(ctx, sess, id)
}

func (s *Service) UpdateProduct(ctx context.Context, sess domain.Session, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if err := requireSession(sess); err != nil {
		return domain.Product{}, err
	}
	if err := validateStruct(req); err != nil {
		return domain.Product{}, err
	}
	if _, err := s.GetProduct(ctx, sess, id); err != nil {
		return domain.Product{}, err
	}

	partial := map[string]any{}
	setTrimmed(partial, "name", req.Name)
	setTrimmed(partial, "description", req.Description)
	setTrimmed(partial, "category", req.Category)
	setTrimmed(partial, "barcode", req.Barcode)
	setTrimmed(partial, "unit", req.Unit)
	if req.Price != nil {
		partial["price"] = *req.Price
	}
	if req.Cost != nil {
		partial["cost"] = *req.Cost
	}
	if req.Stock != nil {
		partial["stock"] = *req.Stock
	}
	if req.MinStock != nil {
		partial["min_stock"] = *req.MinStock
	}
	if req.SupplierID != nil {
		supplierID := strings.TrimSpace(*req.SupplierID)
		if err := s.checkSupplier(ctx, sess, supplierID); err != nil {
			return domain.Product{}, err
		}
		partial["supplier_id"] = supplierID
	}
	if name, ok := partial["name"]; ok && name == "" {
		return domain.Product{}, invalidField("name", "is required")
	}

	if len(partial) > 0 {
		if err := s.docs.UpdateDocument(ctx, store.CollectionProducts, id, partial); err != nil {
			return domain.Product{}, err
		}
	}
	return s.GetProduct(ctx, sess, id)
}

func (s *Service) DeleteProduct(ctx context.Context, sess domain.Session, id string) error {
	if _, err := s.GetProduct(ctx, sess, id); err != nil {
		return err
	}
	return s.docs.DeleteDocument(ctx, store.CollectionProducts, id)
}

// LowStockProducts returns products at or below their minimum stock.
func (s *Service) LowStockProducts(ctx context.Context, sess domain.Session) ([]domain.Product, error) {
	return s.ListProducts(ctx, sess, domain.ProductFilter{LowStock: true})
}

// loadProducts fetches the owner's products by id. Missing ids are left out
// of the result.
func (s *Service) loadProducts(ctx context.Context, sess domain.Session, ids []string) (map[string]domain.Product, error) {
	products := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if _, done := products[id]; done {
			continue
		}
		var product domain.Product
		err := s.getOwned(ctx, sess, store.CollectionProducts, id, &product)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		products[id] = product
	}
	return products, nil
}

func (s *Service) checkSupplier(ctx context.Context, sess domain.Session, supplierID string) error {
	supplierID = strings.TrimSpace(supplierID)
	if supplierID == "" {
		return nil
	}
	var supplier domain.Supplier
	if err := s.getOwned(ctx, sess, store.CollectionSuppliers, supplierID, &supplier); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return invalidField("supplier_id", "does not exist")
		}
		return err
	}
	return nil
}

// GenerateSKU builds "<first three letters of category>-<six random letters>",
// using "PRO" when the category has fewer than three letters.
func GenerateSKU(category string) string {
	prefix := make([]rune, 0, 3)
	for _, r := range strings.ToUpper(category) {
		if unicode.IsLetter(r) && r < unicode.MaxASCII {
			prefix = append(prefix, r)
		}
		if len(prefix) == 3 {
			break
		}
	}
	if len(prefix) < 3 {
		prefix = []rune("PRO")
	}

	random := uuid.New()
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = 'A' + random[i]%26
	}
	return string(prefix) + "-" + string(suffix)
}

func setTrimmed(partial map[string]any, key string, value *string) {
	if value != nil {
		partial[key] = strings.TrimSpace(*value)
	}
}
