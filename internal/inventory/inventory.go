// Package inventory turns sale line items into product stock changes.
package inventory

import (
	"fmt"

	"salonledger/internal/domain"
	"salonledger/internal/store"
)

type Direction int

const (
	// Commit takes stock out for a sale.
	Commit Direction = iota + 1
	// Reverse puts a sale's stock back.
	Reverse
)

func (d Direction) String() string {
	switch d {
	case Commit:
		return "commit"
	case Reverse:
		return "reverse"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

type InsufficientStockError = store.InsufficientStockError

// Adjustment is the stock change for one sale, one entry per product in
// first-seen order.
type Adjustment struct {
	Deltas    []domain.StockDelta
	Resulting map[string]int
}

// ApplySaleToStock computes the stock change for items against the current
// products. Quantities for the same product are combined. A commit fails as
// a whole when any product would go below zero; a reverse skips products that
// no longer exist.
func ApplySaleToStock(products map[string]domain.Product, items []domain.LineItem, dir Direction) (Adjustment, error) {
	if dir != Commit && dir != Reverse {
		return Adjustment{}, fmt.Errorf("%w: unknown stock direction %s", store.ErrInvalidInput, dir)
	}

	quantities := make(map[string]int, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return Adjustment{}, fmt.Errorf("%w: quantity for %s must be positive", store.ErrInvalidInput, item.ProductID)
		}
		if _, seen := quantities[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		quantities[item.ProductID] += item.Quantity
	}

	adj := Adjustment{
		Deltas:    make([]domain.StockDelta, 0, len(order)),
		Resulting: make(map[string]int, len(order)),
	}
	for _, productID := range order {
		qty := quantities[productID]
		product, ok := products[productID]
		if !ok {
			if dir == Reverse {
				continue
			}
			return Adjustment{}, fmt.Errorf("product %s: %w", productID, store.ErrNotFound)
		}

		if dir == Commit {
			if product.Stock < qty {
				return Adjustment{}, &InsufficientStockError{
					ProductID: productID,
					Name:      product.Name,
					Available: product.Stock,
					Requested: qty,
				}
			}
			adj.Deltas = append(adj.Deltas, domain.StockDelta{ProductID: productID, Delta: -qty})
			adj.Resulting[productID] = product.Stock - qty
			continue
		}

		adj.Deltas = append(adj.Deltas, domain.StockDelta{ProductID: productID, Delta: qty})
		adj.Resulting[productID] = product.Stock + qty
	}
	return adj, nil
}

// Apply returns a copy of products with the adjustment's resulting stock.
func (a Adjustment) Apply(products map[string]domain.Product) map[string]domain.Product {
	next := make(map[string]domain.Product, len(products))
	for id, product := range products {
		if stock, ok := a.Resulting[id]; ok {
			product.Stock = stock
		}
		next[id] = product
	}
	return next
}
