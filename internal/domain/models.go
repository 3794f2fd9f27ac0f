package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentEFT    PaymentMethod = "eft"
	PaymentCredit PaymentMethod = "credit"
)

var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentEFT, PaymentCredit}

func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

type Session struct {
	OwnerID string `json:"owner_id"`
	Email   string `json:"email"`
	Role    string `json:"role"`
}

func (s Session) Authenticated() bool {
	return s.OwnerID != ""
}

type Product struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"user_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Category    string          `json:"category,omitempty"`
	SKU         string          `json:"sku"`
	Barcode     string          `json:"barcode,omitempty"`
	Unit        string          `json:"unit,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Stock       int             `json:"stock"`
	MinStock    int             `json:"min_stock"`
	SupplierID  string          `json:"supplier_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p Product) LowStock() bool {
	return p.Stock <= p.MinStock
}

type ProductCreateRequest struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Description string          `json:"description" validate:"max=500"`
	Category    string          `json:"category" validate:"max=60"`
	SKU         string          `json:"sku" validate:"max=40"`
	Barcode     string          `json:"barcode" validate:"max=64"`
	Unit        string          `json:"unit" validate:"max=20"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Cost        decimal.Decimal `json:"cost" validate:"gte=0"`
	Stock       int             `json:"stock" validate:"gte=0"`
	MinStock    *int            `json:"min_stock,omitempty" validate:"omitempty,gte=0"`
	SupplierID  string          `json:"supplier_id"`
}

type ProductUpdateRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=60"`
	Barcode     *string          `json:"barcode,omitempty" validate:"omitempty,max=64"`
	Unit        *string          `json:"unit,omitempty" validate:"omitempty,max=20"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,gte=0"`
	Cost        *decimal.Decimal `json:"cost,omitempty" validate:"omitempty,gte=0"`
	Stock       *int             `json:"stock,omitempty" validate:"omitempty,gte=0"`
	MinStock    *int             `json:"min_stock,omitempty" validate:"omitempty,gte=0"`
	SupplierID  *string          `json:"supplier_id,omitempty"`
}

type ProductFilter struct {
	Category   string
	SupplierID string
	LowStock   bool
}

type Supplier struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"user_id"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	Mobile        string    `json:"mobile,omitempty"`
	Address       string    `json:"address,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type SupplierRequest struct {
	Name          string `json:"name" validate:"required,max=120"`
	ContactPerson string `json:"contact_person" validate:"max=120"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"max=40"`
	Mobile        string `json:"mobile" validate:"max=40"`
	Address       string `json:"address" validate:"max=250"`
	Notes         string `json:"notes" validate:"max=500"`
	Active        *bool  `json:"active,omitempty"`
}

type LineItem struct {
	ProductID      string          `json:"product_id"`
	Name           string          `json:"name"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Quantity       int             `json:"quantity"`
	AvailableStock int             `json:"available_stock"`
}

func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type SaleTotals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
}

func (t SaleTotals) Equal(other SaleTotals) bool {
	return t.Subtotal.Equal(other.Subtotal) &&
		t.DiscountAmount.Equal(other.DiscountAmount) &&
		t.TaxableAmount.Equal(other.TaxableAmount) &&
		t.TaxAmount.Equal(other.TaxAmount) &&
		t.Total.Equal(other.Total)
}

type Sale struct {
	ID              string        `json:"id"`
	OwnerID         string        `json:"user_id"`
	Items           []LineItem    `json:"items"`
	DiscountPercent float64       `json:"discount_percent"`
	TaxPercent      float64       `json:"tax_percent"`
	PaymentMethod   PaymentMethod `json:"payment_method"`
	Date            string        `json:"date"`
	Timestamp       time.Time     `json:"timestamp"`
	CustomerID      string        `json:"customer_id,omitempty"`
	CustomerName    string        `json:"customer_name,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	SaleTotals
}

type SaleItemRequest struct {
	ProductID string           `json:"product_id" validate:"required"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
}

type SaleRequest struct {
	Items           []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	DiscountPercent float64           `json:"discount_percent" validate:"gte=0,lte=100"`
	TaxPercent      *float64          `json:"tax_percent,omitempty" validate:"omitempty,gte=0"`
	PaymentMethod   PaymentMethod     `json:"payment_method" validate:"required,oneof=cash card eft credit"`
	Timestamp       *time.Time        `json:"timestamp,omitempty"`
	CustomerID      string            `json:"customer_id"`
	CustomerName    string            `json:"customer_name" validate:"max=120"`
	Notes           string            `json:"notes" validate:"max=500"`
}

type QuoteRequest struct {
	Items           []LineItem `json:"items"`
	DiscountPercent float64    `json:"discount_percent"`
	TaxPercent      *float64   `json:"tax_percent,omitempty"`
}

type QuoteResponse struct {
	Totals  SaleTotals        `json:"totals"`
	Display map[string]string `json:"display"`
}

type SaleFilter struct {
	From time.Time
	To   time.Time
}

type StockDelta struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
}

type BestDay struct {
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

type ProductQuantity struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type PeriodAggregates struct {
	TotalRevenue        decimal.Decimal   `json:"total_revenue"`
	TotalCount          int               `json:"total_count"`
	AverageTicket       decimal.Decimal   `json:"average_ticket"`
	BestDay             *BestDay          `json:"best_day,omitempty"`
	TopProducts         []ProductQuantity `json:"top_products"`
	PaymentMethodCounts map[string]int    `json:"payment_method_counts"`
}

type DayRevenue struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
	Sales   int             `json:"sales"`
}

type AnalyticsReport struct {
	Range         string            `json:"range"`
	From          time.Time         `json:"from"`
	To            time.Time         `json:"to"`
	Current       PeriodAggregates  `json:"current"`
	Previous      *PeriodAggregates `json:"previous,omitempty"`
	RevenueGrowth decimal.Decimal   `json:"revenue_growth"`
	Daily         []DayRevenue      `json:"daily"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

type DashboardSummary struct {
	TotalSales        int             `json:"total_sales"`
	TotalProducts     int             `json:"total_products"`
	TotalSuppliers    int             `json:"total_suppliers"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TodaySales        decimal.Decimal `json:"today_sales"`
	AverageOrderValue decimal.Decimal `json:"average_order_value"`
	RecentSales       []Sale          `json:"recent_sales"`
	LowStockProducts  []Product       `json:"low_stock_products"`
}

type TakingsEntry struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"user_id"`
	Date      string          `json:"date"`
	Method    PaymentMethod   `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Tip       decimal.Decimal `json:"tip"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type TakingsRequest struct {
	Date   string          `json:"date" validate:"required,datetime=2006-01-02"`
	Method PaymentMethod   `json:"method" validate:"required,oneof=cash card eft credit"`
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
	Tip    decimal.Decimal `json:"tip" validate:"gte=0"`
	Note   string          `json:"note" validate:"max=250"`
}

type DailyTakings struct {
	Date     string                     `json:"date"`
	ByMethod map[string]decimal.Decimal `json:"by_method"`
	Tips     decimal.Decimal            `json:"tips"`
	Total    decimal.Decimal            `json:"total"`
	Entries  int                        `json:"entries"`
}

type UserSettings struct {
	Currency      string  `json:"currency"`
	Language      string  `json:"language"`
	TaxRate       float64 `json:"tax_rate"`
	Notifications bool    `json:"notifications"`
	LowStockAlert bool    `json:"low_stock_alert"`
}

type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	BusinessName string       `json:"business_name,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Role         string       `json:"role"`
	PasswordHash string       `json:"password_hash,omitempty"`
	Settings     UserSettings `json:"settings"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	Name         string `json:"name" validate:"required,max=120"`
	BusinessName string `json:"business_name" validate:"max=120"`
	Phone        string `json:"phone" validate:"max=40"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	OwnerID     string `json:"owner_id"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type AuditFinding struct {
	SaleID   string     `json:"sale_id"`
	Date     string     `json:"date"`
	Stored   SaleTotals `json:"stored"`
	Expected SaleTotals `json:"expected"`
}
