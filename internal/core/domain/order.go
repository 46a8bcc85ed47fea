package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusCanceled  OrderStatus = "Canceled"
)

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusCanceled:
		return st, nil
	}
	return "", NewValidationError("status", fmt.Sprintf("%q is not a valid choice.", s))
}

type Order struct {
	ID        uuid.UUID
	UserID    int64
	Status    OrderStatus
	CreatedAt time.Time
	Items     []OrderItem
}

// Total is evaluated against current product prices.
func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Products returns the distinct products across the order's items.
func (o Order) Products() []Product {
	seen := make(map[int64]struct{}, len(o.Items))
	products := make([]Product, 0, len(o.Items))
	for _, it := range o.Items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		products = append(products, it.Product)
	}
	return products
}

func (o Order) OwnedBy(u User) bool {
	return o.UserID == u.ID
}

type OrderItem struct {
	ProductID int64
	Product   Product
	Quantity  int
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderLine is a requested (product, quantity) pair.
type OrderLine struct {
	ProductID int64
	Quantity  int
}

// ValidateLines rejects quantities below one and repeated products.
func ValidateLines(lines []OrderLine) error {
	v := &ValidationError{}
	seen := make(map[int64]struct{}, len(lines))
	for i, l := range lines {
		if l.Quantity < 1 {
			v.Add("items", fmt.Sprintf("item %d: quantity must be at least 1.", i))
		}
		if _, dup := seen[l.ProductID]; dup {
			v.Add("items", fmt.Sprintf("item %d: product %d appears more than once.", i, l.ProductID))
		}
		seen[l.ProductID] = struct{}{}
	}
	return v.OrNil()
}

// NewOrder is a validated order ready to be persisted.
type NewOrder struct {
	ID        uuid.UUID
	UserID    int64
	Status    OrderStatus
	CreatedAt time.Time
	Lines     []OrderLine
}

// OrderUpdate changes status and/or replaces all items. Lines == nil keeps items.
type OrderUpdate struct {
	Status *OrderStatus
	Lines  []OrderLine
}
