package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	maxNameLength    = 255
	maxPriceDigits   = 10
	maxPriceDecimals = 2
)

var maxPrice = decimal.New(1, maxPriceDigits-maxPriceDecimals)

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Image       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (p Product) IsInStock() bool {
	return p.Stock > 0
}

// ProductInput carries every writable field of a product (create and full replace).
type ProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Image       string
}

func (in ProductInput) Validate() error {
	v := &ValidationError{}
	validateName(v, in.Name)
	validatePrice(v, in.Price)
	validateStock(v, in.Stock)
	return v.OrNil()
}

// ProductPatch is a partial update; nil fields are left untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
	Image       *string
}

func (p ProductPatch) Validate() error {
	v := &ValidationError{}
	if p.Name != nil {
		validateName(v, *p.Name)
	}
	if p.Price != nil {
		validatePrice(v, *p.Price)
	}
	if p.Stock != nil {
		validateStock(v, *p.Stock)
	}
	return v.OrNil()
}

func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Stock == nil && p.Image == nil
}

// Apply returns a copy of product with the patch fields written over it.
func (p ProductPatch) Apply(product Product) Product {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Stock != nil {
		product.Stock = *p.Stock
	}
	if p.Image != nil {
		product.Image = *p.Image
	}
	return product
}

// ProductInfo aggregates the whole, unfiltered catalog. MaxPrice is invalid
// when the catalog is empty.
type ProductInfo struct {
	Count    int
	MaxPrice decimal.NullDecimal
}

func validateName(v *ValidationError, name string) {
	switch {
	case strings.TrimSpace(name) == "":
		v.Add("name", "This field may not be blank.")
	case len([]rune(name)) > maxNameLength:
		v.Add("name", "Ensure this field has no more than 255 characters.")
	}
}

func validatePrice(v *ValidationError, price decimal.Decimal) {
	switch {
	case price.IsNegative():
		v.Add("price", "Price must be a positive value.")
	case !price.Equal(price.Truncate(maxPriceDecimals)):
		v.Add("price", "Ensure that there are no more than 2 decimal places.")
	case price.GreaterThanOrEqual(maxPrice):
		v.Add("price", "Ensure that there are no more than 10 digits in total.")
	}
}

func validateStock(v *ValidationError, stock int) {
	if stock < 0 {
		v.Add("stock", "Ensure this value is greater than or equal to 0.")
	}
}
