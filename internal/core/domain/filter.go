package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultPageSize = 2
	MaxPageSize     = 6
)

type SortField string

const (
	SortNone  SortField = ""
	SortName  SortField = "name"
	SortPrice SortField = "price"
)

type ProductSort struct {
	Field SortField
	Desc  bool
}

// ParseProductSort reads "name", "-price", etc. Unknown fields yield the
// default ordering.
func ParseProductSort(s string) ProductSort {
	s = strings.TrimSpace(s)
	desc := strings.HasPrefix(s, "-")
	switch f := SortField(strings.TrimPrefix(s, "-")); f {
	case SortName, SortPrice:
		return ProductSort{Field: f, Desc: desc}
	}
	return ProductSort{}
}

func (s ProductSort) String() string {
	if s.Field == SortNone {
		return ""
	}
	if s.Desc {
		return "-" + string(s.Field)
	}
	return string(s.Field)
}

// ProductFilter is the set of predicates narrowing a product list. All
// supplied predicates are combined with AND.
type ProductFilter struct {
	NameExact    *string
	NameContains *string
	Price        *decimal.Decimal
	PriceLT      *decimal.Decimal
	PriceGT      *decimal.Decimal
	PriceMin     *decimal.Decimal
	PriceMax     *decimal.Decimal
	Search       string
	InStockOnly  bool
	Sort         ProductSort
}

// CacheKey renders the filter canonically; equal filters give equal keys.
func (f ProductFilter) CacheKey() string {
	var b strings.Builder
	writeStr := func(k string, v *string) {
		if v != nil {
			fmt.Fprintf(&b, "%s=%q;", k, strings.ToLower(*v))
		}
	}
	writeDec := func(k string, v *decimal.Decimal) {
		if v != nil {
			fmt.Fprintf(&b, "%s=%s;", k, v.String())
		}
	}
	writeStr("name_iexact", f.NameExact)
	writeStr("name_icontains", f.NameContains)
	writeDec("price", f.Price)
	writeDec("price_lt", f.PriceLT)
	writeDec("price_gt", f.PriceGT)
	writeDec("price_min", f.PriceMin)
	writeDec("price_max", f.PriceMax)
	if f.Search != "" {
		fmt.Fprintf(&b, "search=%q;", strings.ToLower(f.Search))
	}
	fmt.Fprintf(&b, "in_stock=%t;ordering=%s", f.InStockOnly, f.Sort)
	return b.String()
}

type PageRequest struct {
	Number int
	Size   int
}

// NewPageRequest applies the default size, clamps to MaxPageSize and
// treats numbers below one as the first page.
func NewPageRequest(number, size int) PageRequest {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if number < 1 {
		number = 1
	}
	return PageRequest{Number: number, Size: size}
}

func (p PageRequest) Offset() int {
	return (p.Number - 1) * p.Size
}

type ProductPage struct {
	Items []Product
	Total int
	Page  PageRequest
}

func (p ProductPage) HasNext() bool {
	return p.Page.Offset()+len(p.Items) < p.Total
}

func (p ProductPage) HasPrevious() bool {
	return p.Page.Number > 1
}

// OrderFilter narrows an order list. OwnerID is the visibility scope and is
// never taken from request parameters.
type OrderFilter struct {
	OwnerID       *int64
	Status        *OrderStatus
	CreatedOn     *time.Time
	CreatedBefore *time.Time
	CreatedAfter  *time.Time
}

// CreatedOnRange returns the [start, end) bounds of the CreatedOn calendar day in UTC.
func (f OrderFilter) CreatedOnRange() (time.Time, time.Time, bool) {
	if f.CreatedOn == nil {
		return time.Time{}, time.Time{}, false
	}
	d := f.CreatedOn.UTC()
	start := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1), true
}
