package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_IsInStock(t *testing.T) {
	assert.True(t, Product{Stock: 1}.IsInStock())
	assert.False(t, Product{Stock: 0}.IsInStock())
}

func TestProductInput_Validate(t *testing.T) {
	valid := ProductInput{Name: "Mug", Price: decimal.RequireFromString("9.99"), Stock: 0}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		in    ProductInput
		field string
	}{
		{"negative price", ProductInput{Name: "Mug", Price: decimal.NewFromInt(-1)}, "price"},
		{"three decimals", ProductInput{Name: "Mug", Price: decimal.RequireFromString("0.001")}, "price"},
		{"too many digits", ProductInput{Name: "Mug", Price: decimal.RequireFromString("100000000")}, "price"},
		{"blank name", ProductInput{Name: "   ", Price: decimal.Zero}, "name"},
		{"negative stock", ProductInput{Name: "Mug", Price: decimal.Zero, Stock: -1}, "stock"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestProductPatch(t *testing.T) {
	assert.True(t, ProductPatch{}.Empty())
	require.NoError(t, ProductPatch{}.Validate())

	name := "Cup"
	stock := -2
	assert.Error(t, ProductPatch{Stock: &stock}.Validate())

	p := ProductPatch{Name: &name}.Apply(Product{ID: 3, Name: "Mug", Stock: 5})
	assert.Equal(t, Product{ID: 3, Name: "Cup", Stock: 5}, p)
}

func TestOrder_Totals(t *testing.T) {
	mug := Product{ID: 1, Price: decimal.RequireFromString("9.50")}
	lamp := Product{ID: 2, Price: decimal.RequireFromString("34.00")}
	o := Order{Items: []OrderItem{
		{ProductID: 1, Product: mug, Quantity: 3},
		{ProductID: 2, Product: lamp, Quantity: 1},
	}}

	assert.Equal(t, "28.50", o.Items[0].Subtotal().StringFixed(2))
	assert.Equal(t, "62.50", o.Total().StringFixed(2))
	assert.Len(t, o.Products(), 2)
	assert.True(t, Order{}.Total().IsZero())
}

func TestOrder_OwnedBy(t *testing.T) {
	o := Order{UserID: 7}
	assert.True(t, o.OwnedBy(User{ID: 7}))
	assert.False(t, o.OwnedBy(User{ID: 8, IsStaff: true}))
}

func TestParseOrderStatus(t *testing.T) {
	for _, s := range []string{"Pending", "Confirmed", "Canceled"} {
		st, err := ParseOrderStatus(s)
		require.NoError(t, err)
		assert.Equal(t, OrderStatus(s), st)
	}
	_, err := ParseOrderStatus("pending")
	assert.True(t, IsValidation(err))
}

func TestValidateLines(t *testing.T) {
	assert.NoError(t, ValidateLines(nil))
	assert.NoError(t, ValidateLines([]OrderLine{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 5}}))
	assert.Error(t, ValidateLines([]OrderLine{{ProductID: 1, Quantity: 0}}))
	assert.Error(t, ValidateLines([]OrderLine{{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: 2}}))
}

func TestParseProductSort(t *testing.T) {
	tests := map[string]ProductSort{
		"name":   {Field: SortName},
		"-name":  {Field: SortName, Desc: true},
		"price":  {Field: SortPrice},
		"-price": {Field: SortPrice, Desc: true},
		"stock":  {},
		"":       {},
	}
	for in, want := range tests {
		got := ParseProductSort(in)
		assert.Equal(t, want, got, in)
	}
	assert.Equal(t, "-price", ParseProductSort("-price").String())
}

func TestNewPageRequest(t *testing.T) {
	assert.Equal(t, PageRequest{Number: 1, Size: DefaultPageSize}, NewPageRequest(0, 0))
	assert.Equal(t, PageRequest{Number: 3, Size: MaxPageSize}, NewPageRequest(3, 50))
	assert.Equal(t, PageRequest{Number: 2, Size: 4}, NewPageRequest(2, 4))
	assert.Equal(t, 4, NewPageRequest(3, 2).Offset())

	page := ProductPage{Items: make([]Product, 2), Total: 5, Page: NewPageRequest(2, 2)}
	assert.True(t, page.HasNext())
	assert.True(t, page.HasPrevious())
}

func TestProductFilter_CacheKey(t *testing.T) {
	a, b := "Mug", "mug"
	price := decimal.RequireFromString("10")

	assert.Equal(t,
		ProductFilter{NameContains: &a}.CacheKey(),
		ProductFilter{NameContains: &b}.CacheKey())
	assert.NotEqual(t,
		ProductFilter{NameContains: &a}.CacheKey(),
		ProductFilter{NameExact: &a}.CacheKey())
	assert.NotEqual(t,
		ProductFilter{PriceLT: &price}.CacheKey(),
		ProductFilter{PriceGT: &price}.CacheKey())
}

func TestOrderFilter_CreatedOnRange(t *testing.T) {
	_, _, ok := OrderFilter{}.CreatedOnRange()
	assert.False(t, ok)

	day := time.Date(2024, 2, 29, 15, 30, 0, 0, time.UTC)
	start, end, ok := OrderFilter{CreatedOn: &day}.CreatedOnRange()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestValidationError(t *testing.T) {
	var v ValidationError
	assert.NoError(t, v.OrNil())

	v.Add("b", "second")
	v.Add("a", "first")
	assert.Equal(t, "validation failed: a: first; b: second", v.Error())
}
