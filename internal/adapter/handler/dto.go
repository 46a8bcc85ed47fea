package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

type ProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Image       *string          `json:"image"`
}

// input converts a full (POST/PUT) body, reporting missing required fields.
func (req ProductRequest) input() (domain.ProductInput, error) {
	missing := &domain.ValidationError{}
	if req.Name == nil {
		missing.Add("name", "This field is required.")
	}
	if req.Price == nil {
		missing.Add("price", "This field is required.")
	}
	if req.Stock == nil {
		missing.Add("stock", "This field is required.")
	}
	if err := missing.OrNil(); err != nil {
		return domain.ProductInput{}, err
	}

	in := domain.ProductInput{
		Name:  *req.Name,
		Price: *req.Price,
		Stock: *req.Stock,
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Image != nil {
		in.Image = *req.Image
	}
	return in, nil
}

func (req ProductRequest) patch() domain.ProductPatch {
	return domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Image:       req.Image,
	}
}

type ProductResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Stock       int    `json:"stock"`
	Image       string `json:"image,omitempty"`
}

type ProductListResponse struct {
	Count    int               `json:"count"`
	Next     *string           `json:"next"`
	Previous *string           `json:"previous"`
	Results  []ProductResponse `json:"results"`
}

type ProductInfoResponse struct {
	Count    int     `json:"count"`
	MaxPrice *string `json:"max_price"`
}

type OrderItemRequest struct {
	Product  int64 `json:"product"`
	Quantity int   `json:"quantity"`
}

type OrderRequest struct {
	Status *string             `json:"status"`
	Items  *[]OrderItemRequest `json:"items"`
}

func (req OrderRequest) status() (*domain.OrderStatus, error) {
	if req.Status == nil {
		return nil, nil
	}
	st, err := domain.ParseOrderStatus(*req.Status)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// lines returns nil when items were not sent at all.
func (req OrderRequest) lines() []domain.OrderLine {
	if req.Items == nil {
		return nil
	}
	lines := make([]domain.OrderLine, len(*req.Items))
	for i, it := range *req.Items {
		lines[i] = domain.OrderLine{ProductID: it.Product, Quantity: it.Quantity}
	}
	return lines
}

type OrderItemResponse struct {
	Product      int64  `json:"product"`
	ProductName  string `json:"product_name"`
	ProductPrice string `json:"product_price"`
	Quantity     int    `json:"quantity"`
	ItemSubtotal string `json:"item_subtotal"`
}

type OrderResponse struct {
	OrderID    string              `json:"order_id"`
	User       int64               `json:"user"`
	CreatedAt  time.Time           `json:"created_at"`
	Status     string              `json:"status"`
	Items      []OrderItemResponse `json:"items"`
	TotalPrice string              `json:"total_price"`
}

type ErrorResponse struct {
	Error   string              `json:"error"`
	Message string              `json:"message,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func mapProduct(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       money(p.Price),
		Stock:       p.Stock,
		Image:       p.Image,
	}
}

func mapProducts(products []domain.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = mapProduct(p)
	}
	return out
}

func mapProductInfo(info domain.ProductInfo) ProductInfoResponse {
	resp := ProductInfoResponse{Count: info.Count}
	if info.MaxPrice.Valid {
		s := money(info.MaxPrice.Decimal)
		resp.MaxPrice = &s
	}
	return resp
}

func mapOrder(o domain.Order) OrderResponse {
	items := make([]OrderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItemResponse{
			Product:      it.ProductID,
			ProductName:  it.Product.Name,
			ProductPrice: money(it.Product.Price),
			Quantity:     it.Quantity,
			ItemSubtotal: money(it.Subtotal()),
		}
	}
	return OrderResponse{
		OrderID:    o.ID.String(),
		User:       o.UserID,
		CreatedAt:  o.CreatedAt,
		Status:     string(o.Status),
		Items:      items,
		TotalPrice: money(o.Total()),
	}
}

func mapOrders(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = mapOrder(o)
	}
	return out
}
