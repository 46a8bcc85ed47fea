package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

type ProductRepository interface {
	// CreateProduct inserts a product and returns it with its assigned ID
	CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error)

	// UpdateProduct applies a patch, returns domain.ErrNotFound for unknown IDs
	UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) (domain.Product, error)

	// DeleteProduct removes a product and every order item referencing it
	DeleteProduct(ctx context.Context, id int64) error

	GetProduct(ctx context.Context, id int64) (domain.Product, error)

	// ListProducts returns one page of matching products plus the total match count
	ListProducts(ctx context.Context, filter domain.ProductFilter, page domain.PageRequest) ([]domain.Product, int, error)

	// ProductInfo aggregates over the unfiltered catalog
	ProductInfo(ctx context.Context) (domain.ProductInfo, error)
}

type OrderRepository interface {
	// CreateOrder persists the order and all its items atomically
	CreateOrder(ctx context.Context, order domain.NewOrder) (domain.Order, error)

	GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error)

	// ListOrders returns matching orders with items and products batch-loaded
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)

	// UpdateOrder changes status and/or replaces items atomically
	UpdateOrder(ctx context.Context, id uuid.UUID, update domain.OrderUpdate) (domain.Order, error)

	DeleteOrder(ctx context.Context, id uuid.UUID) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, username string, isStaff bool, tokenHash string) (domain.User, error)

	// DeleteUser removes the user with all of their orders and order items
	DeleteUser(ctx context.Context, id int64) error

	UserByTokenHash(ctx context.Context, tokenHash string) (domain.User, error)
}
