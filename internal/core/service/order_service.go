package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/port"
)

// OrderService applies order visibility: staff see every order, everyone
// else only their own. Orders outside the caller's scope are reported as
// domain.ErrNotFound.
type OrderService struct {
	repo  port.OrderRepository
	now   func() time.Time
	newID func() uuid.UUID
}

func NewOrderService(repo port.OrderRepository) *OrderService {
	return &OrderService{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.New,
	}
}

// Create places an order owned by the caller. status nil means Pending.
func (s *OrderService) Create(ctx context.Context, caller *domain.User, status *domain.OrderStatus, lines []domain.OrderLine) (domain.Order, error) {
	if caller == nil {
		return domain.Order{}, domain.ErrUnauthenticated
	}
	if err := domain.ValidateLines(lines); err != nil {
		return domain.Order{}, err
	}

	order := domain.NewOrder{
		ID:        s.newID(),
		UserID:    caller.ID,
		Status:    domain.OrderStatusPending,
		CreatedAt: s.now(),
		Lines:     lines,
	}
	if status != nil {
		order.Status = *status
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.Order{}, err
	}

	slog.InfoContext(ctx, "order created", "order_id", created.ID, "user_id", caller.ID, "items", len(created.Items))
	return created, nil
}

func (s *OrderService) List(ctx context.Context, caller *domain.User, filter domain.OrderFilter) ([]domain.Order, error) {
	scoped, err := scope(caller, filter)
	if err != nil {
		return nil, err
	}
	return s.repo.ListOrders(ctx, scoped)
}

func (s *OrderService) Get(ctx context.Context, caller *domain.User, id uuid.UUID) (domain.Order, error) {
	if caller == nil {
		return domain.Order{}, domain.ErrUnauthenticated
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !caller.IsStaff && !order.OwnedBy(*caller) {
		return domain.Order{}, domain.ErrNotFound
	}
	return order, nil
}

func (s *OrderService) Update(ctx context.Context, caller *domain.User, id uuid.UUID, update domain.OrderUpdate) (domain.Order, error) {
	if update.Lines != nil {
		if err := domain.ValidateLines(update.Lines); err != nil {
			return domain.Order{}, err
		}
	}
	if _, err := s.Get(ctx, caller, id); err != nil {
		return domain.Order{}, err
	}
	return s.repo.UpdateOrder(ctx, id, update)
}

func (s *OrderService) Delete(ctx context.Context, caller *domain.User, id uuid.UUID) error {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.DeleteOrder(ctx, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "order deleted", "order_id", id, "user_id", caller.ID)
	return nil
}

// scope narrows the filter to the caller's own orders unless the caller is
// staff. It overrides whatever OwnerID the filter carried.
func scope(caller *domain.User, filter domain.OrderFilter) (domain.OrderFilter, error) {
	if caller == nil {
		return domain.OrderFilter{}, domain.ErrUnauthenticated
	}
	if caller.IsStaff {
		filter.OwnerID = nil
		return filter, nil
	}
	owner := caller.ID
	filter.OwnerID = &owner
	return filter, nil
}
