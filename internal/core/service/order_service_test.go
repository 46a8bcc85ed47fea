package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-inventory/internal/adapter/storage"
	"github.com/rl1809/shop-inventory/internal/core/domain"
)

type orderFixture struct {
	store    *storage.SQLAdapter
	orders   *OrderService
	alice    domain.User
	bob      domain.User
	admin    domain.User
	mug      domain.Product
	lamp     domain.Product
	products *ProductService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	ctx := context.Background()
	store := newTestStore(t)
	users := NewUserService(store)
	products := NewProductService(store, nil, time.Minute)

	f := &orderFixture{store: store, orders: NewOrderService(store), products: products}

	var err error
	f.alice, _, err = users.Register(ctx, "alice", false)
	require.NoError(t, err)
	f.bob, _, err = users.Register(ctx, "bob", false)
	require.NoError(t, err)
	f.admin, _, err = users.Register(ctx, "admin", true)
	require.NoError(t, err)

	f.mug, err = products.Create(ctx, productInput("Mug", "9.50", 10))
	require.NoError(t, err)
	f.lamp, err = products.Create(ctx, productInput("Lamp", "34.00", 2))
	require.NoError(t, err)
	return f
}

func TestCreateOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.orders.Create(ctx, &f.alice, nil, []domain.OrderLine{
		{ProductID: f.mug.ID, Quantity: 2},
		{ProductID: f.lamp.ID, Quantity: 1},
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, f.alice.ID, order.UserID)
	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.Equal(t, "53.00", order.Total().StringFixed(2))
	assert.Len(t, order.Products(), 2)

	confirmed := domain.OrderStatusConfirmed
	order, err = f.orders.Create(ctx, &f.alice, &confirmed, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Empty(t, order.Items)
}

func TestCreateOrder_Rejected(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		lines []domain.OrderLine
	}{
		{"zero quantity", []domain.OrderLine{{ProductID: f.mug.ID, Quantity: 0}}},
		{"negative quantity", []domain.OrderLine{{ProductID: f.mug.ID, Quantity: -2}}},
		{"duplicate product", []domain.OrderLine{{ProductID: f.mug.ID, Quantity: 1}, {ProductID: f.mug.ID, Quantity: 1}}},
		{"unknown product", []domain.OrderLine{{ProductID: 4242, Quantity: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orders.Create(ctx, &f.alice, nil, tt.lines)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}

	_, err := f.orders.Create(ctx, nil, nil, nil)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	all, err := f.orders.List(ctx, &f.admin, domain.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestOrderVisibility(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	aliceOrder, err := f.orders.Create(ctx, &f.alice, nil, []domain.OrderLine{{ProductID: f.mug.ID, Quantity: 1}})
	require.NoError(t, err)
	bobOrder, err := f.orders.Create(ctx, &f.bob, nil, []domain.OrderLine{{ProductID: f.lamp.ID, Quantity: 1}})
	require.NoError(t, err)

	list, err := f.orders.List(ctx, &f.alice, domain.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, aliceOrder.ID, list[0].ID)

	// A caller-supplied owner never widens the scope.
	list, err = f.orders.List(ctx, &f.alice, domain.OrderFilter{OwnerID: &f.bob.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, aliceOrder.ID, list[0].ID)

	list, err = f.orders.List(ctx, &f.admin, domain.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = f.orders.List(ctx, nil, domain.OrderFilter{})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = f.orders.Get(ctx, &f.bob, aliceOrder.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := f.orders.Get(ctx, &f.admin, bobOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, f.bob.ID, got.UserID)

	canceled := domain.OrderStatusCanceled
	_, err = f.orders.Update(ctx, &f.bob, aliceOrder.ID, domain.OrderUpdate{Status: &canceled})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.orders.Delete(ctx, &f.bob, aliceOrder.ID), domain.ErrNotFound)

	still, err := f.orders.Get(ctx, &f.alice, aliceOrder.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, still.Status)
}

func TestUpdateOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.orders.Create(ctx, &f.alice, nil, []domain.OrderLine{{ProductID: f.mug.ID, Quantity: 1}})
	require.NoError(t, err)

	updated, err := f.orders.Update(ctx, &f.alice, order.ID, domain.OrderUpdate{
		Lines: []domain.OrderLine{{ProductID: f.lamp.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.Equal(t, f.lamp.ID, updated.Items[0].ProductID)
	assert.Equal(t, domain.OrderStatusPending, updated.Status)

	_, err = f.orders.Update(ctx, &f.alice, order.ID, domain.OrderUpdate{
		Lines: []domain.OrderLine{{ProductID: f.lamp.ID, Quantity: 0}},
	})
	assert.True(t, domain.IsValidation(err))

	// Staff may change anyone's order.
	confirmed := domain.OrderStatusConfirmed
	updated, err = f.orders.Update(ctx, &f.admin, order.ID, domain.OrderUpdate{Status: &confirmed})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, updated.Status)
	assert.Len(t, updated.Items, 1)

	require.NoError(t, f.orders.Delete(ctx, &f.alice, order.ID))
	_, err = f.orders.Get(ctx, &f.alice, order.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOrderTotals_FollowCurrentPrice(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	order, err := f.orders.Create(ctx, &f.alice, nil, []domain.OrderLine{{ProductID: f.mug.ID, Quantity: 3}})
	require.NoError(t, err)
	assert.Equal(t, "28.50", order.Total().StringFixed(2))

	_, err = f.products.Replace(ctx, f.mug.ID, productInput("Mug", "10.00", 10))
	require.NoError(t, err)

	order, err = f.orders.Get(ctx, &f.alice, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "30.00", order.Total().StringFixed(2))
	assert.Equal(t, "30.00", order.Items[0].Subtotal().StringFixed(2))
}

func TestConcurrentOrders_StayScoped(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	const perUser = 5
	var wg sync.WaitGroup
	for _, u := range []domain.User{f.alice, f.bob} {
		wg.Add(1)
		go func(u domain.User) {
			defer wg.Done()
			for i := 0; i < perUser; i++ {
				_, err := f.orders.Create(ctx, &u, nil, []domain.OrderLine{{ProductID: f.mug.ID, Quantity: i + 1}})
				assert.NoError(t, err)
			}
		}(u)
	}
	wg.Wait()

	for _, u := range []domain.User{f.alice, f.bob} {
		list, err := f.orders.List(ctx, &u, domain.OrderFilter{})
		require.NoError(t, err)
		assert.Len(t, list, perUser)
		for _, o := range list {
			assert.True(t, o.OwnedBy(u))
		}
	}
}
