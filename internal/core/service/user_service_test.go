package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewUserService(newTestStore(t))
	ctx := context.Background()

	u, token, err := svc.Register(ctx, "  carol ", true)
	require.NoError(t, err)
	assert.Equal(t, "carol", u.Username)
	assert.True(t, u.IsStaff)
	assert.Len(t, token, 2*tokenBytes)

	got, err := svc.Authenticate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsStaff)

	_, err = svc.Authenticate(ctx, token+"x")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, _, err = svc.Register(ctx, " ", false)
	assert.True(t, domain.IsValidation(err))
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 64)
}

func TestDeleteUser_CascadesOrders(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	users := NewUserService(f.store)

	_, err := f.orders.Create(ctx, &f.alice, nil, []domain.OrderLine{{ProductID: f.mug.ID, Quantity: 1}})
	require.NoError(t, err)
	bobOrder, err := f.orders.Create(ctx, &f.bob, nil, []domain.OrderLine{{ProductID: f.mug.ID, Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, f.alice.ID))
	assert.ErrorIs(t, users.Delete(ctx, f.alice.ID), domain.ErrNotFound)

	all, err := f.orders.List(ctx, &f.admin, domain.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, bobOrder.ID, all[0].ID)
}
