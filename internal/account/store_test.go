package account

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotto-server/common/constant"
	"lotto-server/common/helper"
	"lotto-server/internal/testutil"
)

func TestCreateAndVerify(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewStore(db)
	ctx := context.Background()

	cu, err := s.Create(ctx, NewCustomer{
		FullName: " Somchai ",
		Email:    "Somchai@Example.com",
		Password: "secret",
		Balance:  decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, "somchai@example.com", cu.Email)
	assert.Equal(t, constant.RoleUser, cu.Role)
	assert.NotEqual(t, "secret", cu.Password)

	got, err := s.VerifyCredential(ctx, "somchai@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, cu.ID, got.ID)

	_, err = s.VerifyCredential(ctx, "somchai@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredential)
	_, err = s.VerifyCredential(ctx, "nobody@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = s.Create(ctx, NewCustomer{FullName: "Dup", Email: "somchai@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = s.Create(ctx, NewCustomer{Email: "x@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestBalanceAndRole(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewStore(db)
	ctx := context.Background()
	id := testutil.SeedCustomer(t, db, "u@example.com", "100", constant.RoleUser)

	b, err := s.GetBalance(ctx, id)
	require.NoError(t, err)
	assert.True(t, b.Equal(decimal.NewFromInt(100)))

	after, ok, err := s.AdjustBalance(ctx, nil, id, decimal.NewFromInt(-100))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, after.IsZero())

	_, ok, err = s.AdjustBalance(ctx, nil, id, decimal.NewFromInt(-1))
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := s.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.Exists(ctx, id+1)
	require.NoError(t, err)
	assert.False(t, exists)

	admin, err := s.IsAdmin(ctx, id)
	require.NoError(t, err)
	assert.False(t, admin)

	_, err = s.GetBalance(ctx, 999)
	assert.True(t, helper.IsNoRows(err))
}

func TestEnsureAdminIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	s := NewStore(db)
	ctx := context.Background()
	seed := DefaultAdminSeed()

	created, err := s.EnsureAdmin(ctx, seed)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureAdmin(ctx, seed)
	require.NoError(t, err)
	assert.False(t, created)

	cu, err := s.VerifyCredential(ctx, seed.Email, seed.Password)
	require.NoError(t, err)
	assert.Equal(t, constant.RoleAdmin, cu.Role)
	assert.True(t, cu.Balance.Equal(decimal.NewFromInt(1000)))

	isAdmin, err := s.IsAdmin(ctx, cu.ID)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM customer WHERE role = 'admin'"))
	assert.Equal(t, 1, n)
}
