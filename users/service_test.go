package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/snsapp/apperror"
	"github.com/user/snsapp/db/dbtest"
)

func TestUserService_CreateAndFind(t *testing.T) {
	pool := dbtest.NewPool(t)
	svc := NewUserService(pool)
	ctx := context.Background()

	id, err := svc.Create(ctx, "Alice", "alice@example.com", "hash")
	require.NoError(t, err)
	assert.NotZero(t, id)

	user, err := svc.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, id, user.ID)
	assert.Equal(t, "Alice", user.Name)
	assert.Equal(t, "hash", user.HashedPassword)

	name, err := svc.GetNameByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
}

func TestUserService_Missing(t *testing.T) {
	pool := dbtest.NewPool(t)
	svc := NewUserService(pool)
	ctx := context.Background()

	_, err := svc.FindByEmail(ctx, "nobody@example.com")
	assert.True(t, apperror.IsNotFound(err))

	name, err := svc.GetNameByID(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestUserService_DuplicateEmailIsStorageError(t *testing.T) {
	pool := dbtest.NewPool(t)
	svc := NewUserService(pool)
	ctx := context.Background()

	_, err := svc.Create(ctx, "Alice", "alice@example.com", "hash")
	require.NoError(t, err)

	_, err = svc.Create(ctx, "Alice 2", "alice@example.com", "hash")
	assert.True(t, apperror.IsDatabaseError(err))
}
