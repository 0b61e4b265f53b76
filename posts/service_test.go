package posts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/snsapp/apperror"
	"github.com/user/snsapp/db/dbtest"
	"github.com/user/snsapp/users"
)

func TestPostService_Lifecycle(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	alice, err := users.NewUserService(pool).Create(ctx, "Alice", "alice@example.com", "hash")
	require.NoError(t, err)

	svc := NewPostService(pool)
	first, err := svc.Create(ctx, alice, "first")
	require.NoError(t, err)
	second, err := svc.Create(ctx, alice, "second")
	require.NoError(t, err)

	all, err := svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second, all[0].ID, "newest first")
	assert.Equal(t, first, all[1].ID)

	require.NoError(t, svc.Delete(ctx, first))

	_, err = svc.FindByID(ctx, first)
	assert.True(t, apperror.IsNotFound(err))

	all, err = svc.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, second, all[0].ID)

	var deletedAt *string
	require.NoError(t, pool.QueryRow(ctx, `SELECT deleted_at::text FROM posts WHERE id = $1`, first).Scan(&deletedAt))
	assert.NotNil(t, deletedAt, "row is kept and stamped")
}

func TestPostService_FindMissing(t *testing.T) {
	pool := dbtest.NewPool(t)
	_, err := NewPostService(pool).FindByID(context.Background(), 12345)
	assert.True(t, apperror.IsNotFound(err))
}
