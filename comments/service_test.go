package comments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/snsapp/db/dbtest"
	"github.com/user/snsapp/users"
)

func TestCommentService_CreateAndList(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	bob, err := users.NewUserService(pool).Create(ctx, "Bob", "bob@example.com", "hash")
	require.NoError(t, err)

	svc := NewCommentService(pool)
	// No post 77 exists: the insert is accepted anyway.
	older, err := svc.Create(ctx, bob, 77, "older")
	require.NoError(t, err)
	newer, err := svc.Create(ctx, bob, 77, "newer")
	require.NoError(t, err)
	_, err = svc.Create(ctx, bob, 78, "elsewhere")
	require.NoError(t, err)

	list, err := svc.GetByPostID(ctx, 77)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].ID)
	assert.Equal(t, older, list[1].ID)
	assert.Equal(t, bob, list[0].UserID)
}
