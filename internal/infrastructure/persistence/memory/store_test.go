package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreOperations(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "progress:a", `{"setNumber":1}`))
	require.NoError(t, s.Set(ctx, "progress:b", `{}`))
	require.NoError(t, s.Set(ctx, "difficultyProgress", `{}`))

	v, found, err := s.Get(ctx, "progress:a")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"setNumber":1}`, v)

	keys, err := s.Keys(ctx, "progress:")
	require.NoError(t, err)
	assert.Equal(t, []string{"progress:a", "progress:b"}, keys)

	require.NoError(t, s.MultiRemove(ctx, "progress:a", "progress:b", "nope"))
	require.NoError(t, s.Remove(ctx, "nope"))
	assert.Equal(t, 1, s.Len())
}
