//go:build integration

package pause_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"effigy/internal/pause"
	"effigy/pkg/testutil/containers"
)

func TestRedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	store := pause.NewRedis(rc.Client)
	ctx := context.Background()

	paused, err := store.Get(ctx)
	require.NoError(t, err)
	require.False(t, paused, "missing key must read as unpaused")

	require.NoError(t, store.Set(ctx, true))
	paused, err = store.Get(ctx)
	require.NoError(t, err)
	require.True(t, paused)

	require.NoError(t, store.Set(ctx, false))
	paused, err = store.Get(ctx)
	require.NoError(t, err)
	require.False(t, paused)
}
