package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	t.Run("rejects malformed connection string", func(t *testing.T) {
		pool, err := Connect(context.Background(), "invalid://connection")
		require.Error(t, err)
		require.Nil(t, pool)
	})

	t.Run("fails when host is unreachable", func(t *testing.T) {
		pool, err := Connect(context.Background(), "postgres://localhost:59999/nonexistent?connect_timeout=1")
		require.Error(t, err)
		require.Nil(t, pool)
	})
}
