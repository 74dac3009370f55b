package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/livequiz-api/internal/config"
)

func TestRedisOptions(t *testing.T) {
	t.Run("single falls back to Addr", func(t *testing.T) {
		opts, err := RedisOptions(config.RedisConfig{Mode: "single", Addr: "localhost:6379", MinRetryBackoff: 10})

		require.NoError(t, err)
		assert.Equal(t, []string{"localhost:6379"}, opts.Addrs)
		assert.Equal(t, 10*time.Millisecond, opts.MinRetryBackoff)
		assert.Empty(t, opts.MasterName)
	})

	t.Run("sentinel requires master name", func(t *testing.T) {
		_, err := RedisOptions(config.RedisConfig{Mode: "sentinel", Addrs: []string{"a:26379"}})
		assert.Error(t, err)

		opts, err := RedisOptions(config.RedisConfig{Mode: "sentinel", Addrs: []string{"a:26379"}, MasterName: "mymaster"})
		require.NoError(t, err)
		assert.Equal(t, "mymaster", opts.MasterName)
	})

	t.Run("missing address", func(t *testing.T) {
		_, err := RedisOptions(config.RedisConfig{Mode: "single"})
		assert.Error(t, err, "без адреса конфигурация некорректна")
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, err := RedisOptions(config.RedisConfig{Mode: "mesh", Addr: "x:1"})
		assert.Error(t, err)
	})
}
