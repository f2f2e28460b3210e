package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponderLimiter(t *testing.T) {
	t.Run("saturates at max", func(t *testing.T) {
		rl := NewResponderLimiter(2)

		require.NoError(t, rl.Acquire())
		require.NoError(t, rl.Acquire())
		assert.Error(t, rl.Acquire())
		assert.Equal(t, 2, rl.InFlight())

		rl.Release()
		assert.NoError(t, rl.Acquire())
	})

	t.Run("zero max is unlimited", func(t *testing.T) {
		rl := NewResponderLimiter(0)
		for i := 0; i < 100; i++ {
			require.NoError(t, rl.Acquire())
		}
		assert.Equal(t, 100, rl.InFlight())
	})

	t.Run("release never goes negative", func(t *testing.T) {
		rl := NewResponderLimiter(1)
		rl.Release()
		assert.Equal(t, 0, rl.InFlight())
	})
}
