package vtengine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alpenglow-engine/alpenglow/votor/vtconsensus"
	"github.com/alpenglow-engine/alpenglow/votor/vtengine"
)

func TestExponentialTimeoutStrategy(t *testing.T) {
	t.Parallel()

	s := vtengine.ExponentialTimeoutStrategy{
		Base: 10, Min: 10, Max: 1000,
		WindowSize: 4,
	}

	// The backoff doubles per leader window, not per view.
	require.Equal(t, vtconsensus.Tick(10), s.TimeoutFor(1))
	require.Equal(t, vtconsensus.Tick(10), s.TimeoutFor(3))
	require.Equal(t, vtconsensus.Tick(20), s.TimeoutFor(4))
	require.Equal(t, vtconsensus.Tick(20), s.TimeoutFor(7))
	require.Equal(t, vtconsensus.Tick(40), s.TimeoutFor(8))

	t.Run("clamped into min and max", func(t *testing.T) {
		t.Parallel()

		clamped := vtengine.ExponentialTimeoutStrategy{
			Base: 1, Min: 5, Max: 30,
			WindowSize: 4,
		}
		require.Equal(t, vtconsensus.Tick(5), clamped.TimeoutFor(1))
		require.Equal(t, vtconsensus.Tick(30), clamped.TimeoutFor(40))
	})

	t.Run("overflow saturates at max", func(t *testing.T) {
		t.Parallel()

		big := vtengine.ExponentialTimeoutStrategy{
			Base: 1 << 62, Min: 1, Max: 500,
			WindowSize: 1,
		}
		require.Equal(t, vtconsensus.Tick(500), big.TimeoutFor(10))
		require.Equal(t, vtconsensus.Tick(500), big.TimeoutFor(100))
	})

	t.Run("zero window and base defaults", func(t *testing.T) {
		t.Parallel()

		z := vtengine.ExponentialTimeoutStrategy{
			Base: 0, Min: 0, Max: 100,
			WindowSize: 0,
		}
		// Base defaults to 1, window to 1: view 3 shifts three times.
		require.Equal(t, vtconsensus.Tick(8), z.TimeoutFor(3))
	})
}
