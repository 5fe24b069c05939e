package dynamics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConverge(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name            string
		current, target float64
		rate, dt        float64
		want            float64
	}{
		{"step up", 0, 100, 10, 1, 10},
		{"step down", 100, 0, 10, 1, 90},
		{"snap when within step", 95, 100, 10, 1, 100},
		{"exact distance snaps", 90, 100, 10, 1, 100},
		{"already at target", 42, 42, 10, 1, 42},
		{"zero dt holds", 5, 100, 10, 0, 5},
		{"negative dt holds", 5, 100, 10, -1, 5},
		{"nan dt holds", 5, 100, 10, math.NaN(), 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tc.want, Converge(tc.current, tc.target, tc.rate, tc.dt), 1e-12)
		})
	}
}

// TestConvergeNeverOvershoots walks a value toward several targets and checks
// the distance to target never grows.
func TestConvergeNeverOvershoots(t *testing.T) {
	t.Parallel()

	for _, target := range []float64{-50, 0, 13.7, 1800} {
		current := 600.0
		for i := 0; i < 2000 && current != target; i++ {
			next := Converge(current, target, 7.3, 0.2)
			require.LessOrEqual(t, math.Abs(next-target), math.Abs(current-target))
			current = next
		}
		require.Equal(t, target, current)
	}
}

func TestClamp(t *testing.T) {
	t.Parallel()

	require.Equal(t, 0.0, Clamp(-1, 0, 10))
	require.Equal(t, 10.0, Clamp(11, 0, 10))
	require.Equal(t, 5.5, Clamp(5.5, 0, 10))
}
