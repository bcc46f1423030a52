package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("maps linearly within range", func(t *testing.T) {
		assert.InDelta(t, 0.5, Normalize(5, 0, 10), 1e-9)
		assert.InDelta(t, 0.25, Normalize(25, 0, 100), 1e-9)
	})

	t.Run("clamps below and above", func(t *testing.T) {
		assert.Equal(t, 0.0, Normalize(-3, 0, 10))
		assert.Equal(t, 1.0, Normalize(42, 0, 10))
	})

	t.Run("degenerate scale returns mid-point", func(t *testing.T) {
		assert.Equal(t, 0.5, Normalize(7, 7, 7))
		assert.Equal(t, 0.5, Normalize(7, 10, 2))
	})
}

func TestCurveEval(t *testing.T) {
	curves := DefaultConfig().Curves

	t.Run("rainfall intensity breakpoints", func(t *testing.T) {
		c := curves.RainfallIntensity
		assert.Equal(t, 0.0, c.Eval(0))
		assert.Equal(t, 0.0, c.Eval(2))
		assert.InDelta(t, 0.30, c.Eval(20), 1e-9)
		assert.InDelta(t, 0.60, c.Eval(50), 1e-9)
		assert.InDelta(t, 0.80, c.Eval(100), 1e-9)
		assert.Equal(t, 1.0, c.Eval(200))
	})

	t.Run("interpolates between breakpoints", func(t *testing.T) {
		c := curves.RainfallIntensity
		// midway between 20mm (0.30) and 50mm (0.60)
		assert.InDelta(t, 0.45, c.Eval(35), 1e-9)
	})

	t.Run("saturates beyond the last breakpoint", func(t *testing.T) {
		assert.Equal(t, 1.0, curves.RainfallIntensity.Eval(1000))
		assert.Equal(t, 1.0, curves.CumulativeRain.Eval(5000))
	})

	t.Run("temp anomaly scores negative anomalies zero", func(t *testing.T) {
		assert.Equal(t, 0.0, curves.TempAnomaly.Eval(-4))
		assert.InDelta(t, 0.10, curves.TempAnomaly.Eval(3), 1e-9)
		assert.InDelta(t, 0.70, curves.TempAnomaly.Eval(8), 1e-9)
	})

	t.Run("monotonic over a sweep", func(t *testing.T) {
		for _, c := range []Curve{curves.RainfallIntensity, curves.CumulativeRain, curves.TempAnomaly} {
			prev := -1.0
			for x := -10.0; x <= 600; x += 0.5 {
				y := c.Eval(x)
				require.GreaterOrEqual(t, y, prev)
				require.GreaterOrEqual(t, y, 0.0)
				require.LessOrEqual(t, y, 1.0)
				prev = y
			}
		}
	})

	t.Run("empty curve evaluates to zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Curve(nil).Eval(10))
	})
}

func TestCurveValidate(t *testing.T) {
	t.Run("rejects single breakpoint", func(t *testing.T) {
		err := Curve{{X: 1, Y: 0}}.validate()
		require.Error(t, err)
	})

	t.Run("rejects non-increasing x", func(t *testing.T) {
		err := Curve{{X: 5, Y: 0}, {X: 5, Y: 1}}.validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "strictly increasing")
	})

	t.Run("rejects decreasing scores", func(t *testing.T) {
		err := Curve{{X: 0, Y: 0.5}, {X: 10, Y: 0.2}}.validate()
		require.Error(t, err)
	})

	t.Run("rejects scores outside unit range", func(t *testing.T) {
		err := Curve{{X: 0, Y: 0}, {X: 10, Y: 1.5}}.validate()
		require.Error(t, err)
	})
}
