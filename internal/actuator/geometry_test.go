// File: internal/actuator/geometry_test.go
package actuator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kestrelqa/kestrel-cli/api/schemas"
)

func TestDenormalize(t *testing.T) {
	testCases := []struct {
		name string
		norm int
		dim  int
		want int
	}{
		{"origin", 0, 1440, 0},
		{"midpoint", 500, 1440, 720},
		{"near max", 999, 1440, 1438},
		{"full scale clamps inside", 1000, 1440, 1439},
		{"overshoot clamps inside", 1500, 1440, 1439},
		{"negative clamps to zero", -10, 1440, 0},
		{"small axis", 500, 3, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Denormalize(tc.norm, tc.dim))
		})
	}
}

func TestDenormalizeMonotonic(t *testing.T) {
	// Increasing normalized coordinates never map to decreasing pixels.
	prev := 0
	for n := 0; n < normScale; n++ {
		px := Denormalize(n, 900)
		assert.GreaterOrEqual(t, px, prev, "norm %d", n)
		prev = px
	}
}

func TestDenormalizePoint(t *testing.T) {
	screen := schemas.ScreenSize{Width: 1440, Height: 900}
	x, y := DenormalizePoint(250, 750, screen)
	assert.Equal(t, 360, x)
	assert.Equal(t, 675, y)
}
