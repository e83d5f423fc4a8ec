// File: internal/actuator/geometry.go
package actuator

import "github.com/kestrelqa/kestrel-cli/api/schemas"

// normScale is the side length of the normalized coordinate space the
// reasoning model emits coordinates in. Both axes run 0..999 regardless of
// the actual viewport geometry.
const normScale = 1000

// Denormalize converts one normalized coordinate to a concrete pixel offset
// on an axis of the given length. Results are clamped to the axis so an
// out-of-range model coordinate can never target a point off screen.
func Denormalize(norm, dim int) int {
	px := norm * dim / normScale
	if px < 0 {
		return 0
	}
	if px >= dim {
		return dim - 1
	}
	return px
}

// DenormalizePoint converts a normalized (x, y) pair to pixel coordinates on
// the given screen.
func DenormalizePoint(x, y int, screen schemas.ScreenSize) (int, int) {
	return Denormalize(x, screen.Width), Denormalize(y, screen.Height)
}
