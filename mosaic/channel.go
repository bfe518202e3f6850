package mosaic

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Color is a tint with red, green and blue components each in [0,1].
type Color [3]float64

var (
	Red   = Color{1, 0, 0}
	Green = Color{0, 1, 0}
	Blue  = Color{0, 0, 1}
	White = Color{1, 1, 1}
)

// ParseColor converts a six digit hexadecimal color like "FF0000" or "#00ff00" to a Color.
func ParseColor(hex string) (Color, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(hex) != 6 {
		return Color{}, NewConfigError("hex color value %q invalid", hex)
	}
	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return Color{}, NewConfigError("hex color value %q invalid", hex)
	}
	return Color{c.R, c.G, c.B}, nil
}

// Hex returns the color as a six digit hexadecimal string.
func (c Color) Hex() string {
	return strings.ToUpper(strings.TrimPrefix(colorful.Color{R: c[0], G: c[1], B: c[2]}.Hex(), "#"))
}

// Channel holds the rendering settings for one channel of a multi-channel image.
// Min and Max are fractions of the sample limit that bound the contrast stretch.
type Channel struct {
	ID    int
	Color Color
	Min   float64
	Max   float64
}

// Validate checks that colors and the contrast window are within [0,1] and that
// the window is not inverted.
func (c Channel) Validate() error {
	for i, v := range c.Color {
		if v < 0 || v > 1 {
			return NewConfigError("channel %d color component %d = %g outside [0,1]", c.ID, i, v)
		}
	}
	if c.Min < 0 || c.Min > 1 || c.Max < 0 || c.Max > 1 {
		return NewConfigError("channel %d range [%g,%g] outside [0,1]", c.ID, c.Min, c.Max)
	}
	if c.Min > c.Max {
		return NewConfigError("channel %d has min %g > max %g", c.ID, c.Min, c.Max)
	}
	return nil
}

func (c Channel) String() string {
	return fmt.Sprintf("channel %d [%g,%g] #%s", c.ID, c.Min, c.Max, c.Color.Hex())
}
